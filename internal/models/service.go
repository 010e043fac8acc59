package models

// Service represents an entry in the clinic's service catalog.
type Service struct {
	BaseModel
	Name            string  `gorm:"size:120;not null" json:"name"`
	Description     string  `gorm:"type:text" json:"description"`
	Price           float64 `gorm:"type:decimal(10,2)" json:"price"`
	DurationMinutes int     `gorm:"default:60" json:"durationMinutes"`
	IsActive        bool    `gorm:"default:true" json:"isActive"`

	Appointments []Appointment `gorm:"foreignKey:ServiceID" json:"-"`
}
