package models

import (
	"fmt"
	"time"
)

// AppointmentStatus represents the scheduling status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusDeclined  AppointmentStatus = "declined"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
)

// PaymentMethod represents how the patient chose to pay
type PaymentMethod string

const (
	PaymentMethodClinic PaymentMethod = "clinic"
	PaymentMethodGCash  PaymentMethod = "gcash"
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// PaymentStatus represents the settlement state, tracked independently of Status
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Appointment represents a booked clinic visit. SlotClaim holds
// "doctorID|date|slot" while the appointment is live and is cleared on
// cancellation; its unique index is what actually prevents double booking
// under concurrent requests.
type Appointment struct {
	BaseModel
	UserID          string            `gorm:"size:36;index" json:"userId"`
	DoctorID        string            `gorm:"size:36;index" json:"doctorId"`
	ServiceID       string            `gorm:"size:36;index" json:"serviceId"`
	AppointmentDate time.Time         `gorm:"type:date;index" json:"appointmentDate"`
	TimeSlot        string            `gorm:"size:20" json:"timeSlot"`
	Status          AppointmentStatus `gorm:"size:20;default:'pending'" json:"status"`
	PaymentMethod   PaymentMethod     `gorm:"size:20;default:'clinic'" json:"paymentMethod"`
	PaymentStatus   PaymentStatus     `gorm:"size:20;default:'unpaid'" json:"paymentStatus"`
	PaymentRef      *string           `gorm:"size:255;index" json:"paymentRef,omitempty"`
	PaidAt          *time.Time        `json:"paidAt,omitempty"`
	DeclineMessage  string            `gorm:"type:text" json:"declineMessage,omitempty"`
	Notes           string            `gorm:"type:text" json:"notes"`
	SlotClaim       *string           `gorm:"size:120;uniqueIndex" json:"-"`

	// Relations
	Patient User    `gorm:"foreignKey:UserID" json:"-"`
	Doctor  User    `gorm:"foreignKey:DoctorID" json:"-"`
	Service Service `gorm:"foreignKey:ServiceID" json:"-"`
}

// DateString formats the appointment date the way it appears on the wire.
func (a *Appointment) DateString() string {
	return a.AppointmentDate.Format("2006-01-02")
}

// BuildSlotClaim composes the uniqueness key for a live appointment.
func BuildSlotClaim(doctorID string, date time.Time, slot string) string {
	return fmt.Sprintf("%s|%s|%s", doctorID, date.Format("2006-01-02"), slot)
}
