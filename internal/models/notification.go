package models

import (
	"time"
)

// NotificationKind categorizes what an in-app notification is about
type NotificationKind string

const (
	NotificationAppointmentConfirmed NotificationKind = "appointment_confirmed"
	NotificationAppointmentDeclined  NotificationKind = "appointment_declined"
	NotificationAppointmentCancelled NotificationKind = "appointment_cancelled"
	NotificationPaymentCaptured      NotificationKind = "payment_captured"
	NotificationPaymentFailed        NotificationKind = "payment_failed"
	NotificationPaymentRefunded      NotificationKind = "payment_refunded"
)

// Notification represents an in-app notification row written when an
// appointment or payment changes state
type Notification struct {
	BaseModel
	UserID        string           `gorm:"size:36;index" json:"userId"`
	AppointmentID string           `gorm:"size:36;index" json:"appointmentId,omitempty"`
	Kind          NotificationKind `gorm:"size:40" json:"kind"`
	Subject       string           `gorm:"type:text" json:"subject"`
	Content       string           `gorm:"type:text" json:"content"`
	ReadAt        *time.Time       `json:"readAt,omitempty"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"-"`
}
