package booking

import (
	"time"

	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
)

// Ledger answers read-only questions about existing bookings. It has no
// side effects; every method reflects current committed state.
type Ledger struct {
	DB *gorm.DB
}

// NewLedger creates a Ledger backed by the given database.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{DB: db}
}

// BookedSlots returns the time slots already taken for a doctor on a date.
// Cancelled appointments release their slot and are excluded.
func (l *Ledger) BookedSlots(doctorID string, date time.Time) ([]string, error) {
	var slots []string
	err := l.DB.Model(&models.Appointment{}).
		Where("doctor_id = ? AND appointment_date = ? AND status <> ?",
			doctorID, date.Format("2006-01-02"), models.StatusCancelled).
		Pluck("time_slot", &slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

// CountByUserAndDate returns how many non-cancelled appointments the user
// already holds on the date.
func (l *Ledger) CountByUserAndDate(userID string, date time.Time) (int64, error) {
	var count int64
	err := l.DB.Model(&models.Appointment{}).
		Where("user_id = ? AND appointment_date = ? AND status <> ?",
			userID, date.Format("2006-01-02"), models.StatusCancelled).
		Count(&count).Error
	return count, err
}

// CountActiveByDate returns the clinic-wide number of active appointments
// on the date. Declined appointments free clinic capacity, so both
// cancelled and declined rows are excluded.
func (l *Ledger) CountActiveByDate(date time.Time) (int64, error) {
	var count int64
	err := l.DB.Model(&models.Appointment{}).
		Where("appointment_date = ? AND status NOT IN ?",
			date.Format("2006-01-02"),
			[]models.AppointmentStatus{models.StatusCancelled, models.StatusDeclined}).
		Count(&count).Error
	return count, err
}
