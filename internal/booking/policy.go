package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
)

// Fixed daily capacity policy. These are clinic policy constants, not
// deployment configuration.
const (
	// MaxPerUserPerDay caps how many live appointments one patient may
	// hold on a single date.
	MaxPerUserPerDay = 5
	// MaxActivePerDay caps how many active appointments the clinic
	// accepts per date across all doctors.
	MaxActivePerDay = 5
)

// mysqlDuplicateEntry is the MySQL error code for a unique index violation.
const mysqlDuplicateEntry = 1062

// SlotReader is the read-side contract the admission policy consults.
// Satisfied by *Ledger; tests inject stubs.
type SlotReader interface {
	BookedSlots(doctorID string, date time.Time) ([]string, error)
	CountByUserAndDate(userID string, date time.Time) (int64, error)
	CountActiveByDate(date time.Time) (int64, error)
}

// Request carries a booking request into the admission policy.
type Request struct {
	UserID        string
	DoctorID      string
	ServiceID     string
	Date          time.Time
	TimeSlot      string
	PaymentMethod models.PaymentMethod
	Notes         string
}

// Policy evaluates booking requests against the ledger and the daily caps,
// and persists admitted appointments.
type Policy struct {
	DB     *gorm.DB
	Ledger SlotReader
}

// NewPolicy creates an admission policy over the given database.
func NewPolicy(db *gorm.DB) *Policy {
	return &Policy{DB: db, Ledger: NewLedger(db)}
}

// InitialPaymentStatus derives the payment state a new appointment starts
// in. Pay-at-clinic bookings are simply unpaid; provider-settled methods
// start pending until the provider reports an outcome.
func InitialPaymentStatus(method models.PaymentMethod) models.PaymentStatus {
	if method == models.PaymentMethodClinic {
		return models.PaymentUnpaid
	}
	return models.PaymentPending
}

// Admit runs the ordered admission checks and, on success, creates the
// appointment in pending status. The first failing check determines the
// rejection reason. The slot-free pre-check is only a fast path; the real
// double-booking guarantee is the unique index on slot_claim, so a
// duplicate-entry error at insert time maps to the same SlotAlreadyBooked
// rejection.
func (p *Policy) Admit(req Request) (*models.Appointment, error) {
	userCount, err := p.Ledger.CountByUserAndDate(req.UserID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("admission: count user appointments: %w", err)
	}
	if userCount >= MaxPerUserPerDay {
		return nil, &RejectionError{
			Reason:  ReasonDailyUserLimit,
			Message: fmt.Sprintf("you already have %d appointments on this date", userCount),
		}
	}

	activeCount, err := p.Ledger.CountActiveByDate(req.Date)
	if err != nil {
		return nil, fmt.Errorf("admission: count active appointments: %w", err)
	}
	if activeCount >= MaxActivePerDay {
		return nil, &RejectionError{
			Reason:  ReasonDailyClinicCap,
			Message: "the clinic is fully booked on this date",
		}
	}

	booked, err := p.Ledger.BookedSlots(req.DoctorID, req.Date)
	if err != nil {
		return nil, fmt.Errorf("admission: load booked slots: %w", err)
	}
	for _, s := range booked {
		if s == req.TimeSlot {
			return nil, slotTakenError(req.TimeSlot)
		}
	}

	claim := models.BuildSlotClaim(req.DoctorID, req.Date, req.TimeSlot)
	appointment := models.Appointment{
		UserID:          req.UserID,
		DoctorID:        req.DoctorID,
		ServiceID:       req.ServiceID,
		AppointmentDate: req.Date,
		TimeSlot:        req.TimeSlot,
		Status:          models.StatusPending,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   InitialPaymentStatus(req.PaymentMethod),
		Notes:           req.Notes,
		SlotClaim:       &claim,
	}

	if err := p.DB.Create(&appointment).Error; err != nil {
		if isDuplicateKey(err) {
			// Lost the race for the slot between the pre-check and the insert.
			return nil, slotTakenError(req.TimeSlot)
		}
		return nil, fmt.Errorf("admission: create appointment: %w", err)
	}

	return &appointment, nil
}

func slotTakenError(slot string) *RejectionError {
	return &RejectionError{
		Reason:  ReasonSlotTaken,
		Message: fmt.Sprintf("the %s slot is already booked for this doctor", slot),
	}
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}
