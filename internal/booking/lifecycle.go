package booking

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"clinic-booking-server/internal/models"
)

// Actor identifies who is driving a lifecycle transition.
type Actor struct {
	ID   string
	Role models.Role
}

// statusTransitions is the scheduling state machine. Declined, cancelled
// and completed are terminal.
var statusTransitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:   {models.StatusConfirmed, models.StatusDeclined, models.StatusCancelled, models.StatusCompleted},
	models.StatusConfirmed: {models.StatusDeclined, models.StatusCancelled, models.StatusCompleted},
}

// paymentTransitions is the settlement state machine. Refunded is reachable
// only from paid. Scheduling transitions never touch this machine.
var paymentTransitions = map[models.PaymentStatus][]models.PaymentStatus{
	models.PaymentPending: {models.PaymentPaid, models.PaymentFailed},
	models.PaymentUnpaid:  {models.PaymentPaid, models.PaymentFailed},
	models.PaymentFailed:  {models.PaymentPaid},
	models.PaymentPaid:    {models.PaymentRefunded},
}

// CanTransitionStatus reports whether the scheduling machine allows from -> to.
func CanTransitionStatus(from, to models.AppointmentStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether the settlement machine allows from -> to.
func CanTransitionPayment(from, to models.PaymentStatus) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Lifecycle drives the two state machines of an appointment.
type Lifecycle struct {
	DB *gorm.DB
}

// NewLifecycle creates a Lifecycle over the given database.
func NewLifecycle(db *gorm.DB) *Lifecycle {
	return &Lifecycle{DB: db}
}

func (m *Lifecycle) load(appointmentID string) (*models.Appointment, error) {
	var appointment models.Appointment
	if err := m.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lifecycle: load appointment: %w", err)
	}
	return &appointment, nil
}

func (m *Lifecycle) save(appointment *models.Appointment) error {
	if err := m.DB.Save(appointment).Error; err != nil {
		return fmt.Errorf("lifecycle: save appointment: %w", err)
	}
	return nil
}

// canManage reports whether the actor may drive staff-side transitions on
// the appointment: admins on any, doctors on their own schedule.
func canManage(actor Actor, appointment *models.Appointment) bool {
	if actor.Role == models.RoleAdmin {
		return true
	}
	return actor.Role == models.RoleDoctor && actor.ID == appointment.DoctorID
}

// Confirm moves a pending appointment to confirmed. Allowed for admins and
// the owning doctor.
func (m *Lifecycle) Confirm(appointmentID string, actor Actor) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, appointment) {
		return nil, ErrForbidden
	}
	if appointment.Status != models.StatusPending {
		return nil, &InvalidTransitionError{
			Field: "status",
			From:  string(appointment.Status),
			To:    string(models.StatusConfirmed),
		}
	}
	appointment.Status = models.StatusConfirmed
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Decline moves a pending or confirmed appointment to declined. The decline
// message is mandatory; it is annotated with the acting staff member's name
// when that lookup succeeds, and stored as-is when it does not.
func (m *Lifecycle) Decline(appointmentID string, actor Actor, message string) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, appointment) {
		return nil, ErrForbidden
	}
	if strings.TrimSpace(message) == "" {
		return nil, &InvalidTransitionError{
			Field: "status",
			From:  string(appointment.Status),
			To:    string(models.StatusDeclined),
			Hint:  "a decline message is required",
		}
	}
	if !CanTransitionStatus(appointment.Status, models.StatusDeclined) {
		return nil, &InvalidTransitionError{
			Field: "status",
			From:  string(appointment.Status),
			To:    string(models.StatusDeclined),
		}
	}

	appointment.Status = models.StatusDeclined
	appointment.DeclineMessage = m.annotateDecline(actor, message)
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// annotateDecline tags the decline message with the actor's role and name.
// The lookup is best-effort: a failure falls back to the plain message and
// must never block the decline itself.
func (m *Lifecycle) annotateDecline(actor Actor, message string) string {
	var staff models.User
	if err := m.DB.First(&staff, "id = ?", actor.ID).Error; err != nil {
		log.Printf("decline annotation lookup failed for %s: %v", actor.ID, err)
		return message
	}
	label := "staff"
	if staff.Role == models.RoleDoctor {
		label = "Dr."
	}
	return fmt.Sprintf("[%s %s] %s", label, staff.FullName(), message)
}

// Cancel moves a pending or confirmed appointment to cancelled and releases
// its slot claim. Allowed for the owning patient and for admins on any
// appointment. Cancellation deliberately leaves payment_status untouched; a
// paid cancellation stays paid until staff explicitly refund it.
func (m *Lifecycle) Cancel(appointmentID string, actor Actor) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin && actor.ID != appointment.UserID {
		return nil, ErrForbidden
	}
	if !CanTransitionStatus(appointment.Status, models.StatusCancelled) {
		return nil, &InvalidTransitionError{
			Field: "status",
			From:  string(appointment.Status),
			To:    string(models.StatusCancelled),
		}
	}
	appointment.Status = models.StatusCancelled
	appointment.SlotClaim = nil // frees the slot for rebooking
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Complete marks an appointment completed. Administrative only.
func (m *Lifecycle) Complete(appointmentID string, actor Actor) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !CanTransitionStatus(appointment.Status, models.StatusCompleted) {
		return nil, &InvalidTransitionError{
			Field: "status",
			From:  string(appointment.Status),
			To:    string(models.StatusCompleted),
		}
	}
	appointment.Status = models.StatusCompleted
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// MarkPaid records a successful settlement. providerRef is the provider's
// capture id for gcash/paypal and nil for cash taken at the clinic. A repeat
// capture callback for an already-paid appointment is accepted as a no-op
// re-affirmation rather than an error.
func (m *Lifecycle) MarkPaid(appointmentID string, providerRef *string) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.PaymentStatus == models.PaymentPaid {
		return appointment, nil
	}
	if !CanTransitionPayment(appointment.PaymentStatus, models.PaymentPaid) {
		return nil, &InvalidTransitionError{
			Field: "payment_status",
			From:  string(appointment.PaymentStatus),
			To:    string(models.PaymentPaid),
		}
	}
	now := time.Now()
	appointment.PaymentStatus = models.PaymentPaid
	appointment.PaymentRef = providerRef
	appointment.PaidAt = &now
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// MarkFailed records a failed or abandoned settlement attempt.
func (m *Lifecycle) MarkFailed(appointmentID string) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if appointment.PaymentStatus == models.PaymentFailed {
		return appointment, nil
	}
	if !CanTransitionPayment(appointment.PaymentStatus, models.PaymentFailed) {
		return nil, &InvalidTransitionError{
			Field: "payment_status",
			From:  string(appointment.PaymentStatus),
			To:    string(models.PaymentFailed),
		}
	}
	appointment.PaymentStatus = models.PaymentFailed
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

// Refund moves a paid appointment to refunded. Admin only. When the payment
// has no provider reference (cash at clinic, or a provider refund API that
// is not wired) a local reference is synthesized so the refund stays
// auditable.
func (m *Lifecycle) Refund(appointmentID string, actor Actor) (*models.Appointment, error) {
	appointment, err := m.load(appointmentID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	if !CanTransitionPayment(appointment.PaymentStatus, models.PaymentRefunded) {
		return nil, &InvalidTransitionError{
			Field: "payment_status",
			From:  string(appointment.PaymentStatus),
			To:    string(models.PaymentRefunded),
			Hint:  "only paid appointments can be refunded",
		}
	}
	appointment.PaymentStatus = models.PaymentRefunded
	if appointment.PaymentRef == nil {
		localRef := "local-refund-" + uuid.New().String()
		appointment.PaymentRef = &localRef
	}
	if err := m.save(appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}
