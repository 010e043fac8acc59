package payments

import (
	"fmt"

	"clinic-booking-server/internal/models"
)

// Outcome is what a payment provider reported for an appointment.
type Outcome string

const (
	OutcomeCaptured Outcome = "captured"
	OutcomeFailed   Outcome = "failed"
)

// Transitioner is the payment-status side of the appointment lifecycle.
// Satisfied by *booking.Lifecycle.
type Transitioner interface {
	MarkPaid(appointmentID string, providerRef *string) (*models.Appointment, error)
	MarkFailed(appointmentID string) (*models.Appointment, error)
}

// Settlement translates provider callbacks into payment-status
// transitions. Providers are treated as opaque: the adapter never assumes
// idempotency on their side, and a repeated capture for an already-paid
// appointment lands as a no-op in the lifecycle.
type Settlement struct {
	Lifecycle Transitioner
}

// NewSettlement creates a settlement adapter over the lifecycle.
func NewSettlement(lifecycle Transitioner) *Settlement {
	return &Settlement{Lifecycle: lifecycle}
}

// Apply drives the transition for a provider outcome. providerRef is
// recorded on capture and ignored on failure.
func (s *Settlement) Apply(appointmentID string, outcome Outcome, providerRef string) (*models.Appointment, error) {
	switch outcome {
	case OutcomeCaptured:
		var ref *string
		if providerRef != "" {
			ref = &providerRef
		}
		return s.Lifecycle.MarkPaid(appointmentID, ref)
	case OutcomeFailed:
		return s.Lifecycle.MarkFailed(appointmentID)
	default:
		return nil, fmt.Errorf("settlement: unknown outcome %q", outcome)
	}
}
