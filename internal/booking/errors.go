package booking

import (
	"errors"
	"fmt"
)

// RejectionReason identifies why a booking request was turned away.
type RejectionReason string

const (
	ReasonDailyUserLimit RejectionReason = "DailyUserLimitExceeded"
	ReasonDailyClinicCap RejectionReason = "DailyClinicCapReached"
	ReasonSlotTaken      RejectionReason = "SlotAlreadyBooked"
)

// RejectionError is a business-rule rejection of a booking request. It is
// not a system failure and maps to a structured 409/422 at the transport
// layer rather than a 500.
type RejectionError struct {
	Reason  RejectionReason
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("booking rejected (%s): %s", e.Reason, e.Message)
}

// InvalidTransitionError reports a state-machine rule violation, e.g.
// declining without a message or refunding a non-paid appointment.
type InvalidTransitionError struct {
	Field string // "status" or "payment_status"
	From  string
	To    string
	Hint  string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid %s transition %s -> %s", e.Field, e.From, e.To)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

var (
	// ErrNotFound is returned when the referenced appointment does not exist.
	ErrNotFound = errors.New("appointment not found")
	// ErrForbidden is returned when the actor lacks rights over the appointment.
	ErrForbidden = errors.New("not allowed to act on this appointment")
)

// AsRejection unwraps err as a RejectionError, if it is one.
func AsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// AsInvalidTransition unwraps err as an InvalidTransitionError, if it is one.
func AsInvalidTransition(err error) (*InvalidTransitionError, bool) {
	var inv *InvalidTransitionError
	if errors.As(err, &inv) {
		return inv, true
	}
	return nil, false
}
