package booking

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking-server/internal/models"
)

var appointmentColumns = []string{
	"id", "user_id", "doctor_id", "service_id", "appointment_date", "time_slot",
	"status", "payment_method", "payment_status", "payment_ref", "decline_message",
	"notes", "slot_claim",
}

func appointmentRow(status models.AppointmentStatus, payment models.PaymentStatus, paymentRef *string) *sqlmock.Rows {
	return sqlmock.NewRows(appointmentColumns).AddRow(
		"appt-1", "user-1", "doc-3", "svc-1",
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), "10:00 AM",
		string(status), "clinic", string(payment), paymentRef, "",
		"", "doc-3|2025-06-01|10:00 AM",
	)
}

func expectLoadAppointment(mock sqlmock.Sqlmock, rows *sqlmock.Rows) {
	mock.ExpectQuery("SELECT \\* FROM `appointments`").
		WithArgs("appt-1", 1).
		WillReturnRows(rows)
}

func expectSaveAppointment(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `appointments`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
}

func TestStatusTransitionTable(t *testing.T) {
	assert.True(t, CanTransitionStatus(models.StatusPending, models.StatusConfirmed))
	assert.True(t, CanTransitionStatus(models.StatusPending, models.StatusDeclined))
	assert.True(t, CanTransitionStatus(models.StatusConfirmed, models.StatusCancelled))
	assert.True(t, CanTransitionStatus(models.StatusConfirmed, models.StatusCompleted))

	// Terminal states allow nothing out.
	for _, terminal := range []models.AppointmentStatus{
		models.StatusDeclined, models.StatusCancelled, models.StatusCompleted,
	} {
		for _, to := range []models.AppointmentStatus{
			models.StatusPending, models.StatusConfirmed, models.StatusDeclined,
			models.StatusCancelled, models.StatusCompleted,
		} {
			assert.False(t, CanTransitionStatus(terminal, to),
				"%s -> %s should be rejected", terminal, to)
		}
	}
}

func TestPaymentTransitionTable(t *testing.T) {
	assert.True(t, CanTransitionPayment(models.PaymentPending, models.PaymentPaid))
	assert.True(t, CanTransitionPayment(models.PaymentUnpaid, models.PaymentPaid))
	assert.True(t, CanTransitionPayment(models.PaymentFailed, models.PaymentPaid))
	assert.True(t, CanTransitionPayment(models.PaymentPaid, models.PaymentRefunded))

	// Refunded only from paid.
	assert.False(t, CanTransitionPayment(models.PaymentPending, models.PaymentRefunded))
	assert.False(t, CanTransitionPayment(models.PaymentUnpaid, models.PaymentRefunded))
	assert.False(t, CanTransitionPayment(models.PaymentFailed, models.PaymentRefunded))
	assert.False(t, CanTransitionPayment(models.PaymentRefunded, models.PaymentPaid))
}

func TestConfirmByOwningDoctor(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusPending, models.PaymentUnpaid, nil))
	expectSaveAppointment(mock)

	appointment, err := lifecycle.Confirm("appt-1", Actor{ID: "doc-3", Role: models.RoleDoctor})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, appointment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmByUnrelatedDoctorForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusPending, models.PaymentUnpaid, nil))

	_, err := lifecycle.Confirm("appt-1", Actor{ID: "doc-9", Role: models.RoleDoctor})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeclineRequiresMessage(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusPending, models.PaymentUnpaid, nil))

	_, err := lifecycle.Decline("appt-1", Actor{ID: "admin-1", Role: models.RoleAdmin}, "   ")
	inv, ok := AsInvalidTransition(err)
	require.True(t, ok, "expected invalid transition, got %v", err)
	assert.Equal(t, "status", inv.Field)
	assert.Contains(t, inv.Hint, "decline message")
}

func TestDeclineAnnotatesActor(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusConfirmed, models.PaymentUnpaid, nil))
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WithArgs("doc-3", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "role"}).
			AddRow("doc-3", "reyes@clinic.test", "Ana", "Reyes", "doctor"))
	expectSaveAppointment(mock)

	appointment, err := lifecycle.Decline("appt-1", Actor{ID: "doc-3", Role: models.RoleDoctor}, "double booked on my end")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDeclined, appointment.Status)
	assert.Equal(t, "[Dr. Ana Reyes] double booked on my end", appointment.DeclineMessage)
}

func TestDeclineSurvivesAnnotationFailure(t *testing.T) {
	// Annotation is best-effort: a failed actor lookup degrades to the
	// plain message instead of blocking the decline.
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusPending, models.PaymentUnpaid, nil))
	mock.ExpectQuery("SELECT \\* FROM `users`").
		WithArgs("admin-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	expectSaveAppointment(mock)

	appointment, err := lifecycle.Decline("appt-1", Actor{ID: "admin-1", Role: models.RoleAdmin}, "slot no longer available")
	require.NoError(t, err)
	assert.Equal(t, "slot no longer available", appointment.DeclineMessage)
}

func TestCancelReleasesSlotAndKeepsPaymentState(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	ref := "pm_123"
	expectLoadAppointment(mock, appointmentRow(models.StatusConfirmed, models.PaymentPaid, &ref))
	expectSaveAppointment(mock)

	appointment, err := lifecycle.Cancel("appt-1", Actor{ID: "user-1", Role: models.RoleUser})
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, appointment.Status)
	assert.Nil(t, appointment.SlotClaim)
	// Cancelling never alters payment state; a paid cancellation awaits an
	// explicit refund.
	assert.Equal(t, models.PaymentPaid, appointment.PaymentStatus)
}

func TestCancelByStrangerForbidden(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusPending, models.PaymentUnpaid, nil))

	_, err := lifecycle.Cancel("appt-1", Actor{ID: "user-2", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCancelCompletedRejected(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusCompleted, models.PaymentPaid, nil))

	_, err := lifecycle.Cancel("appt-1", Actor{ID: "admin-1", Role: models.RoleAdmin})
	_, ok := AsInvalidTransition(err)
	assert.True(t, ok, "expected invalid transition, got %v", err)
}

func TestMarkPaidRecordsReference(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusPending, models.PaymentPending, nil))
	expectSaveAppointment(mock)

	ref := "src_abc123"
	appointment, err := lifecycle.MarkPaid("appt-1", &ref)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, appointment.PaymentStatus)
	require.NotNil(t, appointment.PaymentRef)
	assert.Equal(t, "src_abc123", *appointment.PaymentRef)
	assert.NotNil(t, appointment.PaidAt)
}

func TestMarkPaidTwiceIsNoOp(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	ref := "src_abc123"
	expectLoadAppointment(mock, appointmentRow(models.StatusConfirmed, models.PaymentPaid, &ref))
	// No UPDATE expected: the repeat callback is a re-affirmation.

	appointment, err := lifecycle.MarkPaid("appt-1", &ref)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, appointment.PaymentStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundOnlyFromPaid(t *testing.T) {
	for _, state := range []models.PaymentStatus{
		models.PaymentPending, models.PaymentUnpaid, models.PaymentFailed,
	} {
		db, mock := newMockDB(t)
		lifecycle := NewLifecycle(db)

		expectLoadAppointment(mock, appointmentRow(models.StatusCancelled, state, nil))

		_, err := lifecycle.Refund("appt-1", Actor{ID: "admin-1", Role: models.RoleAdmin})
		inv, ok := AsInvalidTransition(err)
		require.True(t, ok, "refund from %s should be invalid, got %v", state, err)
		assert.Equal(t, "payment_status", inv.Field)
	}
}

func TestRefundSynthesizesLocalReferenceForCash(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	expectLoadAppointment(mock, appointmentRow(models.StatusCancelled, models.PaymentPaid, nil))
	expectSaveAppointment(mock)

	appointment, err := lifecycle.Refund("appt-1", Actor{ID: "admin-1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentRefunded, appointment.PaymentStatus)
	require.NotNil(t, appointment.PaymentRef)
	assert.Contains(t, *appointment.PaymentRef, "local-refund-")
}

func TestRefundRequiresAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	lifecycle := NewLifecycle(db)

	ref := "pm_123"
	expectLoadAppointment(mock, appointmentRow(models.StatusCancelled, models.PaymentPaid, &ref))

	_, err := lifecycle.Refund("appt-1", Actor{ID: "user-1", Role: models.RoleUser})
	assert.ErrorIs(t, err, ErrForbidden)
}
