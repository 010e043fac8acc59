package booking

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-booking-server/internal/models"
)

// stubLedger lets policy tests script the ledger's answers.
type stubLedger struct {
	userCount   int64
	activeCount int64
	booked      []string
}

func (s *stubLedger) BookedSlots(string, time.Time) ([]string, error)      { return s.booked, nil }
func (s *stubLedger) CountByUserAndDate(string, time.Time) (int64, error)  { return s.userCount, nil }
func (s *stubLedger) CountActiveByDate(time.Time) (int64, error)           { return s.activeCount, nil }

func bookingRequest(t *testing.T, method models.PaymentMethod) Request {
	t.Helper()
	return Request{
		UserID:        "user-1",
		DoctorID:      "doc-3",
		ServiceID:     "svc-1",
		Date:          mustDate(t, "2025-06-01"),
		TimeSlot:      "10:00 AM",
		PaymentMethod: method,
		Notes:         "first visit",
	}
}

func TestAdmitRejectsWhenUserHitsDailyLimit(t *testing.T) {
	policy := &Policy{Ledger: &stubLedger{userCount: MaxPerUserPerDay}}

	_, err := policy.Admit(bookingRequest(t, models.PaymentMethodClinic))
	rej, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, ReasonDailyUserLimit, rej.Reason)
}

func TestAdmitRejectsWhenClinicCapReached(t *testing.T) {
	// The clinic cap applies even for a doctor/slot combination not yet booked.
	policy := &Policy{Ledger: &stubLedger{activeCount: MaxActivePerDay}}

	_, err := policy.Admit(bookingRequest(t, models.PaymentMethodClinic))
	rej, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, ReasonDailyClinicCap, rej.Reason)
}

func TestAdmitRejectsBookedSlot(t *testing.T) {
	policy := &Policy{Ledger: &stubLedger{booked: []string{"09:00 AM", "10:00 AM"}}}

	_, err := policy.Admit(bookingRequest(t, models.PaymentMethodClinic))
	rej, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, ReasonSlotTaken, rej.Reason)
}

func TestAdmitChecksUserLimitBeforeClinicCap(t *testing.T) {
	// The first failing check determines the reported reason.
	policy := &Policy{Ledger: &stubLedger{
		userCount:   MaxPerUserPerDay,
		activeCount: MaxActivePerDay,
		booked:      []string{"10:00 AM"},
	}}

	_, err := policy.Admit(bookingRequest(t, models.PaymentMethodGCash))
	rej, ok := AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, ReasonDailyUserLimit, rej.Reason)
}

func TestAdmitCreatesPendingClinicAppointment(t *testing.T) {
	db, mock := newMockDB(t)
	policy := &Policy{DB: db, Ledger: &stubLedger{}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	appointment, err := policy.Admit(bookingRequest(t, models.PaymentMethodClinic))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, appointment.Status)
	assert.Equal(t, models.PaymentUnpaid, appointment.PaymentStatus)
	require.NotNil(t, appointment.SlotClaim)
	assert.Equal(t, "doc-3|2025-06-01|10:00 AM", *appointment.SlotClaim)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdmitStartsProviderMethodsPending(t *testing.T) {
	db, mock := newMockDB(t)
	policy := &Policy{DB: db, Ledger: &stubLedger{}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	appointment, err := policy.Admit(bookingRequest(t, models.PaymentMethodGCash))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPending, appointment.PaymentStatus)
}

func TestAdmitMapsDuplicateKeyToSlotConflict(t *testing.T) {
	// Two requests can both pass the slot-free read before either writes;
	// the unique index on slot_claim settles the race and the loser must
	// see the same rejection as the fast path.
	db, mock := newMockDB(t)
	policy := &Policy{DB: db, Ledger: &stubLedger{}}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `appointments`").
		WillReturnError(&mysqldrv.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	_, err := policy.Admit(bookingRequest(t, models.PaymentMethodClinic))
	rej, ok := AsRejection(err)
	require.True(t, ok, "expected a rejection, got %v", err)
	assert.Equal(t, ReasonSlotTaken, rej.Reason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitialPaymentStatus(t *testing.T) {
	assert.Equal(t, models.PaymentUnpaid, InitialPaymentStatus(models.PaymentMethodClinic))
	assert.Equal(t, models.PaymentPending, InitialPaymentStatus(models.PaymentMethodGCash))
	assert.Equal(t, models.PaymentPending, InitialPaymentStatus(models.PaymentMethodPayPal))
}
