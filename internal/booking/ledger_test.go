package booking

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// newMockDB wires gorm over a sqlmock connection so ledger and lifecycle
// logic can be exercised without a live MySQL.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)
	return db, mock
}

func mustDate(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value)
	require.NoError(t, err)
	return d
}

func TestBookedSlotsExcludesCancelled(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewLedger(db)

	mock.ExpectQuery("SELECT `time_slot` FROM `appointments`").
		WithArgs("doc-1", "2025-06-01", "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"time_slot"}).
			AddRow("10:00 AM").
			AddRow("02:00 PM"))

	slots, err := ledger.BookedSlots("doc-1", mustDate(t, "2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM", "02:00 PM"}, slots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByUserAndDate(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewLedger(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WithArgs("user-1", "2025-06-01", "cancelled").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(4))

	count, err := ledger.CountByUserAndDate("user-1", mustDate(t, "2025-06-01"))
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountActiveByDateExcludesCancelledAndDeclined(t *testing.T) {
	db, mock := newMockDB(t)
	ledger := NewLedger(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `appointments`").
		WithArgs("2025-06-01", "cancelled", "declined").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(5))

	count, err := ledger.CountActiveByDate(mustDate(t, "2025-06-01"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
