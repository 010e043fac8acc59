package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsValidSlot(t *testing.T) {
	for _, s := range ClinicSlots {
		assert.True(t, IsValidSlot(s))
	}
	assert.False(t, IsValidSlot("12:00 PM")) // lunch break
	assert.False(t, IsValidSlot("10:00"))
	assert.False(t, IsValidSlot(""))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-06-01")
	assert.NoError(t, err)
	assert.Equal(t, "2025-06-01", d.Format("2006-01-02"))

	_, err = ParseDate("06/01/2025")
	assert.Error(t, err)
}

func TestIsPastDateUsesLocalCalendarDay(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	// Early morning June 1 in Manila is still May 31 in UTC; yesterday
	// must stay rejected and today bookable regardless.
	now := time.Date(2025, 6, 1, 7, 0, 0, 0, manila)

	assert.True(t, IsPastDate(mustDate(t, "2025-05-31"), now))
	assert.False(t, IsPastDate(mustDate(t, "2025-06-01"), now))
	assert.False(t, IsPastDate(mustDate(t, "2025-06-02"), now))
}

func TestIsPastDateLateEvening(t *testing.T) {
	manila := time.FixedZone("PHT", 8*60*60)
	now := time.Date(2025, 6, 1, 23, 30, 0, 0, manila)

	assert.False(t, IsPastDate(mustDate(t, "2025-06-01"), now))
	assert.True(t, IsPastDate(mustDate(t, "2025-05-31"), now))
}
