package booking

import (
	"fmt"
	"time"
)

// ClinicSlots is the fixed set of bookable time slots per day. The clinic
// runs hourly visits with a lunch break at noon.
var ClinicSlots = []string{
	"09:00 AM",
	"10:00 AM",
	"11:00 AM",
	"01:00 PM",
	"02:00 PM",
	"03:00 PM",
	"04:00 PM",
}

// IsValidSlot reports whether slot is one of the clinic's bookable slots.
func IsValidSlot(slot string) bool {
	for _, s := range ClinicSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// ParseDate parses a YYYY-MM-DD calendar date as sent by clients.
func ParseDate(value string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// IsPastDate reports whether date falls before now's calendar day. Dates
// from ParseDate sit at UTC midnight, so today is taken from now's local
// calendar and pinned to UTC before comparing; truncating now itself would
// use the UTC day boundary and drift around midnight in non-UTC zones.
func IsPastDate(date, now time.Time) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return date.Before(today)
}
