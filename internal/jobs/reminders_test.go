package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clinic-booking-server/internal/mailer"
)

func TestStartDailySchedulerRegistersReminderJob(t *testing.T) {
	scheduler := StartDailyScheduler(nil, mailer.New("", "noreply@clinic.local", ""))
	defer scheduler.Stop()

	assert.Len(t, scheduler.Entries(), 1)
}
