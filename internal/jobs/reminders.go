package jobs

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"clinic-booking-server/internal/mailer"
	"clinic-booking-server/internal/models"
)

// ReminderJob emails patients about tomorrow's confirmed appointments.
type ReminderJob struct {
	DB     *gorm.DB
	Mailer *mailer.Mailer
}

// StartDailyScheduler registers the reminder job with cron and starts it.
// Runs every day at 07:00 clinic time.
func StartDailyScheduler(db *gorm.DB, m *mailer.Mailer) *cron.Cron {
	job := &ReminderJob{DB: db, Mailer: m}
	c := cron.New()
	if _, err := c.AddFunc("0 7 * * *", func() {
		log.Println("Running daily appointment reminder job...")
		job.Run()
	}); err != nil {
		log.Printf("reminder scheduler: failed to register job, reminders disabled: %v", err)
	}
	c.Start()
	return c
}

// Run sends a reminder for every confirmed appointment happening tomorrow.
// Email is best-effort: a failed send is logged and the loop continues.
func (j *ReminderJob) Run() {
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	var appointments []models.Appointment
	err := j.DB.Preload("Patient").
		Where("appointment_date = ? AND status = ?", tomorrow, models.StatusConfirmed).
		Find(&appointments).Error
	if err != nil {
		log.Println("reminder job: fetch appointments:", err)
		return
	}

	for i := range appointments {
		appointment := &appointments[i]
		if err := j.Mailer.SendReminder(&appointment.Patient, appointment); err != nil {
			log.Printf("reminder job: send to %s: %v", appointment.Patient.Email, err)
		}
	}
	log.Printf("reminder job: processed %d appointments for %s", len(appointments), tomorrow)
}
