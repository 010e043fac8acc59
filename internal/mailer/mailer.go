package mailer

import (
	"fmt"
	"log"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"clinic-booking-server/internal/models"
)

// Mailer sends transactional email through SendGrid. All appointment email
// is best-effort: callers log and continue when a send fails, so none of
// the methods here should ever sit on a request's critical path.
type Mailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

// New creates a Mailer. An empty API key yields a disabled mailer whose
// sends are skipped with a log line, which keeps local development working
// without credentials.
func New(apiKey, fromEmail, fromName string) *Mailer {
	m := &Mailer{fromEmail: fromEmail, fromName: fromName}
	if m.fromName == "" {
		m.fromName = "Clinic Booking"
	}
	if apiKey != "" {
		m.client = sendgrid.NewSendClient(apiKey)
	}
	return m
}

func (m *Mailer) send(toName, toEmail, subject, body string) error {
	if m.client == nil {
		log.Printf("mailer disabled, skipping %q to %s", subject, toEmail)
		return nil
	}
	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, body, body)

	response, err := m.client.Send(message)
	if err != nil {
		return fmt.Errorf("mailer: send failed: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("mailer: sendgrid status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

// SendWelcome greets a newly registered user.
func (m *Mailer) SendWelcome(user *models.User) error {
	body := fmt.Sprintf("Hi %s,\n\nYour clinic account is ready. You can now book appointments online.\n", user.FirstName)
	return m.send(user.FullName(), user.Email, "Welcome to the clinic", body)
}

// SendAppointmentConfirmed notifies the patient their booking was confirmed.
func (m *Mailer) SendAppointmentConfirmed(user *models.User, appointment *models.Appointment) error {
	body := fmt.Sprintf("Hi %s,\n\nYour appointment on %s at %s has been confirmed. See you at the clinic!\n",
		user.FirstName, appointment.DateString(), appointment.TimeSlot)
	return m.send(user.FullName(), user.Email, "Appointment confirmed", body)
}

// SendAppointmentDeclined notifies the patient their booking was declined.
func (m *Mailer) SendAppointmentDeclined(user *models.User, appointment *models.Appointment) error {
	body := fmt.Sprintf("Hi %s,\n\nUnfortunately your appointment on %s at %s was declined.\n\nReason: %s\n",
		user.FirstName, appointment.DateString(), appointment.TimeSlot, appointment.DeclineMessage)
	return m.send(user.FullName(), user.Email, "Appointment declined", body)
}

// SendPaymentReceipt confirms a captured payment.
func (m *Mailer) SendPaymentReceipt(user *models.User, appointment *models.Appointment) error {
	ref := "paid at clinic"
	if appointment.PaymentRef != nil {
		ref = *appointment.PaymentRef
	}
	body := fmt.Sprintf("Hi %s,\n\nWe received your payment for the appointment on %s at %s.\nReference: %s\n",
		user.FirstName, appointment.DateString(), appointment.TimeSlot, ref)
	return m.send(user.FullName(), user.Email, "Payment received", body)
}

// SendReminder reminds the patient about tomorrow's appointment.
func (m *Mailer) SendReminder(user *models.User, appointment *models.Appointment) error {
	body := fmt.Sprintf("Hi %s,\n\nA reminder that you have an appointment tomorrow, %s at %s.\n",
		user.FirstName, appointment.DateString(), appointment.TimeSlot)
	return m.send(user.FullName(), user.Email, "Appointment reminder", body)
}
