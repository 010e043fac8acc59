package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/mailer"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/utils"
)

// AppointmentHandler handles appointment booking and lifecycle requests.
type AppointmentHandler struct {
	DB        *gorm.DB
	Policy    *booking.Policy
	Lifecycle *booking.Lifecycle
	Ledger    *booking.Ledger
	Mailer    *mailer.Mailer
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, m *mailer.Mailer) *AppointmentHandler {
	return &AppointmentHandler{
		DB:        db,
		Policy:    booking.NewPolicy(db),
		Lifecycle: booking.NewLifecycle(db),
		Ledger:    booking.NewLedger(db),
		Mailer:    m,
	}
}

// respondBookingError maps core booking errors onto the response envelope.
func respondBookingError(c *gin.Context, err error) {
	if rej, ok := booking.AsRejection(err); ok {
		if rej.Reason == booking.ReasonSlotTaken {
			utils.Conflict(c, rej.Message)
		} else {
			utils.UnprocessableEntity(c, rej.Message)
		}
		return
	}
	if inv, ok := booking.AsInvalidTransition(err); ok {
		utils.Conflict(c, inv.Error())
		return
	}
	if errors.Is(err, booking.ErrNotFound) {
		utils.NotFound(c, "Appointment not found")
		return
	}
	if errors.Is(err, booking.ErrForbidden) {
		utils.Forbidden(c, "You are not allowed to act on this appointment")
		return
	}
	utils.InternalServerError(c, err.Error())
}

// CreateAppointmentRequest represents the request body for booking an appointment.
type CreateAppointmentRequest struct {
	DoctorID        string `json:"doctorId" binding:"required,uuid"`
	ServiceID       string `json:"serviceId" binding:"required,uuid"`
	AppointmentDate string `json:"appointmentDate" binding:"required"`
	AppointmentTime string `json:"appointmentTime" binding:"required"`
	PaymentMethod   string `json:"paymentMethod" binding:"required,oneof=clinic gcash paypal"`
	Notes           string `json:"notes"`
}

// CreateAppointment books a slot for the authenticated patient.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	date, err := booking.ParseDate(req.AppointmentDate)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}
	if booking.IsPastDate(date, time.Now()) {
		utils.BadRequest(c, "Appointment date must not be in the past.")
		return
	}
	if !booking.IsValidSlot(req.AppointmentTime) {
		utils.BadRequest(c, "Unknown time slot. Choose one of the clinic's slots.")
		return
	}

	// Verify doctor exists and is a doctor
	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}
	// Verify service exists and is bookable
	var service models.Service
	if err := h.DB.Where("id = ? AND is_active = ?", req.ServiceID, true).First(&service).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Service not found or not bookable")
		} else {
			utils.InternalServerError(c, "Database error verifying service: "+err.Error())
		}
		return
	}

	appointment, err := h.Policy.Admit(booking.Request{
		UserID:        userID,
		DoctorID:      req.DoctorID,
		ServiceID:     req.ServiceID,
		Date:          date,
		TimeSlot:      req.AppointmentTime,
		PaymentMethod: models.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	})
	if err != nil {
		respondBookingError(c, err)
		return
	}

	utils.Created(c, "Appointment booked successfully", appointment)
}

// GetBookedSlots returns the taken time slots for a doctor on a date, so
// the booking form can grey them out.
func (h *AppointmentHandler) GetBookedSlots(c *gin.Context) {
	doctorID := c.Query("doctorId")
	dateStr := c.Query("date")
	if doctorID == "" || dateStr == "" {
		utils.BadRequest(c, "doctorId and date query parameters are required")
		return
	}
	date, err := booking.ParseDate(dateStr)
	if err != nil {
		utils.BadRequest(c, err.Error())
		return
	}

	slots, err := h.Ledger.BookedSlots(doctorID, date)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch booked slots: "+err.Error())
		return
	}

	utils.Success(c, "Booked slots fetched successfully", gin.H{
		"doctorId":    doctorID,
		"date":        dateStr,
		"bookedSlots": slots,
		"allSlots":    booking.ClinicSlots,
	})
}

// GetAppointmentsForUser fetches appointments for the logged-in user:
// patients see their own, doctors their schedule, admins everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, role, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	var appointments []models.Appointment
	query := h.DB.Preload("Patient").Preload("Doctor").Preload("Service").
		Order("appointment_date asc, time_slot asc")

	var err error
	switch role {
	case models.RoleUser:
		err = query.Where("user_id = ?", userID).Find(&appointments).Error
	case models.RoleDoctor:
		err = query.Where("doctor_id = ?", userID).Find(&appointments).Error
	case models.RoleAdmin:
		err = query.Find(&appointments).Error
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}

	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}

	utils.Success(c, "Appointments fetched successfully", appointments)
}

// GetAppointmentByID fetches a single appointment. Accessible by the
// involved patient, the involved doctor, or an admin.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.Preload("Patient").Preload("Doctor").Preload("Service").
		First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, role, _ := middleware.ActorFromContext(c)
	if role != models.RoleAdmin && userID != appointment.UserID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this appointment")
		return
	}

	utils.Success(c, "Appointment fetched successfully", appointment)
}

// UpdateStatusRequest represents the request body for a status transition.
type UpdateStatusRequest struct {
	Status  string `json:"status" binding:"required,oneof=confirmed declined completed"`
	Message string `json:"message"` // required when declining
}

// UpdateAppointmentStatus drives the scheduling state machine: confirm and
// decline by staff or the owning doctor, complete by admins. Cancellation
// has its own endpoint.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, role, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	actor := booking.Actor{ID: userID, Role: role}

	var appointment *models.Appointment
	var err error
	switch models.AppointmentStatus(req.Status) {
	case models.StatusConfirmed:
		appointment, err = h.Lifecycle.Confirm(appointmentID, actor)
	case models.StatusDeclined:
		appointment, err = h.Lifecycle.Decline(appointmentID, actor, req.Message)
	case models.StatusCompleted:
		appointment, err = h.Lifecycle.Complete(appointmentID, actor)
	}
	if err != nil {
		respondBookingError(c, err)
		return
	}

	h.notifyStatusChange(appointment)

	utils.Success(c, "Appointment status updated successfully", appointment)
}

// notifyStatusChange records a notification row and emails the patient.
// Both are best-effort side channels.
func (h *AppointmentHandler) notifyStatusChange(appointment *models.Appointment) {
	var patient models.User
	if err := h.DB.First(&patient, "id = ?", appointment.UserID).Error; err != nil {
		log.Println("status notification: load patient:", err)
		return
	}

	switch appointment.Status {
	case models.StatusConfirmed:
		recordNotification(h.DB, patient.ID, appointment.ID, models.NotificationAppointmentConfirmed,
			"Appointment confirmed",
			"Your appointment on "+appointment.DateString()+" at "+appointment.TimeSlot+" has been confirmed.")
		if err := h.Mailer.SendAppointmentConfirmed(&patient, appointment); err != nil {
			log.Println("status notification: email:", err)
		}
	case models.StatusDeclined:
		recordNotification(h.DB, patient.ID, appointment.ID, models.NotificationAppointmentDeclined,
			"Appointment declined", appointment.DeclineMessage)
		if err := h.Mailer.SendAppointmentDeclined(&patient, appointment); err != nil {
			log.Println("status notification: email:", err)
		}
	}
}

// CancelAppointment cancels an appointment: the owning patient may cancel
// their own, admins may cancel any. The slot is released; payment state is
// left for a separate refund decision.
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	userID, role, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	appointment, err := h.Lifecycle.Cancel(appointmentID, booking.Actor{ID: userID, Role: role})
	if err != nil {
		respondBookingError(c, err)
		return
	}

	recordNotification(h.DB, appointment.UserID, appointment.ID, models.NotificationAppointmentCancelled,
		"Appointment cancelled",
		"Your appointment on "+appointment.DateString()+" at "+appointment.TimeSlot+" was cancelled.")

	utils.Success(c, "Appointment cancelled successfully", appointment)
}

// UpdatePaymentStatusRequest represents a staff-side settlement action.
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"paymentStatus" binding:"required,oneof=paid refunded"`
}

// UpdatePaymentStatus lets staff settle payments manually: mark an
// appointment paid (cash taken at the clinic, no provider reference) or
// refund a paid one. Provider-driven transitions come through the payment
// webhooks instead.
func (h *AppointmentHandler) UpdatePaymentStatus(c *gin.Context) {
	appointmentID := c.Param("id")

	var req UpdatePaymentStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, role, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	actor := booking.Actor{ID: userID, Role: role}

	var appointment *models.Appointment
	var err error
	switch models.PaymentStatus(req.PaymentStatus) {
	case models.PaymentPaid:
		if role != models.RoleAdmin {
			utils.Forbidden(c, "Only staff can mark appointments as paid")
			return
		}
		appointment, err = h.Lifecycle.MarkPaid(appointmentID, nil)
	case models.PaymentRefunded:
		appointment, err = h.Lifecycle.Refund(appointmentID, actor)
	}
	if err != nil {
		respondBookingError(c, err)
		return
	}

	if appointment.PaymentStatus == models.PaymentRefunded {
		recordNotification(h.DB, appointment.UserID, appointment.ID, models.NotificationPaymentRefunded,
			"Payment refunded",
			"Your payment for the appointment on "+appointment.DateString()+" has been refunded.")
	}

	utils.Success(c, "Payment status updated successfully", appointment)
}

// ClearHistory deletes the authenticated user's settled-out bookings.
// Only pending, cancelled and declined rows may be cleared; confirmed and
// completed appointments are clinic records and stay.
func (h *AppointmentHandler) ClearHistory(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	result := h.DB.Where("user_id = ? AND status IN ?", userID, []models.AppointmentStatus{
		models.StatusPending, models.StatusCancelled, models.StatusDeclined,
	}).Delete(&models.Appointment{})
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to clear history: "+result.Error.Error())
		return
	}

	utils.Success(c, "Appointment history cleared", gin.H{"deleted": result.RowsAffected})
}

// DeleteAppointment removes an appointment entirely. Admin only.
func (h *AppointmentHandler) DeleteAppointment(c *gin.Context) {
	appointmentID := c.Param("id")

	var appointment models.Appointment
	if err := h.DB.First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if err := h.DB.Delete(&appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to delete appointment: "+err.Error())
		return
	}

	utils.Success(c, "Appointment deleted successfully", nil)
}
