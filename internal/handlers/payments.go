package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/booking"
	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/mailer"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/payments"
	"clinic-booking-server/internal/utils"
)

// PaymentHandler wires the payment providers to the appointment lifecycle.
type PaymentHandler struct {
	DB         *gorm.DB
	Cfg        *config.Config
	PayMongo   *payments.PayMongoClient
	PayPal     *payments.PayPalClient
	Settlement *payments.Settlement
	Mailer     *mailer.Mailer
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(db *gorm.DB, cfg *config.Config, m *mailer.Mailer) *PaymentHandler {
	return &PaymentHandler{
		DB:         db,
		Cfg:        cfg,
		PayMongo:   payments.NewPayMongoClient(cfg.PayMongo.SecretKey),
		PayPal:     payments.NewPayPalClient(cfg.PayPal.ClientID, cfg.PayPal.Secret).WithBaseURL(cfg.PayPal.BaseURL),
		Settlement: payments.NewSettlement(booking.NewLifecycle(db)),
		Mailer:     m,
	}
}

// loadOwnedAppointment fetches an appointment and checks the caller owns
// it and that it uses the expected provider method with settlement still
// open.
func (h *PaymentHandler) loadOwnedAppointment(c *gin.Context, appointmentID string, method models.PaymentMethod) (*models.Appointment, bool) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return nil, false
	}

	var appointment models.Appointment
	if err := h.DB.Preload("Service").First(&appointment, "id = ?", appointmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}
	if appointment.UserID != userID {
		utils.Forbidden(c, "You can only pay for your own appointments")
		return nil, false
	}
	if appointment.PaymentMethod != method {
		utils.BadRequest(c, fmt.Sprintf("This appointment is set to pay via %s", appointment.PaymentMethod))
		return nil, false
	}
	if appointment.PaymentStatus != models.PaymentPending && appointment.PaymentStatus != models.PaymentFailed {
		utils.Conflict(c, "This appointment's payment is already settled")
		return nil, false
	}
	return &appointment, true
}

// CheckoutRequest identifies the appointment being paid for.
type CheckoutRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
}

// GCashCheckout creates a PayMongo gcash source for the appointment and
// returns the checkout URL the patient is redirected to. The source id is
// stashed as the payment reference so the webhook can find the row.
func (h *PaymentHandler) GCashCheckout(c *gin.Context) {
	var req CheckoutRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, ok := h.loadOwnedAppointment(c, req.AppointmentID, models.PaymentMethodGCash)
	if !ok {
		return
	}

	amountCentavos := payments.Centavos(appointment.Service.Price)
	description := fmt.Sprintf("%s on %s %s", appointment.Service.Name, appointment.DateString(), appointment.TimeSlot)
	successURL := h.Cfg.AppURL + "/payments/gcash/success"
	failedURL := h.Cfg.AppURL + "/payments/gcash/failed"

	source, err := h.PayMongo.CreateGCashSource(c.Request.Context(), amountCentavos, description, successURL, failedURL)
	if err != nil {
		log.Println("gcash checkout:", err)
		utils.InternalServerError(c, "Failed to start GCash payment")
		return
	}

	appointment.PaymentRef = &source.ID
	if err := h.DB.Save(appointment).Error; err != nil {
		utils.InternalServerError(c, "Failed to record payment source: "+err.Error())
		return
	}

	utils.Success(c, "GCash checkout created", gin.H{
		"appointmentId": appointment.ID,
		"sourceId":      source.ID,
		"checkoutUrl":   source.CheckoutURL,
	})
}

// PayMongoWebhook receives PayMongo events. source.chargeable captures the
// source into a payment and settles the appointment; payment.failed marks
// the attempt failed. Unknown events are acknowledged and ignored so
// PayMongo stops retrying them.
func (h *PaymentHandler) PayMongoWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.BadRequest(c, "Unreadable webhook body")
		return
	}

	// Anyone can reach this route, so events must prove they came from
	// PayMongo before they get to move money state.
	if secret := h.Cfg.PayMongo.WebhookSecret; secret != "" {
		if err := payments.VerifyWebhookSignature(body, c.GetHeader("Paymongo-Signature"), secret); err != nil {
			log.Println("paymongo webhook:", err)
			utils.Unauthorized(c, "Invalid webhook signature")
			return
		}
	} else {
		log.Println("paymongo webhook: PAYMONGO_WEBHOOK_SECRET not set, accepting unsigned event")
	}

	event, err := payments.ParseWebhookEvent(body)
	if err != nil {
		utils.BadRequest(c, "Malformed webhook payload")
		return
	}

	if event.SourceID == "" {
		utils.Success(c, "Event ignored", nil)
		return
	}

	var appointment models.Appointment
	if err := h.DB.Preload("Service").First(&appointment, "payment_ref = ?", event.SourceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not one of ours; acknowledge so the provider stops retrying.
			log.Println("paymongo webhook: no appointment for source", event.SourceID)
			utils.Success(c, "Event ignored", nil)
			return
		}
		utils.InternalServerError(c, "Database error: "+err.Error())
		return
	}

	switch event.Type {
	case "source.chargeable":
		paymentID, err := h.PayMongo.CreatePayment(c.Request.Context(), event.SourceID, event.Amount, appointment.Service.Name)
		if err != nil {
			log.Println("paymongo webhook: create payment:", err)
			utils.InternalServerError(c, "Failed to capture payment")
			return
		}
		h.settle(c, appointment.ID, payments.OutcomeCaptured, paymentID)
	case "payment.failed", "source.cancelled", "source.expired":
		h.settle(c, appointment.ID, payments.OutcomeFailed, "")
	default:
		utils.Success(c, "Event ignored", nil)
	}
}

// PayPalOrderRequest identifies the appointment a PayPal order is for.
type PayPalOrderRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
}

// PayPalCreateOrder creates a PayPal order for the appointment's service
// price and returns the approval URL.
func (h *PaymentHandler) PayPalCreateOrder(c *gin.Context) {
	var req PayPalOrderRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, ok := h.loadOwnedAppointment(c, req.AppointmentID, models.PaymentMethodPayPal)
	if !ok {
		return
	}

	amount := fmt.Sprintf("%.2f", appointment.Service.Price)
	order, err := h.PayPal.CreateOrder(c.Request.Context(), appointment.ID, amount, "PHP")
	if err != nil {
		log.Println("paypal create order:", err)
		utils.InternalServerError(c, "Failed to create PayPal order")
		return
	}

	utils.Success(c, "PayPal order created", gin.H{
		"appointmentId": appointment.ID,
		"orderId":       order.ID,
		"approveUrl":    order.ApproveURL,
	})
}

// PayPalCaptureRequest carries the approved order back for capture.
type PayPalCaptureRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required,uuid"`
	OrderID       string `json:"orderId" binding:"required"`
}

// PayPalCaptureOrder captures an approved PayPal order and settles the
// appointment with the capture id as reference.
func (h *PaymentHandler) PayPalCaptureOrder(c *gin.Context) {
	var req PayPalCaptureRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, ok := h.loadOwnedAppointment(c, req.AppointmentID, models.PaymentMethodPayPal)
	if !ok {
		return
	}

	result, err := h.PayPal.CaptureOrder(c.Request.Context(), req.OrderID)
	if err != nil {
		log.Println("paypal capture:", err)
		utils.InternalServerError(c, "Failed to capture PayPal order")
		return
	}

	if result.Completed {
		h.settle(c, appointment.ID, payments.OutcomeCaptured, result.CaptureID)
	} else {
		h.settle(c, appointment.ID, payments.OutcomeFailed, "")
	}
}

// settle applies a provider outcome to the appointment and responds. On
// capture it also writes the notification row and emails a receipt.
func (h *PaymentHandler) settle(c *gin.Context, appointmentID string, outcome payments.Outcome, providerRef string) {
	appointment, err := h.Settlement.Apply(appointmentID, outcome, providerRef)
	if err != nil {
		respondBookingError(c, err)
		return
	}

	switch outcome {
	case payments.OutcomeCaptured:
		recordNotification(h.DB, appointment.UserID, appointment.ID, models.NotificationPaymentCaptured,
			"Payment received",
			"Your payment for the appointment on "+appointment.DateString()+" was received.")
		var patient models.User
		if err := h.DB.First(&patient, "id = ?", appointment.UserID).Error; err == nil {
			if err := h.Mailer.SendPaymentReceipt(&patient, appointment); err != nil {
				log.Println("payment receipt email:", err)
			}
		}
	case payments.OutcomeFailed:
		recordNotification(h.DB, appointment.UserID, appointment.ID, models.NotificationPaymentFailed,
			"Payment failed",
			"Your payment attempt for the appointment on "+appointment.DateString()+" did not go through.")
	}

	utils.Success(c, "Payment settled", appointment)
}
