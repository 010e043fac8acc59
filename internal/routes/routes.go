package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-booking-server/internal/config"
	"clinic-booking-server/internal/handlers"
	"clinic-booking-server/internal/mailer"
	"clinic-booking-server/internal/middleware"
	"clinic-booking-server/internal/models"
	"clinic-booking-server/internal/session"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, tabs *session.TabStore, m *mailer.Mailer) {
	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db, cfg, tabs, m)
	userHandler := handlers.NewUserHandler(db)
	serviceHandler := handlers.NewServiceHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, m)
	paymentHandler := handlers.NewPaymentHandler(db, cfg, m)
	notificationHandler := handlers.NewNotificationHandler(db)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Provider callbacks arrive without a bearer token.
		public.POST("/payments/paymongo/webhook", paymentHandler.PayMongoWebhook)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg, tabs))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management routes (typically admin-only)
		userRoutes := private.Group("/users")
		{
			// Accessible by all authenticated users for booking
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Accessible by doctors and admins
			userRoutes.GET("/doctor-patients", userHandler.GetDoctorPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		// Service catalog routes
		serviceRoutes := private.Group("/services")
		{
			serviceRoutes.GET("", serviceHandler.GetServices)
			serviceRoutes.GET("/:id", serviceHandler.GetServiceByID)

			serviceAdmin := serviceRoutes.Group("")
			serviceAdmin.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				serviceAdmin.POST("", serviceHandler.CreateService)
				serviceAdmin.PUT("/:id", serviceHandler.UpdateService)
				serviceAdmin.DELETE("/:id", serviceHandler.DeleteService)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RoleUser), appointmentHandler.CreateAppointment)

			// Slot availability for a doctor and date
			appointmentRoutes.GET("/booked-slots", appointmentHandler.GetBookedSlots)

			// Logic inside handler differentiates by role
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)

			// Patients prune their own settled history
			appointmentRoutes.DELETE("/history", middleware.RoleAuthMiddleware(models.RoleUser), appointmentHandler.ClearHistory)

			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)

			// Confirm, decline, complete (staff; authorization inside handler)
			appointmentRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), appointmentHandler.UpdateAppointmentStatus)

			// Owner or admin; authorization inside handler
			appointmentRoutes.PATCH("/:id/cancel", appointmentHandler.CancelAppointment)

			// Manual settlement and refunds (admin; authorization inside handler)
			appointmentRoutes.PATCH("/:id/payment", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.UpdatePaymentStatus)

			appointmentRoutes.DELETE("/:id", middleware.RoleAuthMiddleware(models.RoleAdmin), appointmentHandler.DeleteAppointment)
		}

		// Online payment routes (patients settle their own appointments)
		paymentRoutes := private.Group("/payments")
		paymentRoutes.Use(middleware.RoleAuthMiddleware(models.RoleUser))
		{
			paymentRoutes.POST("/gcash/checkout", paymentHandler.GCashCheckout)
			paymentRoutes.POST("/paypal/order", paymentHandler.PayPalCreateOrder)
			paymentRoutes.POST("/paypal/capture", paymentHandler.PayPalCaptureOrder)
		}

		// Notification routes
		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotificationsForUser)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkNotificationAsRead)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
