package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"dental-clinic-server/internal/appointments"
	"dental-clinic-server/internal/config"
	"dental-clinic-server/internal/contacts"
	"dental-clinic-server/internal/handlers"
	"dental-clinic-server/internal/metrics"
	"dental-clinic-server/internal/middleware"
	"dental-clinic-server/internal/models"
	"dental-clinic-server/internal/reports"
	"dental-clinic-server/internal/uploads"
)

// Services are the collaborators the handlers are built from.
type Services struct {
	DB           *gorm.DB
	Appointments *appointments.Service
	Reports      *reports.Service
	Contacts     *contacts.Service
	Uploader     *uploads.Uploader
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// NewRouter builds the engine with the global middleware stack and every route.
func NewRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(svc.Logger),
		middleware.Logger(svc.Logger),
		middleware.Metrics(svc.Metrics),
	)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, cfg, svc)
	return router
}

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, cfg *config.Config, svc Services) {
	authHandler := handlers.NewAuthHandler(svc.DB, cfg, svc.Metrics, svc.Logger)
	adminHandler := handlers.NewAdminHandler(svc.DB)
	appointmentHandler := handlers.NewAppointmentHandler(svc.Appointments)
	reportHandler := handlers.NewReportHandler(svc.Reports, svc.Uploader)
	messageHandler := handlers.NewMessageHandler(svc.Contacts)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		public.POST("/appointments", appointmentHandler.CreateAppointment)
		public.GET("/appointments/:ref", appointmentHandler.GetAppointment)
		public.GET("/reports/:code", reportHandler.GetReport)
		public.POST("/contact", messageHandler.SubmitContact)

		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg), middleware.RoleAuthMiddleware(models.RoleAdmin))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/verify", authHandler.Verify)
			authRoutesPrivate.POST("/update-password", authHandler.UpdatePassword)
		}

		admin := private.Group("/admin")

		appointmentRoutes := admin.Group("/appointments")
		{
			appointmentRoutes.GET("", appointmentHandler.ListAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)
			appointmentRoutes.GET("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.POST("/:id/reminder", appointmentHandler.SendReminder)
		}

		reportRoutes := admin.Group("/reports")
		{
			reportRoutes.POST("", reportHandler.CreateReport)
			reportRoutes.POST("/documents", reportHandler.UploadDocument)
		}

		messageRoutes := admin.Group("/messages")
		{
			messageRoutes.GET("", messageHandler.ListMessages)
			messageRoutes.PATCH("/:id/read", messageHandler.MarkMessageAsRead)
			messageRoutes.DELETE("/:id", messageHandler.DeleteMessage)
		}

		userRoutes := admin.Group("/users")
		{
			userRoutes.POST("", adminHandler.CreateAdmin)
			userRoutes.GET("", adminHandler.ListAdmins)
			userRoutes.DELETE("/:id", adminHandler.DeleteAdmin)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})
	router.GET("/metrics", gin.WrapH(svc.Metrics.Handler()))
}
