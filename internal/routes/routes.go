package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/clinic-api/internal/audit"
	"github.com/BruksfildServices01/clinic-api/internal/authz"
	"github.com/BruksfildServices01/clinic-api/internal/cache"
	"github.com/BruksfildServices01/clinic-api/internal/config"
	"github.com/BruksfildServices01/clinic-api/internal/handlers"
	infraRepo "github.com/BruksfildServices01/clinic-api/internal/infra/repository"
	"github.com/BruksfildServices01/clinic-api/internal/middleware"
	"github.com/BruksfildServices01/clinic-api/internal/payment"
	"github.com/BruksfildServices01/clinic-api/internal/storage"
	ucAppointment "github.com/BruksfildServices01/clinic-api/internal/usecase/appointment"
	ucConsultation "github.com/BruksfildServices01/clinic-api/internal/usecase/consultation"
	ucInvoice "github.com/BruksfildServices01/clinic-api/internal/usecase/invoice"
	ucPayment "github.com/BruksfildServices01/clinic-api/internal/usecase/payment"
)

// Deps are the process singletons the route table wires into handlers.
// Gateway and Storage may be nil when the feature is not configured.
type Deps struct {
	DB      *gorm.DB
	Config  *config.Config
	Log     zerolog.Logger
	Cache   cache.Store
	Audit   *audit.Dispatcher
	Policy  *authz.Policy
	Issuer  *authz.Issuer
	Gateway payment.Gateway
	Storage storage.Store
	Settler *ucPayment.Settler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	cfg := d.Config

	// ======================================================
	// GLOBAL MIDDLEWARE
	// ======================================================
	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.AccessLog(d.Log),
		middleware.CORSMiddleware(cfg.CORSOrigins),
		gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/prescriptions", "/api/reports"})),
	)

	// ======================================================
	// INFRA
	// ======================================================
	appointmentRepo := infraRepo.NewAppointmentGormRepository(d.DB)
	consultationRepo := infraRepo.NewConsultationGormRepository(d.DB)
	invoiceRepo := infraRepo.NewInvoiceGormRepository(d.DB)

	// ======================================================
	// USE CASES
	// ======================================================
	createAppointmentUC := ucAppointment.NewCreateAppointment(appointmentRepo, d.Policy, d.Audit)
	getAppointmentUC := ucAppointment.NewGetAppointment(appointmentRepo, d.Policy)
	updateAppointmentUC := ucAppointment.NewUpdateAppointment(appointmentRepo, d.Policy, d.Audit)
	deleteAppointmentUC := ucAppointment.NewDeleteAppointment(appointmentRepo, d.Policy, d.Audit)
	listAppointmentsUC := ucAppointment.NewListAppointments(appointmentRepo, d.Policy)
	availabilityUC := ucAppointment.NewGetAvailability(appointmentRepo, d.Policy)

	completeUC := ucConsultation.NewComplete(consultationRepo, d.Policy, d.Audit, d.Log, ucConsultation.InvoiceOptions{
		FallbackFee: cfg.DefaultConsultationFee,
		DedupWindow: cfg.InvoiceDedupWindow,
	})
	getConsultationUC := ucConsultation.NewGetConsultation(consultationRepo, d.Policy)
	listConsultationsUC := ucConsultation.NewListConsultations(consultationRepo, d.Policy)

	invoices := ucInvoice.NewInvoices(invoiceRepo, d.Policy, d.Cache, d.Audit)
	checkoutUC := ucPayment.NewInitiateCheckout(invoiceRepo, d.Gateway, d.Cache, d.Policy, d.Audit, d.Log, ucPayment.CheckoutOptions{
		Currency:   cfg.Currency,
		SuccessURL: cfg.PaymentSuccessURL,
		CancelURL:  cfg.PaymentCancelURL,
		LockTTL:    cfg.CheckoutLockTTL,
	})

	settler := d.Settler
	if settler == nil {
		settler = ucPayment.NewSettler(invoiceRepo, d.Gateway, d.Cache, d.Policy, d.Audit, d.Log)
	}

	// ======================================================
	// HANDLERS
	// ======================================================
	authHandler := handlers.NewAuthHandler(d.DB, d.Issuer, d.Cache, d.Audit, d.Log, cfg.CheckEmailMX)
	meHandler := handlers.NewMeHandler(d.DB, d.Log)
	clinicHandler := handlers.NewClinicHandler(d.DB, d.Policy, d.Audit, d.Storage, d.Log)
	userHandler := handlers.NewUserHandler(d.DB, d.Policy, d.Audit, d.Log)
	doctorHandler := handlers.NewDoctorHandler(d.DB, d.Policy, d.Audit, d.Log)
	patientHandler := handlers.NewPatientHandler(d.DB, d.Policy, d.Audit, d.Log)
	serviceHandler := handlers.NewServiceHandler(d.DB, d.Policy, d.Audit, d.Log)
	workingHoursHandler := handlers.NewWorkingHoursHandler(d.DB, d.Policy, d.Audit, availabilityUC, d.Log)

	appointmentHandler := handlers.NewAppointmentHandler(
		createAppointmentUC,
		getAppointmentUC,
		updateAppointmentUC,
		deleteAppointmentUC,
		listAppointmentsUC,
		d.Log,
	)
	consultationHandler := handlers.NewConsultationHandler(completeUC, getConsultationUC, listConsultationsUC, d.Log)
	prescriptionHandler := handlers.NewPrescriptionHandler(d.DB, d.Policy, d.Audit, d.Storage, d.Log)
	invoiceHandler := handlers.NewInvoiceHandler(d.DB, invoices, checkoutUC, d.Log)
	paymentHandler := handlers.NewPaymentHandler(d.Gateway, settler, d.Log)
	reportHandler := handlers.NewReportHandler(d.DB, d.Policy, d.Log)
	auditLogsHandler := handlers.NewAuditLogsHandler(d.DB, d.Policy, d.Log)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ======================================================
	// API (JSON)
	// ======================================================
	api := r.Group("/api")
	{
		// ------------------------------
		// PUBLIC
		// ------------------------------
		auth := api.Group("/auth")
		{
			auth.POST("/register-clinic", authHandler.RegisterClinic)
			auth.POST("/register", authHandler.Register)
			auth.POST("/login",
				middleware.RateLimit(d.Cache, "login", cfg.LoginRateLimit, time.Minute, d.Log),
				authHandler.Login,
			)
		}

		api.POST("/payments/webhook", paymentHandler.Webhook)

		// ------------------------------
		// AUTHENTICATED
		// ------------------------------
		secured := api.Group("/")
		secured.Use(middleware.AuthMiddleware(d.Issuer, d.Cache, d.Log))
		{
			secured.POST("/auth/logout", authHandler.Logout)

			secured.GET("/me", meHandler.GetMe)
			secured.POST("/me/device-tokens", meHandler.RegisterDeviceToken)
			secured.DELETE("/me/device-tokens/:token", meHandler.DeleteDeviceToken)

			secured.GET("/clinics/:id", clinicHandler.Get)
			secured.PATCH("/clinics/:id", clinicHandler.Update)
			secured.PUT("/clinics/:id/logo", clinicHandler.UploadLogo)

			secured.GET("/users", userHandler.List)
			secured.POST("/users", userHandler.Create)
			secured.GET("/users/:id", userHandler.Get)
			secured.PATCH("/users/:id", userHandler.Update)
			secured.DELETE("/users/:id", userHandler.Delete)

			secured.GET("/doctors", doctorHandler.List)
			secured.POST("/doctors", doctorHandler.Create)
			secured.GET("/doctors/:id", doctorHandler.Get)
			secured.PATCH("/doctors/:id", doctorHandler.Update)
			secured.DELETE("/doctors/:id", doctorHandler.Delete)
			secured.GET("/doctors/:id/working-hours", workingHoursHandler.Get)
			secured.PUT("/doctors/:id/working-hours", workingHoursHandler.Update)
			secured.GET("/doctors/:id/availability", workingHoursHandler.Availability)

			secured.GET("/patients", patientHandler.List)
			secured.POST("/patients", patientHandler.Create)
			secured.GET("/patients/:id", patientHandler.Get)
			secured.PATCH("/patients/:id", patientHandler.Update)
			secured.DELETE("/patients/:id", patientHandler.Delete)

			secured.GET("/services", serviceHandler.List)
			secured.POST("/services", serviceHandler.Create)
			secured.GET("/services/:id", serviceHandler.Get)
			secured.PATCH("/services/:id", serviceHandler.Update)
			secured.DELETE("/services/:id", serviceHandler.Delete)

			// ------------------------------
			// APPOINTMENTS / CLINICAL
			// ------------------------------
			secured.GET("/appointments", appointmentHandler.List)
			secured.POST("/appointments", appointmentHandler.Create)
			secured.GET("/appointments/:id", appointmentHandler.Get)
			secured.PATCH("/appointments/:id", appointmentHandler.Update)
			secured.DELETE("/appointments/:id", appointmentHandler.Delete)

			secured.GET("/consultations", consultationHandler.List)
			secured.POST("/consultations", consultationHandler.Create)
			secured.GET("/consultations/:id", consultationHandler.Get)

			secured.GET("/prescriptions", prescriptionHandler.List)
			secured.POST("/prescriptions", prescriptionHandler.Create)
			secured.GET("/prescriptions/:id", prescriptionHandler.Get)
			secured.POST("/prescriptions/:id/pdf", prescriptionHandler.PDF)

			// ------------------------------
			// BILLING
			// ------------------------------
			secured.GET("/invoices", invoiceHandler.List)
			secured.POST("/invoices", invoiceHandler.Create)
			secured.GET("/invoices/:id", invoiceHandler.Get)
			secured.PATCH("/invoices/:id", invoiceHandler.Update)
			secured.DELETE("/invoices/:id", invoiceHandler.Delete)
			secured.POST("/invoices/:id/checkout", invoiceHandler.Checkout)

			secured.POST("/payments/verify", paymentHandler.Verify)

			secured.GET("/reports/invoices.xlsx", reportHandler.Invoices)
			secured.GET("/audit-logs", auditLogsHandler.List)
		}
	}
}
