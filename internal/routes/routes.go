package routes

import (
	"carelink-server/internal/config"
	"carelink-server/internal/handlers"
	"carelink-server/internal/middleware"
	"carelink-server/internal/models"
	"carelink-server/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, clock services.Clock, notifier services.Notifier) {
	authHandler := handlers.NewAuthHandler(db, cfg, notifier)
	hospitalHandler := handlers.NewHospitalHandler(db, clock)
	patientHandler := handlers.NewPatientHandler(db, clock)
	labHandler := handlers.NewLabHandler(db, clock)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/patient/signup", authHandler.PatientSignup)
			authRoutes.POST("/patient/verify-otp", authHandler.VerifyOTP)
			authRoutes.POST("/patient/login", authHandler.PatientLogin)
			authRoutes.POST("/patient/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/patient/reset-password", authHandler.ResetPassword)
			authRoutes.POST("/hospital/signup", authHandler.HospitalSignup)
			authRoutes.POST("/hospital/login", authHandler.HospitalLogin)
			authRoutes.POST("/lab/signup", authHandler.LabSignup)
			authRoutes.POST("/lab/login", authHandler.LabLogin)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/me", authHandler.Me)
			authRoutesPrivate.PUT("/change-password", authHandler.ChangePassword)
		}

		hospitalRoutes := private.Group("/hospital")
		hospitalRoutes.Use(middleware.RoleAuthMiddleware(models.RoleHospital))
		{
			hospitalRoutes.GET("/dashboard", hospitalHandler.Dashboard)

			hospitalRoutes.POST("/prescriptions", hospitalHandler.CreatePrescription)
			hospitalRoutes.PUT("/prescriptions/:id", hospitalHandler.UpdatePrescription)
			hospitalRoutes.GET("/prescriptions", hospitalHandler.ListPrescriptions)
			hospitalRoutes.GET("/reports", hospitalHandler.ListReports)
			hospitalRoutes.GET("/reports/:id/download", hospitalHandler.DownloadReport)

			hospitalRoutes.POST("/emergency", hospitalHandler.AdmitEmergency)
			hospitalRoutes.GET("/emergency", hospitalHandler.ListEmergency)
			hospitalRoutes.GET("/emergency/:id", hospitalHandler.GetEmergency)
			hospitalRoutes.PATCH("/emergency/:id/discharge", hospitalHandler.DischargeEmergency)
			hospitalRoutes.POST("/emergency/:id/reports", hospitalHandler.UploadEmergencyReport)

			hospitalRoutes.POST("/admissions", hospitalHandler.Admit)
			hospitalRoutes.GET("/admissions", hospitalHandler.ListAdmissions)
			hospitalRoutes.PATCH("/admissions/:id/discharge", hospitalHandler.DischargeAdmission)

			hospitalRoutes.POST("/consents", hospitalHandler.RequestConsent)
			hospitalRoutes.GET("/consents", hospitalHandler.ListConsents)
			hospitalRoutes.PATCH("/consents/:consentId/revoke", hospitalHandler.RevokeConsent)

			// Consent-gated patient record view
			hospitalRoutes.GET("/patients/:patientId", hospitalHandler.PatientInfo)
		}

		patientRoutes := private.Group("/patient")
		patientRoutes.Use(middleware.RoleAuthMiddleware(models.RolePatient))
		{
			patientRoutes.GET("/dashboard", patientHandler.Dashboard)
			patientRoutes.PUT("/profile", patientHandler.UpdateProfile)

			patientRoutes.GET("/prescriptions", patientHandler.ListPrescriptions)
			patientRoutes.GET("/reports", patientHandler.ListReports)
			patientRoutes.GET("/reports/:id/download", patientHandler.DownloadReport)

			patientRoutes.GET("/reminders", patientHandler.ListReminders)
			patientRoutes.PATCH("/reminders/:id/complete", patientHandler.CompleteReminder)
			patientRoutes.PATCH("/reminders/:id/toggle", patientHandler.ToggleReminder)

			patientRoutes.GET("/family-members", patientHandler.ListFamilyMembers)
			patientRoutes.POST("/family-members", patientHandler.AddFamilyMember)

			patientRoutes.GET("/notifications", patientHandler.ListNotifications)
			patientRoutes.PATCH("/notifications/:id/read", patientHandler.MarkNotificationRead)

			patientRoutes.GET("/consents", patientHandler.ListConsents)
			patientRoutes.PATCH("/consents/:consentId/respond", patientHandler.RespondConsent)
		}

		labRoutes := private.Group("/lab")
		labRoutes.Use(middleware.RoleAuthMiddleware(models.RoleLab))
		{
			labRoutes.GET("/dashboard", labHandler.Dashboard)
			labRoutes.POST("/reports", labHandler.UploadReport)
			labRoutes.GET("/reports", labHandler.ListReports)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
