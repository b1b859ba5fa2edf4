package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/medibook-api/internal/middleware"
	"github.com/harentsoaR/medibook-api/internal/models"
)

// RegisterRoutes mounts the public /auth group and the authenticated /api group.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.Login)
	}

	doctorOnly := middleware.RequireRole(models.RoleDoctor)
	patientOnly := middleware.RequireRole(models.RolePatient)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	apiRoutes := r.Group("/api")
	apiRoutes.Use(middleware.AuthMiddleware(h.Tokens))
	{
		apiRoutes.GET("/user/:id", h.GetCurrentUser)
		apiRoutes.PUT("/user/:id", h.UpdateCurrentUser)

		apiRoutes.GET("/doctors", h.SearchDoctors)
		apiRoutes.GET("/doctors/:id/slots", h.GetDoctorSlots)
		apiRoutes.PUT("/doctors/me/schedule", doctorOnly, h.UpdateSchedule)
		apiRoutes.GET("/doctors/me/requests", doctorOnly, h.GetDoctorRequests)
		apiRoutes.PATCH("/doctors/:id/verify", adminOnly, h.VerifyDoctor)
		apiRoutes.POST("/admin/doctors/verify-all", adminOnly, h.VerifyAllDoctors)

		apiRoutes.POST("/appointments", patientOnly, h.CreateAppointment)
		apiRoutes.GET("/appointments", h.GetAppointments)
		apiRoutes.GET("/appointments/:id", h.GetAppointment)
		apiRoutes.PATCH("/appointments/:id/approve", doctorOnly, h.ApproveAppointment)
		apiRoutes.PATCH("/appointments/:id/reject", doctorOnly, h.RejectAppointment)
		apiRoutes.PATCH("/appointments/:id/cancel", h.CancelAppointment)
		apiRoutes.POST("/appointments/:id/rating", patientOnly, h.RateAppointment)
		apiRoutes.GET("/appointments/:id/messages", h.GetMessages)
		apiRoutes.POST("/appointments/:id/messages", h.PostMessage)
	}
}
