package handlers

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/lifecycle"
	"github.com/harentsoaR/medibook-api/internal/middleware"
	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
)

type CreateAppointmentRequest struct {
	DoctorID string `json:"doctorId" binding:"required"`
	Date     string `json:"date" binding:"required"` // YYYY-MM-DD
	Time     string `json:"time" binding:"required"` // one of the slot times, e.g. "09:30 AM"
}

type appointmentDetail struct {
	*models.Appointment
	PromptRating bool `json:"promptRating"`
}

func (h *Handler) CreateAppointment(c *gin.Context) {
	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doctorID, err := primitive.ObjectIDFromHex(req.DoctorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid doctorId"})
		return
	}
	date, err := h.Booking.ParseDate(req.Date)
	if err != nil {
		h.respondError(c, err)
		return
	}

	patient, ok := h.currentUser(c)
	if !ok {
		return
	}
	apt, err := h.Booking.Book(c.Request.Context(), patient, doctorID, date, req.Time)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, apt)
}

// GetAppointments lists the caller's appointments: a patient's own, a doctor's
// own, or every appointment for an admin. ?status= filters on the status after
// due completions have been applied.
func (h *Handler) GetAppointments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var filter store.AppointmentFilter
	switch c.GetString(middleware.UserRoleKey) {
	case models.RolePatient:
		filter.PatientID = &userID
	case models.RoleDoctor:
		filter.DoctorID = &userID
	case models.RoleAdmin:
	default:
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}

	appointments, err := h.Store.ListAppointments(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	appointments = h.Monitor.ReconcileAll(c.Request.Context(), appointments)

	out := make([]models.Appointment, 0, len(appointments))
	status := c.Query("status")
	for _, apt := range appointments {
		if status == "" || apt.Status == status {
			out = append(out, apt)
		}
	}
	c.JSON(http.StatusOK, out)
}

// loadAppointment reads :id, applies any due completion and checks the caller
// takes part in it. Admins may read any appointment.
func (h *Handler) loadAppointment(c *gin.Context) (*models.Appointment, primitive.ObjectID, bool) {
	callerID, ok := currentUserID(c)
	if !ok {
		return nil, callerID, false
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return nil, callerID, false
	}

	apt, err := h.Store.FindAppointment(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return nil, callerID, false
	}
	if !apt.HasParticipant(callerID) && c.GetString(middleware.UserRoleKey) != models.RoleAdmin {
		h.respondError(c, errForbidden)
		return nil, callerID, false
	}

	apt, err = h.Monitor.Reconcile(c.Request.Context(), apt)
	if err != nil {
		h.respondError(c, err)
		return nil, callerID, false
	}
	return apt, callerID, true
}

func (h *Handler) GetAppointment(c *gin.Context) {
	apt, callerID, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, appointmentDetail{
		Appointment:  apt,
		PromptRating: lifecycle.ShouldPromptRating(apt, callerID == apt.PatientID),
	})
}

func (h *Handler) ApproveAppointment(c *gin.Context) {
	h.decide(c, models.StatusApproved)
}

func (h *Handler) RejectAppointment(c *gin.Context) {
	h.decide(c, models.StatusRejected)
}

// decide lets the appointment's doctor answer a pending request.
func (h *Handler) decide(c *gin.Context, status string) {
	apt, callerID, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if apt.DoctorID != callerID {
		h.respondError(c, errForbidden)
		return
	}
	h.moveTo(c, apt, status, models.StatusPending)
}

// CancelAppointment lets either participant call off a request or a booking
// that has not happened yet.
func (h *Handler) CancelAppointment(c *gin.Context) {
	apt, callerID, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if !apt.HasParticipant(callerID) {
		h.respondError(c, errForbidden)
		return
	}
	h.moveTo(c, apt, models.StatusCancelled, models.StatusPending, models.StatusApproved)
}

func (h *Handler) moveTo(c *gin.Context, apt *models.Appointment, status string, from ...string) {
	if !slices.Contains(from, apt.Status) {
		c.JSON(http.StatusConflict, gin.H{"error": "Appointment is " + apt.Status})
		return
	}
	if err := h.Store.SetAppointmentStatus(c.Request.Context(), apt.ID, status, from...); err != nil {
		h.respondError(c, err)
		return
	}

	updated := *apt
	updated.Status = status
	if status == models.StatusCancelled || status == models.StatusRejected {
		h.Booking.Release(c.Request.Context(), &updated)
	}
	h.logFor(c).WithField("appointment_id", apt.ID.Hex()).WithField("status", status).Info("Appointment status changed")
	h.notifyPatient(c, &updated)
	c.JSON(http.StatusOK, updated)
}

type RateAppointmentRequest struct {
	Stars int `json:"stars" binding:"required"`
}

func (h *Handler) RateAppointment(c *gin.Context) {
	var req RateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	apt, callerID, ok := h.loadAppointment(c)
	if !ok {
		return
	}

	if err := h.Booking.Rate(c.Request.Context(), apt, &models.User{ID: callerID}, req.Stars); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Thanks for your rating"})
}
