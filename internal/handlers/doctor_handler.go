package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
)

// SearchDoctors lists doctors, optionally filtered by ?specialty= and ?verified=.
func (h *Handler) SearchDoctors(c *gin.Context) {
	filter := store.DoctorFilter{Specialty: strings.TrimSpace(c.Query("specialty"))}
	if v := c.Query("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "verified must be true or false"})
			return
		}
		filter.Verified = &verified
	}

	doctors, err := h.Store.ListDoctors(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	profiles := make([]models.DoctorProfile, 0, len(doctors))
	for i := range doctors {
		profiles = append(profiles, models.NewDoctorProfile(&doctors[i]))
	}
	c.JSON(http.StatusOK, profiles)
}

// GetDoctorSlots returns the bucketed slots of /doctors/:id/slots?date=YYYY-MM-DD.
func (h *Handler) GetDoctorSlots(c *gin.Context) {
	doctorID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	date, err := h.Booking.ParseDate(c.Query("date"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	day, err := h.Booking.DaySlots(c.Request.Context(), doctorID, date)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, day)
}

type UpdateScheduleRequest struct {
	Schedule    models.WeeklySchedule `json:"schedule" binding:"required"`
	SlotMinutes int                   `json:"slotMinutes"`
}

func (h *Handler) UpdateSchedule(c *gin.Context) {
	doctorID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.Booking.SetSchedule(c.Request.Context(), doctorID, req.Schedule, req.SlotMinutes); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule updated successfully"})
}

// GetDoctorRequests lists the caller's appointment requests still awaiting a decision.
func (h *Handler) GetDoctorRequests(c *gin.Context) {
	doctorID, ok := currentUserID(c)
	if !ok {
		return
	}
	appointments, err := h.Store.ListAppointments(c.Request.Context(), store.AppointmentFilter{
		DoctorID: &doctorID,
		Status:   models.StatusPending,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	if appointments == nil {
		appointments = make([]models.Appointment, 0)
	}
	c.JSON(http.StatusOK, appointments)
}

func (h *Handler) VerifyDoctor(c *gin.Context) {
	doctorID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.Verification.Verify(c.Request.Context(), doctorID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Doctor verified"})
}

func (h *Handler) VerifyAllDoctors(c *gin.Context) {
	n, err := h.Verification.VerifyAll(c.Request.Context())
	if err != nil {
		h.logFor(c).WithError(err).WithField("verified", n).Error("Bulk verification failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Bulk verification stopped early", "verified": n})
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": n})
}
