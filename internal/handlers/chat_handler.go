package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/middleware"
	"github.com/harentsoaR/medibook-api/internal/models"
)

const maxMessageLength = 2000

// GetMessages returns the chat thread of an appointment, oldest first.
func (h *Handler) GetMessages(c *gin.Context) {
	apt, _, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	messages, err := h.Store.ListMessages(c.Request.Context(), apt.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if messages == nil {
		messages = make([]models.Message, 0)
	}
	c.JSON(http.StatusOK, messages)
}

// PostMessage appends to the thread. Only the patient and the doctor write.
func (h *Handler) PostMessage(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format, expecting {\"text\": \"...\"}"})
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message cannot be empty"})
		return
	}
	if len(text) > maxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Message is too long"})
		return
	}

	apt, callerID, ok := h.loadAppointment(c)
	if !ok {
		return
	}
	if !apt.HasParticipant(callerID) {
		h.respondError(c, errForbidden)
		return
	}

	msg := &models.Message{
		ID:            primitive.NewObjectID(),
		AppointmentID: apt.ID,
		SenderID:      callerID,
		SenderRole:    c.GetString(middleware.UserRoleKey),
		Text:          text,
		SentAt:        h.Now().UTC(),
	}
	if err := h.Store.AddMessage(c.Request.Context(), msg); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}
