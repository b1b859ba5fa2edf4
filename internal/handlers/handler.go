package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/availability"
	"github.com/harentsoaR/medibook-api/internal/middleware"
	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/services"
	"github.com/harentsoaR/medibook-api/internal/store"
	"github.com/harentsoaR/medibook-api/internal/utils"
)

var errForbidden = errors.New("permission denied")

// Handler holds what every route needs. Handlers for each area live in their
// own file as methods on it.
type Handler struct {
	Store        store.Store
	Monitor      *services.Monitor
	Booking      *services.Booking
	Verification *services.Verification
	Notifier     services.Notifier
	Tokens       *utils.TokenIssuer
	Log          logrus.FieldLogger
	Now          func() time.Time
}

func NewHandler(
	st store.Store,
	monitor *services.Monitor,
	booking *services.Booking,
	verification *services.Verification,
	notifier services.Notifier,
	tokens *utils.TokenIssuer,
	log logrus.FieldLogger,
	now func() time.Time,
) *Handler {
	return &Handler{
		Store:        st,
		Monitor:      monitor,
		Booking:      booking,
		Verification: verification,
		Notifier:     notifier,
		Tokens:       tokens,
		Log:          log,
		Now:          now,
	}
}

func (h *Handler) logFor(c *gin.Context) logrus.FieldLogger {
	return h.Log.WithField("request_id", c.GetString(middleware.RequestIDKey))
}

// currentUserID reads the id set by AuthMiddleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString(middleware.UserIDKey))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// currentUser loads the authenticated user. A token for a deleted account is
// treated as unauthenticated.
func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	id, ok := currentUserID(c)
	if !ok {
		return nil, false
	}
	user, err := h.Store.FindUserByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return user, true
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return primitive.NilObjectID, false
	}
	return id, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidDate),
		errors.Is(err, services.ErrDateInPast),
		errors.Is(err, services.ErrInvalidRating),
		errors.Is(err, services.ErrInvalidSlotMinutes),
		errors.Is(err, availability.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, errForbidden),
		errors.Is(err, services.ErrNotBookableByRole),
		errors.Is(err, services.ErrDoctorUnverified):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, services.ErrDoctorNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicate),
		errors.Is(err, store.ErrConflict),
		errors.Is(err, services.ErrSlotUnavailable),
		errors.Is(err, services.ErrRatingNotExpected):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Unexpected errors are logged and
// hidden from the client.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logFor(c).WithError(err).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	msg := err.Error()
	if errors.Is(err, store.ErrNotFound) {
		msg = "Not found"
	}
	c.JSON(status, gin.H{"error": msg})
}

// notifyPatient looks up the patient of apt and sends them an SMS. Lookup
// failures are logged only.
func (h *Handler) notifyPatient(c *gin.Context, apt *models.Appointment) {
	if h.Notifier == nil {
		return
	}
	patient, err := h.Store.FindUserByID(c.Request.Context(), apt.PatientID)
	if err != nil {
		h.logFor(c).WithError(err).WithField("appointment_id", apt.ID.Hex()).Warn("Patient lookup for SMS failed")
		return
	}
	h.Notifier.SendAppointmentSMS(patient, apt)
}
