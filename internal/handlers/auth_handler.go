package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/harentsoaR/medibook-api/internal/middleware"
	"github.com/harentsoaR/medibook-api/internal/models"
	"github.com/harentsoaR/medibook-api/internal/store"
	"github.com/harentsoaR/medibook-api/internal/utils"
)

type RegisterUserRequest struct {
	FullName  string `json:"fullName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	Role      string `json:"role"`
	Phone     string `json:"phone"`
	Specialty string `json:"specialty"`
}

func (h *Handler) RegisterUser(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	switch role {
	case "":
		role = models.RolePatient
	case models.RolePatient, models.RoleDoctor:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be patient or doctor"})
		return
	}
	if role == models.RoleDoctor && strings.TrimSpace(req.Specialty) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "specialty is required for doctors"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if errors.Is(err, utils.ErrPasswordTooLong) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	user := models.User{
		ID:       primitive.NewObjectID(),
		FullName: strings.TrimSpace(req.FullName),
		Email:    normalizeEmail(req.Email),
		Password: hashedPassword,
		Role:     role,
		Phone:    strings.TrimSpace(req.Phone),
	}
	if role == models.RoleDoctor {
		user.Specialty = strings.TrimSpace(req.Specialty)
	}

	if err := h.Store.CreateUser(c.Request.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "An account with this email already exists"})
			return
		}
		h.respondError(c, err)
		return
	}
	h.logFor(c).WithFields(logrus.Fields{"user_id": user.ID.Hex(), "role": role}).Info("User registered")

	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var loginReq struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&loginReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.Store.FindUserByEmail(c.Request.Context(), normalizeEmail(loginReq.Email))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if utils.NeedsRehash(user.Password) {
		h.rehashPassword(c, user.ID, loginReq.Password)
	}

	token, err := h.Tokens.GenerateJWT(user.ID.Hex(), user.Role)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// rehashPassword upgrades a hash made with an older bcrypt cost. Failure only
// costs another attempt on the next login.
func (h *Handler) rehashPassword(c *gin.Context, userID primitive.ObjectID, password string) {
	hash, err := utils.HashPassword(password)
	if err == nil {
		err = h.Store.UpdateUser(c.Request.Context(), userID, store.UserUpdate{PasswordHash: &hash})
	}
	if err != nil {
		h.logFor(c).WithError(err).WithField("user_id", userID.Hex()).Warn("Password rehash failed")
	}
}

// selfOrAdmin resolves the :id route param and checks the caller may act on it.
func selfOrAdmin(c *gin.Context) (primitive.ObjectID, bool) {
	callerID, ok := currentUserID(c)
	if !ok {
		return primitive.NilObjectID, false
	}
	targetID, ok := objectIDParam(c, "id")
	if !ok {
		return primitive.NilObjectID, false
	}
	if targetID != callerID && c.GetString(middleware.UserRoleKey) != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return primitive.NilObjectID, false
	}
	return targetID, true
}

// GetCurrentUser returns the profile at /user/:id for its owner.
func (h *Handler) GetCurrentUser(c *gin.Context) {
	userID, ok := selfOrAdmin(c)
	if !ok {
		return
	}
	user, err := h.Store.FindUserByID(c.Request.Context(), userID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateCurrentUser changes the fields present in the body.
func (h *Handler) UpdateCurrentUser(c *gin.Context) {
	userID, ok := selfOrAdmin(c)
	if !ok {
		return
	}

	var req struct {
		FullName  *string `json:"fullName"`
		Phone     *string `json:"phone"`
		PushToken *string `json:"pushToken"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	upd := store.UserUpdate{
		FullName:  trimmed(req.FullName),
		Phone:     trimmed(req.Phone),
		PushToken: trimmed(req.PushToken),
	}
	if upd.FullName != nil && *upd.FullName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fullName cannot be empty"})
		return
	}
	if upd.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No update fields provided"})
		return
	}

	if err := h.Store.UpdateUser(c.Request.Context(), userID, upd); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully"})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
