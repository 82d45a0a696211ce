package handlers

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/middleware"
	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

type AuthHandler struct {
	userService   services.UserService
	jwtSecret     string
	jwtExpiration time.Duration
}

func NewAuthHandler(userService services.UserService, jwtSecret string, jwtExpiration time.Duration) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, "Register", err, "Failed to create user")
		return
	}

	logrus.WithFields(logrus.Fields{"handler": "Register", "user": user.ID}).Info("user registered")
	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	user, err := h.userService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, "Login", err, "Login failed")
		return
	}

	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "Me", err, "Failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

// Logout is stateless: tokens are not tracked, so the client drops its copy.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Logged out"))
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := middleware.GenerateToken(h.jwtSecret, user.ID, h.jwtExpiration)
	if err != nil {
		logrus.WithError(err).Error("failed to sign token")
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}

	writeJSON(w, status, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}
