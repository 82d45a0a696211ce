package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/metrics"
	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "GetUser", err, "Failed to get user")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, "UpdateUser", err, "Failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *UserHandler) UpdatePoints(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdatePointsRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if errors := req.Validate(); len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	targetID := chi.URLParam(r, "id")
	delta := int(*req.Points)

	res, err := h.userService.AdjustPoints(r.Context(), targetID, delta)
	if err != nil {
		writeServiceError(w, "UpdatePoints", err, "Failed to update points")
		return
	}

	metrics.RecordPointsAdjustment(delta)
	logrus.WithFields(logrus.Fields{
		"handler": "UpdatePoints",
		"caller":  userID,
		"user":    targetID,
		"delta":   delta,
		"total":   res.EcoPoints,
	}).Info("points adjusted")
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(res))
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := services.DefaultLeaderboardLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(map[string]string{
				"limit": "Limit must be a whole number",
			}))
			return
		}
		limit = n
		if limit < 1 {
			limit = 1
		}
	}

	entries, err := h.userService.Leaderboard(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "Leaderboard", err, "Failed to load leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(entries))
}
