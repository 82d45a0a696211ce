package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/middleware"
	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decodeJSON reads the body into v. strict rejects unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, strict bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return false
	}
	return true
}

// requireUser returns the caller id, answering 401 when there is none.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return "", false
	}
	return userID, true
}

// writeServiceError maps service errors onto status codes. Unexpected errors
// are logged and answered with fallback.
func writeServiceError(w http.ResponseWriter, handler string, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(verr.Fields))
	case errors.Is(err, services.ErrNotFound):
		writeJSON(w, http.StatusNotFound, models.NewErrorResponse(capitalize(err.Error())))
	case errors.Is(err, services.ErrForbidden):
		writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Not authorized to modify this resource"))
	case errors.Is(err, services.ErrEmailExists):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse("Email already registered"))
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid email or password"))
	case errors.Is(err, services.ErrImageRejected):
		writeJSON(w, http.StatusUnprocessableEntity, models.NewErrorResponse("Image rejected: violates community guidelines"))
	default:
		logrus.WithError(err).WithField("handler", handler).Error("service error")
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse(fallback))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}
