package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

type RequestHandler struct {
	requestService services.RequestService
}

func NewRequestHandler(requestService services.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requestService.List(r.Context())
	if err != nil {
		writeServiceError(w, "ListRequests", err, "Failed to list requests")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}

func (h *RequestHandler) ListNearbyRequests(w http.ResponseWriter, r *http.Request) {
	q, errors := parseNearbyQuery(r)
	if len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	requests, err := h.requestService.ListNearby(r.Context(), q)
	if err != nil {
		writeServiceError(w, "ListNearbyRequests", err, "Failed to find nearby requests")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(requests))
}

func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateRequestRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	created, err := h.requestService.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, "CreateRequest", err, "Failed to create request")
		return
	}

	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(created))
}

func (h *RequestHandler) UpdateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateRequestStatusRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	updated, err := h.requestService.UpdateStatus(r.Context(), userID, chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeServiceError(w, "UpdateRequest", err, "Failed to update request")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updated))
}

func (h *RequestHandler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.requestService.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, "DeleteRequest", err, "Failed to delete request")
		return
	}

	writeJSON(w, http.StatusOK, models.NewMessageResponse("Request deleted successfully"))
}
