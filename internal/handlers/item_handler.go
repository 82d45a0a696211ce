package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

type ItemHandler struct {
	itemService services.ItemService
}

func NewItemHandler(itemService services.ItemService) *ItemHandler {
	return &ItemHandler{itemService: itemService}
}

// parseFinite rejects NaN and the infinities, which ParseFloat accepts.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

// parseNearbyQuery reads lng, lat and maxDistance from the query string.
func parseNearbyQuery(r *http.Request) (models.NearbyQuery, map[string]string) {
	q := models.NearbyQuery{MaxDistance: models.DefaultMaxDistanceMeters}
	errors := make(map[string]string)

	values := r.URL.Query()
	lngStr := strings.TrimSpace(values.Get("lng"))
	latStr := strings.TrimSpace(values.Get("lat"))

	if lngStr == "" || latStr == "" {
		errors["coordinates"] = "Longitude and latitude are required"
		return q, errors
	}

	lng, err := parseFinite(lngStr)
	if err != nil || lng < -180 || lng > 180 {
		errors["lng"] = "Longitude must be a number between -180 and 180"
	}
	lat, err := parseFinite(latStr)
	if err != nil || lat < -90 || lat > 90 {
		errors["lat"] = "Latitude must be a number between -90 and 90"
	}
	q.Lng, q.Lat = lng, lat

	if raw := strings.TrimSpace(values.Get("maxDistance")); raw != "" {
		d, err := parseFinite(raw)
		if err != nil || d <= 0 {
			errors["maxDistance"] = "maxDistance must be a positive number of metres"
		} else {
			q.MaxDistance = d
		}
	}

	return q, errors
}

func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.itemService.List(r.Context())
	if err != nil {
		writeServiceError(w, "ListItems", err, "Failed to list items")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(items))
}

func (h *ItemHandler) ListNearbyItems(w http.ResponseWriter, r *http.Request) {
	q, errors := parseNearbyQuery(r)
	q.Category = strings.TrimSpace(r.URL.Query().Get("category"))
	if len(errors) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errors))
		return
	}

	items, err := h.itemService.ListNearby(r.Context(), q)
	if err != nil {
		writeServiceError(w, "ListNearbyItems", err, "Failed to find nearby items")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(items))
}

func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.itemService.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, "GetItem", err, "Failed to get item")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(item))
}

func (h *ItemHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.CreateItemRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	item, err := h.itemService.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, "CreateItem", err, "Failed to create item")
		return
	}

	logrus.WithFields(logrus.Fields{"handler": "CreateItem", "item": item.ID, "user": userID}).Info("item created")
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(item))
}

func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateItemRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	item, err := h.itemService.Update(r.Context(), userID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, "UpdateItem", err, "Failed to update item")
		return
	}

	writeJSON(w, http.StatusOK, models.NewSuccessResponse(item))
}

func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	itemID := chi.URLParam(r, "id")
	if err := h.itemService.Delete(r.Context(), userID, itemID); err != nil {
		writeServiceError(w, "DeleteItem", err, "Failed to delete item")
		return
	}

	logrus.WithFields(logrus.Fields{"handler": "DeleteItem", "item": itemID, "user": userID}).Info("item deleted")
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Item deleted successfully"))
}
