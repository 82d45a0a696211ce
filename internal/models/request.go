package models

import (
	"strings"
	"time"
)

// Request is a neighbour's ask for an item, shown on the map as a beacon.
type Request struct {
	ID          string       `json:"id" bson:"_id"`
	UserID      string       `json:"-" bson:"user"`
	User        *UserSummary `json:"user,omitempty" bson:"-"`
	ItemName    string       `json:"itemName" bson:"itemName"`
	Description string       `json:"description" bson:"description"`
	Urgency     string       `json:"urgency" bson:"urgency"`
	Status      string       `json:"status" bson:"status"`
	Location    GeoPoint     `json:"location" bson:"location"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}

const (
	RequestStatusActive    = "active"
	RequestStatusFulfilled = "fulfilled"
	RequestStatusCancelled = "cancelled"
	RequestStatusExpired   = "expired"

	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

var RequestStatuses = []string{
	RequestStatusActive,
	RequestStatusFulfilled,
	RequestStatusCancelled,
	RequestStatusExpired,
}

var Urgencies = []string{UrgencyLow, UrgencyNormal, UrgencyHigh}

type CreateRequestRequest struct {
	ItemName    string    `json:"itemName"`
	Description string    `json:"description"`
	Urgency     string    `json:"urgency"`
	Coordinates []float64 `json:"coordinates"` // [lat, lng]
}

type UpdateRequestStatusRequest struct {
	Status string `json:"status"`
}

func (r *CreateRequestRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.ItemName) == "" {
		errors["itemName"] = "Item name is required"
	}
	if r.Urgency != "" && !contains(Urgencies, r.Urgency) {
		errors["urgency"] = "Urgency must be one of " + strings.Join(Urgencies, ", ")
	}
	if msg := validateLatLngPair(r.Coordinates); msg != "" {
		errors["coordinates"] = msg
	}

	return errors
}

func (r *UpdateRequestStatusRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Status == "" {
		errors["status"] = "Status is required"
	} else if !contains(RequestStatuses, r.Status) {
		errors["status"] = "Status must be one of " + strings.Join(RequestStatuses, ", ")
	}

	return errors
}
