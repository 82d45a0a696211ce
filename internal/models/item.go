package models

import (
	"strings"
	"time"
)

type Item struct {
	ID          string       `json:"id" bson:"_id"`
	OwnerID     string       `json:"-" bson:"owner"`
	Owner       *UserSummary `json:"owner,omitempty" bson:"-"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description" bson:"description"`
	Category    string       `json:"category" bson:"category"`
	Type        string       `json:"type" bson:"type"`
	Price       float64      `json:"price" bson:"price"`
	ImageURL    string       `json:"imageUrl" bson:"imageUrl"`
	Status      string       `json:"status" bson:"status"`
	Location    GeoPoint     `json:"location" bson:"location"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt" bson:"updatedAt"`
}

const (
	ItemStatusAvailable   = "available"
	ItemStatusReserved    = "reserved"
	ItemStatusUnavailable = "unavailable"
)

var ItemCategories = []string{
	"tools",
	"kitchen",
	"electronics",
	"outdoor",
	"sports",
	"other",
}

var ItemTypes = []string{"lend", "rent", "sell"}

var ItemStatuses = []string{ItemStatusAvailable, ItemStatusReserved, ItemStatusUnavailable}

type CreateItemRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Price       *float64  `json:"price,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	Coordinates []float64 `json:"coordinates"` // [lat, lng]
}

// UpdateItemRequest lists the item fields an owner may patch.
type UpdateItemRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Type        *string   `json:"type,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"` // [lat, lng]
}

type NearbyQuery struct {
	Lng         float64
	Lat         float64
	MaxDistance float64 // metres
	Category    string
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func (r *CreateItemRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Title) == "" {
		errors["title"] = "Title is required"
	}
	if strings.TrimSpace(r.Description) == "" {
		errors["description"] = "Description is required"
	}
	if r.Category == "" {
		errors["category"] = "Category is required"
	} else if !contains(ItemCategories, r.Category) {
		errors["category"] = "Category must be one of " + strings.Join(ItemCategories, ", ")
	}
	if r.Type == "" {
		errors["type"] = "Type is required"
	} else if !contains(ItemTypes, r.Type) {
		errors["type"] = "Type must be one of " + strings.Join(ItemTypes, ", ")
	}
	if r.Price != nil && *r.Price < 0 {
		errors["price"] = "Price cannot be negative"
	}
	if msg := validateLatLngPair(r.Coordinates); msg != "" {
		errors["coordinates"] = msg
	}

	return errors
}

func (r *UpdateItemRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		errors["title"] = "Title cannot be empty"
	}
	if r.Description != nil && strings.TrimSpace(*r.Description) == "" {
		errors["description"] = "Description cannot be empty"
	}
	if r.Category != nil && !contains(ItemCategories, *r.Category) {
		errors["category"] = "Category must be one of " + strings.Join(ItemCategories, ", ")
	}
	if r.Type != nil && !contains(ItemTypes, *r.Type) {
		errors["type"] = "Type must be one of " + strings.Join(ItemTypes, ", ")
	}
	if r.Price != nil && *r.Price < 0 {
		errors["price"] = "Price cannot be negative"
	}
	if r.Status != nil && !contains(ItemStatuses, *r.Status) {
		errors["status"] = "Status must be one of " + strings.Join(ItemStatuses, ", ")
	}
	if r.Coordinates != nil {
		if msg := validateLatLngPair(r.Coordinates); msg != "" {
			errors["coordinates"] = msg
		}
	}

	return errors
}

// Apply copies the patched fields onto item.
func (r *UpdateItemRequest) Apply(item *Item) {
	if r.Title != nil {
		item.Title = *r.Title
	}
	if r.Description != nil {
		item.Description = *r.Description
	}
	if r.Category != nil {
		item.Category = *r.Category
	}
	if r.Type != nil {
		item.Type = *r.Type
	}
	if r.Price != nil {
		item.Price = *r.Price
	}
	if r.ImageURL != nil {
		item.ImageURL = *r.ImageURL
	}
	if r.Status != nil {
		item.Status = *r.Status
	}
	if r.Coordinates != nil {
		item.Location = PointFromLatLng(r.Coordinates)
	}
}
