package models

import (
	"net/mail"
	"strings"
	"time"
)

const DefaultTrustScore = 5.0

type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"`
	EcoPoints    int       `json:"ecoPoints" bson:"ecoPoints"`
	Level        Level     `json:"level" bson:"level"`
	TrustScore   float64   `json:"trustScore" bson:"trustScore"`
	ProfilePhoto string    `json:"profilePhoto" bson:"profilePhoto"`
	Location     *GeoPoint `json:"location,omitempty" bson:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// UserSummary is the public projection of a user embedded in other documents.
// Points and level are only filled where the extended owner view is wanted.
type UserSummary struct {
	ID           string  `json:"id" bson:"_id"`
	Name         string  `json:"name" bson:"name"`
	ProfilePhoto string  `json:"profilePhoto" bson:"profilePhoto"`
	TrustScore   float64 `json:"trustScore,omitempty" bson:"trustScore"`
	EcoPoints    *int    `json:"ecoPoints,omitempty" bson:"-"`
	Level        Level   `json:"level,omitempty" bson:"-"`
}

// LeaderboardEntry is one row of the points leaderboard.
type LeaderboardEntry struct {
	ID           string  `json:"id" bson:"_id"`
	Name         string  `json:"name" bson:"name"`
	ProfilePhoto string  `json:"profilePhoto" bson:"profilePhoto"`
	EcoPoints    int     `json:"ecoPoints" bson:"ecoPoints"`
	Level        Level   `json:"level" bson:"level"`
	TrustScore   float64 `json:"trustScore" bson:"trustScore"`
}

func (u *User) Summary(extended bool) *UserSummary {
	s := &UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		ProfilePhoto: u.ProfilePhoto,
		TrustScore:   u.TrustScore,
	}
	if extended {
		points := u.EcoPoints
		s.EcoPoints = &points
		s.Level = u.Level
	}
	return s
}

type RegisterRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	Coordinates []float64 `json:"coordinates,omitempty"` // [lat, lng]
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// UpdateProfileRequest lists the only profile fields a user may change.
type UpdateProfileRequest struct {
	Name         *string   `json:"name,omitempty"`
	ProfilePhoto *string   `json:"profilePhoto,omitempty"`
	Location     *GeoPoint `json:"location,omitempty"`
}

type UpdatePointsRequest struct {
	Points *float64 `json:"points"`
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *RegisterRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Name) == "" {
		errors["name"] = "Name is required"
	}
	if strings.TrimSpace(r.Email) == "" {
		errors["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(r.Email); err != nil {
		errors["email"] = "Email is invalid"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	} else if len(r.Password) < 6 {
		errors["password"] = "Password must be at least 6 characters"
	}
	if r.Coordinates != nil {
		if msg := validateLatLngPair(r.Coordinates); msg != "" {
			errors["coordinates"] = msg
		}
	}

	return errors
}

func (r *LoginRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Email == "" {
		errors["email"] = "Email is required"
	}
	if r.Password == "" {
		errors["password"] = "Password is required"
	}

	return errors
}

func (r *UpdateProfileRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		errors["name"] = "Name cannot be empty"
	}
	if r.Location != nil {
		if msg := r.Location.Validate(); msg != "" {
			errors["location"] = msg
		}
	}

	return errors
}

func (r *UpdatePointsRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Points == nil {
		errors["points"] = "Points must be a number"
	} else if *r.Points != float64(int(*r.Points)) {
		errors["points"] = "Points must be a whole number"
	}

	return errors
}
