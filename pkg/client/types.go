package client

import "time"

// Wire types as the API sends and accepts them. Coordinates in request
// bodies are [lat, lng]; GeoJSON points in responses are [lng, lat].

type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	EcoPoints    int       `json:"ecoPoints"`
	Level        string    `json:"level"`
	TrustScore   float64   `json:"trustScore"`
	ProfilePhoto string    `json:"profilePhoto"`
	Location     *GeoPoint `json:"location,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is a user embedded in an item, request or transaction.
type UserSummary struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProfilePhoto string  `json:"profilePhoto"`
	TrustScore   float64 `json:"trustScore,omitempty"`
	EcoPoints    *int    `json:"ecoPoints,omitempty"`
	Level        string  `json:"level,omitempty"`
}

type LeaderboardEntry struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	ProfilePhoto string  `json:"profilePhoto"`
	EcoPoints    int     `json:"ecoPoints"`
	Level        string  `json:"level"`
	TrustScore   float64 `json:"trustScore"`
}

type Points struct {
	ID        string `json:"id"`
	EcoPoints int    `json:"ecoPoints"`
	Level     string `json:"level"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterRequest struct {
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Password    string    `json:"password"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

type UpdateProfileRequest struct {
	Name         *string   `json:"name,omitempty"`
	ProfilePhoto *string   `json:"profilePhoto,omitempty"`
	Location     *GeoPoint `json:"location,omitempty"`
}

type Item struct {
	ID          string       `json:"id"`
	Owner       *UserSummary `json:"owner,omitempty"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Type        string       `json:"type"`
	Price       float64      `json:"price"`
	ImageURL    string       `json:"imageUrl"`
	Status      string       `json:"status"`
	Location    GeoPoint     `json:"location"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type CreateItemRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Type        string    `json:"type"`
	Price       *float64  `json:"price,omitempty"`
	ImageURL    string    `json:"imageUrl"`
	Coordinates []float64 `json:"coordinates"`
}

type UpdateItemRequest struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Type        *string   `json:"type,omitempty"`
	Price       *float64  `json:"price,omitempty"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Coordinates []float64 `json:"coordinates,omitempty"`
}

type Request struct {
	ID          string       `json:"id"`
	User        *UserSummary `json:"user,omitempty"`
	ItemName    string       `json:"itemName"`
	Description string       `json:"description"`
	Urgency     string       `json:"urgency"`
	Status      string       `json:"status"`
	Location    GeoPoint     `json:"location"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

type CreateRequestRequest struct {
	ItemName    string    `json:"itemName"`
	Description string    `json:"description"`
	Urgency     string    `json:"urgency,omitempty"`
	Coordinates []float64 `json:"coordinates"`
}

type ItemSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

type Transaction struct {
	ID             string       `json:"id"`
	Item           *ItemSummary `json:"item,omitempty"`
	Borrower       *UserSummary `json:"borrower,omitempty"`
	Lender         *UserSummary `json:"lender,omitempty"`
	Status         string       `json:"status"`
	PickupTime     time.Time    `json:"pickupTime"`
	RatingLender   *int         `json:"ratingLender,omitempty"`
	ReviewLender   string       `json:"reviewLender,omitempty"`
	RatingBorrower *int         `json:"ratingBorrower,omitempty"`
	ReviewBorrower string       `json:"reviewBorrower,omitempty"`
	PointsAwarded  bool         `json:"pointsAwarded"`
	CompletedAt    *time.Time   `json:"completedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

type CreateTransactionRequest struct {
	Item       string     `json:"item"`
	Lender     string     `json:"lender"`
	PickupTime *time.Time `json:"pickupTime,omitempty"`
}

type UpdateTransactionRequest struct {
	Status     *string    `json:"status,omitempty"`
	PickupTime *time.Time `json:"pickupTime,omitempty"`
}

type RateTransactionRequest struct {
	Rating    int    `json:"rating"`
	Review    string `json:"review,omitempty"`
	RatingFor string `json:"ratingFor"`
}
