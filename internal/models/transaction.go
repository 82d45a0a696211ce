package models

import (
	"strings"
	"time"
)

type Transaction struct {
	ID             string       `json:"id" bson:"_id"`
	ItemID         string       `json:"-" bson:"item"`
	Item           *ItemSummary `json:"item,omitempty" bson:"-"`
	BorrowerID     string       `json:"-" bson:"borrower"`
	Borrower       *UserSummary `json:"borrower,omitempty" bson:"-"`
	LenderID       string       `json:"-" bson:"lender"`
	Lender         *UserSummary `json:"lender,omitempty" bson:"-"`
	Status         string       `json:"status" bson:"status"`
	PickupTime     time.Time    `json:"pickupTime" bson:"pickupTime"`
	RatingLender   *int         `json:"ratingLender,omitempty" bson:"ratingLender,omitempty"`
	ReviewLender   string       `json:"reviewLender,omitempty" bson:"reviewLender,omitempty"`
	RatingBorrower *int         `json:"ratingBorrower,omitempty" bson:"ratingBorrower,omitempty"`
	ReviewBorrower string       `json:"reviewBorrower,omitempty" bson:"reviewBorrower,omitempty"`
	PointsAwarded  bool         `json:"pointsAwarded" bson:"pointsAwarded"`
	AwardedTo      []string     `json:"-" bson:"awardedTo,omitempty"` // participants claimed for payout
	CompletedAt    *time.Time   `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt" bson:"updatedAt"`
}

// ItemSummary is the projection of an item embedded in a transaction.
type ItemSummary struct {
	ID       string `json:"id" bson:"_id"`
	Title    string `json:"title" bson:"title"`
	ImageURL string `json:"imageUrl" bson:"imageUrl"`
}

const (
	TransactionStatusRequested  = "requested"
	TransactionStatusAccepted   = "accepted"
	TransactionStatusInProgress = "in_progress"
	TransactionStatusCompleted  = "completed"
	TransactionStatusCancelled  = "cancelled"

	RatingForLender   = "lender"
	RatingForBorrower = "borrower"
)

// Points awarded to each side when a transaction completes.
const (
	BorrowerCompletionPoints = 15
	LenderCompletionPoints   = 25
)

var TransactionStatuses = []string{
	TransactionStatusRequested,
	TransactionStatusAccepted,
	TransactionStatusInProgress,
	TransactionStatusCompleted,
	TransactionStatusCancelled,
}

// CompletableStatuses are the states from which completion awards points.
var CompletableStatuses = []string{
	TransactionStatusRequested,
	TransactionStatusAccepted,
	TransactionStatusInProgress,
}

func IsCompletable(status string) bool {
	return contains(CompletableStatuses, status)
}

func (t *Transaction) IsParticipant(userID string) bool {
	return userID != "" && (t.BorrowerID == userID || t.LenderID == userID)
}

type CreateTransactionRequest struct {
	Item       string     `json:"item"`
	Lender     string     `json:"lender"`
	PickupTime *time.Time `json:"pickupTime,omitempty"`
}

// UpdateTransactionRequest lists the fields a participant may patch.
type UpdateTransactionRequest struct {
	Status     *string    `json:"status,omitempty"`
	PickupTime *time.Time `json:"pickupTime,omitempty"`
}

type RateTransactionRequest struct {
	Rating    int    `json:"rating"`
	Review    string `json:"review"`
	RatingFor string `json:"ratingFor"`
}

func (r *CreateTransactionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if strings.TrimSpace(r.Item) == "" {
		errors["item"] = "Item is required"
	}
	if strings.TrimSpace(r.Lender) == "" {
		errors["lender"] = "Lender is required"
	}

	return errors
}

func (r *UpdateTransactionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Status == nil && r.PickupTime == nil {
		errors["status"] = "Nothing to update"
	}
	if r.Status != nil && !contains(TransactionStatuses, *r.Status) {
		errors["status"] = "Status must be one of " + strings.Join(TransactionStatuses, ", ")
	}
	if r.PickupTime != nil && r.PickupTime.IsZero() {
		errors["pickupTime"] = "Pickup time is invalid"
	}

	return errors
}

func (r *RateTransactionRequest) Validate() map[string]string {
	errors := make(map[string]string)

	if r.Rating < 1 || r.Rating > 5 {
		errors["rating"] = "Rating must be between 1 and 5"
	}
	if len(r.Review) > 2000 {
		errors["review"] = "Review is too long"
	}
	if r.RatingFor != RatingForLender && r.RatingFor != RatingForBorrower {
		errors["ratingFor"] = "ratingFor must be lender or borrower"
	}

	return errors
}
