package services

import (
	"context"
	"time"

	"github.com/ecosync/backend/internal/models"
)

type ItemService interface {
	List(ctx context.Context) ([]*models.Item, error)
	ListNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Item, error)
	GetByID(ctx context.Context, id string) (*models.Item, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.Item, error)
	Create(ctx context.Context, ownerID string, req *models.CreateItemRequest) (*models.Item, error)
	Update(ctx context.Context, callerID, id string, req *models.UpdateItemRequest) (*models.Item, error)
	Delete(ctx context.Context, callerID, id string) error
}

type RequestService interface {
	List(ctx context.Context) ([]*models.Request, error)
	ListNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Request, error)
	Create(ctx context.Context, userID string, req *models.CreateRequestRequest) (*models.Request, error)
	UpdateStatus(ctx context.Context, callerID, id, status string) (*models.Request, error)
	Delete(ctx context.Context, callerID, id string) error
	// ExpireStale marks active requests created before cutoff as expired.
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type TransactionService interface {
	List(ctx context.Context) ([]*models.Transaction, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Transaction, error)
	Create(ctx context.Context, borrowerID string, req *models.CreateTransactionRequest) (*models.Transaction, error)
	Update(ctx context.Context, callerID, id string, req *models.UpdateTransactionRequest) (*models.Transaction, bool, error)
	// Complete reports whether this call awarded the completion points.
	Complete(ctx context.Context, callerID, id string) (*models.Transaction, bool, error)
	Rate(ctx context.Context, callerID, id string, req *models.RateTransactionRequest) (*models.Transaction, error)
}

type UserService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)
	UpdateProfile(ctx context.Context, callerID, id string, req *models.UpdateProfileRequest) (*models.User, error)
	// AdjustPoints adds delta to the user's ecoPoints and recomputes level in one step.
	AdjustPoints(ctx context.Context, id string, delta int) (*models.PointsResponse, error)
	Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error)
}

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

func clampLeaderboardLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

func validationFrom(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

var (
	_ ItemService        = (*MemoryItemService)(nil)
	_ ItemService        = (*MongoItemService)(nil)
	_ RequestService     = (*MemoryRequestService)(nil)
	_ RequestService     = (*MongoRequestService)(nil)
	_ TransactionService = (*MemoryTransactionService)(nil)
	_ TransactionService = (*MongoTransactionService)(nil)
	_ UserService        = (*MemoryUserService)(nil)
	_ UserService        = (*MongoUserService)(nil)
	_ UserService        = (*CachedUserService)(nil)
	_ ImageModerator     = (*SafeSearchModerator)(nil)
	_ ImageStore         = (*LocalImageStore)(nil)
	_ ImageStore         = (*GCSImageStore)(nil)
	_ awardLedger        = (*MemoryTransactionService)(nil)
	_ awardLedger        = (*MongoTransactionService)(nil)
)
