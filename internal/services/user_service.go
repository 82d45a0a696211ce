package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ecosync/backend/internal/models"
)

type MemoryUserService struct {
	store *MemoryStore
}

func NewMemoryUserService(store *MemoryStore) *MemoryUserService {
	return &MemoryUserService{store: store}
}

// newUser builds a user document from a registration body.
func newUser(req *models.RegisterRequest) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Email:        models.NormalizeEmail(req.Email),
		PasswordHash: string(hashedPassword),
		EcoPoints:    0,
		Level:        models.LevelForPoints(0),
		TrustScore:   models.DefaultTrustScore,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Coordinates != nil {
		p := models.PointFromLatLng(req.Coordinates)
		user.Location = &p
	}
	return user, nil
}

func checkPassword(user *models.User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *MemoryUserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	user, err := newUser(req)
	if err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if _, exists := s.store.byEmail[user.Email]; exists {
		return nil, ErrEmailExists
	}

	s.store.users[user.ID] = user
	s.store.byEmail[user.Email] = user.ID
	s.store.persist()

	userCopy := *user
	return &userCopy, nil
}

func (s *MemoryUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	userID, exists := s.store.byEmail[models.NormalizeEmail(email)]
	if !exists {
		return nil, ErrInvalidCredentials
	}

	user := s.store.users[userID]
	if err := checkPassword(user, password); err != nil {
		return nil, err
	}

	userCopy := *user
	return &userCopy, nil
}

func (s *MemoryUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	user, exists := s.store.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	userCopy := *user
	return &userCopy, nil
}

func (s *MemoryUserService) FindByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	found := make(map[string]*models.User, len(ids))
	for _, id := range ids {
		if user, ok := s.store.users[id]; ok {
			userCopy := *user
			found[id] = &userCopy
		}
	}
	return found, nil
}

func (s *MemoryUserService) UpdateProfile(ctx context.Context, callerID, id string, req *models.UpdateProfileRequest) (*models.User, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	user, exists := s.store.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}
	if callerID != id {
		return nil, ErrForbidden
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.ProfilePhoto != nil {
		user.ProfilePhoto = *req.ProfilePhoto
	}
	if req.Location != nil {
		loc := *req.Location
		user.Location = &loc
	}
	user.UpdatedAt = time.Now().UTC()
	s.store.persist()

	userCopy := *user
	return &userCopy, nil
}

func (s *MemoryUserService) AdjustPoints(ctx context.Context, id string, delta int) (*models.PointsResponse, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	res, err := s.store.adjustPointsLocked(id, delta)
	if err != nil {
		return nil, err
	}
	s.store.persist()
	return res, nil
}

// adjustPointsLocked must be called with mu held for writing.
func (s *MemoryStore) adjustPointsLocked(id string, delta int) (*models.PointsResponse, error) {
	user, exists := s.users[id]
	if !exists {
		return nil, ErrUserNotFound
	}

	user.EcoPoints += delta
	user.Level = models.LevelForPoints(user.EcoPoints)
	user.UpdatedAt = time.Now().UTC()

	return &models.PointsResponse{ID: user.ID, EcoPoints: user.EcoPoints, Level: user.Level}, nil
}

func (s *MemoryUserService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	limit = clampLeaderboardLimit(limit)

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	users := make([]*models.User, 0, len(s.store.users))
	for _, u := range s.store.users {
		users = append(users, u)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].EcoPoints != users[j].EcoPoints {
			return users[i].EcoPoints > users[j].EcoPoints
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	if len(users) > limit {
		users = users[:limit]
	}

	entries := make([]*models.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, &models.LeaderboardEntry{
			ID:           u.ID,
			Name:         u.Name,
			ProfilePhoto: u.ProfilePhoto,
			EcoPoints:    u.EcoPoints,
			Level:        u.Level,
			TrustScore:   u.TrustScore,
		})
	}
	return entries, nil
}
