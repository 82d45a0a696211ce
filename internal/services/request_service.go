package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecosync/backend/internal/models"
)

type MemoryRequestService struct {
	store *MemoryStore
	users UserService
}

func NewMemoryRequestService(store *MemoryStore, users UserService) *MemoryRequestService {
	return &MemoryRequestService{store: store, users: users}
}

func newRequest(userID string, req *models.CreateRequestRequest) *models.Request {
	urgency := req.Urgency
	if urgency == "" {
		urgency = models.UrgencyNormal
	}

	now := time.Now().UTC()
	return &models.Request{
		ID:          uuid.New().String(),
		UserID:      userID,
		ItemName:    req.ItemName,
		Description: req.Description,
		Urgency:     urgency,
		Status:      models.RequestStatusActive,
		Location:    models.PointFromLatLng(req.Coordinates),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (s *MemoryRequestService) List(ctx context.Context) ([]*models.Request, error) {
	s.store.mu.RLock()
	results := make([]*models.Request, 0)
	for _, r := range s.store.requests {
		if r.Status == models.RequestStatusActive {
			rCopy := *r
			results = append(results, &rCopy)
		}
	}
	s.store.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if err := attachRequesters(ctx, s.users, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MemoryRequestService) ListNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Request, error) {
	maxDistance := maxDistanceOrDefault(q.MaxDistance)

	type hit struct {
		request  *models.Request
		distance float64
	}

	s.store.mu.RLock()
	hits := make([]hit, 0)
	for _, r := range s.store.requests {
		if r.Status != models.RequestStatusActive {
			continue
		}
		distance := haversineDistance(q.Lat, q.Lng, r.Location.Lat(), r.Location.Lng())
		if distance <= maxDistance {
			rCopy := *r
			hits = append(hits, hit{request: &rCopy, distance: distance})
		}
	}
	s.store.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].distance < hits[j].distance
	})

	results := make([]*models.Request, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.request)
	}
	if err := attachRequesters(ctx, s.users, results); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MemoryRequestService) Create(ctx context.Context, userID string, req *models.CreateRequestRequest) (*models.Request, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	r := newRequest(userID, req)

	s.store.mu.Lock()
	s.store.requests[r.ID] = r
	s.store.persist()
	rCopy := *r
	s.store.mu.Unlock()

	if err := attachRequesters(ctx, s.users, []*models.Request{&rCopy}); err != nil {
		return nil, err
	}
	return &rCopy, nil
}

func (s *MemoryRequestService) UpdateStatus(ctx context.Context, callerID, id, status string) (*models.Request, error) {
	body := models.UpdateRequestStatusRequest{Status: status}
	if err := validationFrom(body.Validate()); err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	r, exists := s.store.requests[id]
	if !exists {
		s.store.mu.Unlock()
		return nil, ErrRequestNotFound
	}
	if r.UserID != callerID {
		s.store.mu.Unlock()
		return nil, ErrForbidden
	}

	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	s.store.persist()
	rCopy := *r
	s.store.mu.Unlock()

	if err := attachRequesters(ctx, s.users, []*models.Request{&rCopy}); err != nil {
		return nil, err
	}
	return &rCopy, nil
}

func (s *MemoryRequestService) Delete(ctx context.Context, callerID, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	r, exists := s.store.requests[id]
	if !exists {
		return ErrRequestNotFound
	}
	if r.UserID != callerID {
		return ErrForbidden
	}

	delete(s.store.requests, id)
	s.store.persist()
	return nil
}

func (s *MemoryRequestService) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	var n int64
	now := time.Now().UTC()
	for _, r := range s.store.requests {
		if r.Status == models.RequestStatusActive && r.CreatedAt.Before(cutoff) {
			r.Status = models.RequestStatusExpired
			r.UpdatedAt = now
			n++
		}
	}
	if n > 0 {
		s.store.persist()
	}
	return n, nil
}
