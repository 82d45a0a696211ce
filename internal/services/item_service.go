package services

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ecosync/backend/internal/models"
)

type MemoryItemService struct {
	store *MemoryStore
	users UserService
}

func NewMemoryItemService(store *MemoryStore, users UserService) *MemoryItemService {
	return &MemoryItemService{store: store, users: users}
}

// newItem builds an item document from a create body.
func newItem(ownerID string, req *models.CreateItemRequest) *models.Item {
	now := time.Now().UTC()
	item := &models.Item{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Type:        req.Type,
		ImageURL:    req.ImageURL,
		Status:      models.ItemStatusAvailable,
		Location:    models.PointFromLatLng(req.Coordinates),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	return item
}

func (s *MemoryItemService) List(ctx context.Context) ([]*models.Item, error) {
	s.store.mu.RLock()
	results := make([]*models.Item, 0)
	for _, item := range s.store.items {
		if item.Status == models.ItemStatusAvailable {
			itemCopy := *item
			results = append(results, &itemCopy)
		}
	}
	s.store.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt.After(results[j].CreatedAt)
	})

	if err := attachOwners(ctx, s.users, results, false); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MemoryItemService) ListNearby(ctx context.Context, q models.NearbyQuery) ([]*models.Item, error) {
	maxDistance := maxDistanceOrDefault(q.MaxDistance)

	type hit struct {
		item     *models.Item
		distance float64
	}

	s.store.mu.RLock()
	hits := make([]hit, 0)
	for _, item := range s.store.items {
		if item.Status != models.ItemStatusAvailable {
			continue
		}
		if q.Category != "" && item.Category != q.Category {
			continue
		}
		distance := haversineDistance(q.Lat, q.Lng, item.Location.Lat(), item.Location.Lng())
		if distance <= maxDistance {
			itemCopy := *item
			hits = append(hits, hit{item: &itemCopy, distance: distance})
		}
	}
	s.store.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].distance < hits[j].distance
	})

	results := make([]*models.Item, 0, len(hits))
	for _, h := range hits {
		results = append(results, h.item)
	}
	if err := attachOwners(ctx, s.users, results, false); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MemoryItemService) GetByID(ctx context.Context, id string) (*models.Item, error) {
	s.store.mu.RLock()
	item, exists := s.store.items[id]
	if !exists {
		s.store.mu.RUnlock()
		return nil, ErrItemNotFound
	}
	itemCopy := *item
	s.store.mu.RUnlock()

	if err := attachOwners(ctx, s.users, []*models.Item{&itemCopy}, true); err != nil {
		return nil, err
	}
	return &itemCopy, nil
}

func (s *MemoryItemService) FindByIDs(ctx context.Context, ids []string) (map[string]*models.Item, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	found := make(map[string]*models.Item, len(ids))
	for _, id := range ids {
		if item, ok := s.store.items[id]; ok {
			itemCopy := *item
			found[id] = &itemCopy
		}
	}
	return found, nil
}

func (s *MemoryItemService) Create(ctx context.Context, ownerID string, req *models.CreateItemRequest) (*models.Item, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	item := newItem(ownerID, req)

	s.store.mu.Lock()
	s.store.items[item.ID] = item
	s.store.persist()
	itemCopy := *item
	s.store.mu.Unlock()

	if err := attachOwners(ctx, s.users, []*models.Item{&itemCopy}, false); err != nil {
		return nil, err
	}
	return &itemCopy, nil
}

func (s *MemoryItemService) Update(ctx context.Context, callerID, id string, req *models.UpdateItemRequest) (*models.Item, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	item, exists := s.store.items[id]
	if !exists {
		s.store.mu.Unlock()
		return nil, ErrItemNotFound
	}
	if item.OwnerID != callerID {
		s.store.mu.Unlock()
		return nil, ErrForbidden
	}

	req.Apply(item)
	item.UpdatedAt = time.Now().UTC()
	s.store.persist()
	itemCopy := *item
	s.store.mu.Unlock()

	if err := attachOwners(ctx, s.users, []*models.Item{&itemCopy}, false); err != nil {
		return nil, err
	}
	return &itemCopy, nil
}

func (s *MemoryItemService) Delete(ctx context.Context, callerID, id string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	item, exists := s.store.items[id]
	if !exists {
		return ErrItemNotFound
	}
	if item.OwnerID != callerID {
		return ErrForbidden
	}

	delete(s.store.items, id)
	s.store.persist()
	return nil
}
