package services

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/storage"
)

// MemoryStore holds every collection behind one lock. A transaction's status
// flips to completed once, under that lock; points are paid after it is
// released.
type MemoryStore struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	byEmail      map[string]string // email -> userID
	items        map[string]*models.Item
	requests     map[string]*models.Request
	transactions map[string]*models.Transaction
	snapshot     *storage.JSONStore
}

type memorySnapshot struct {
	Users        []*models.User        `bson:"users"`
	Items        []*models.Item        `bson:"items"`
	Requests     []*models.Request     `bson:"requests"`
	Transactions []*models.Transaction `bson:"transactions"`
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[string]*models.User),
		byEmail:      make(map[string]string),
		items:        make(map[string]*models.Item),
		requests:     make(map[string]*models.Request),
		transactions: make(map[string]*models.Transaction),
	}
}

// NewPersistentMemoryStore loads dataDir/ecosync.json if present and writes
// the whole store back after every mutation.
func NewPersistentMemoryStore(dataDir string) (*MemoryStore, error) {
	js, err := storage.NewJSONStore(dataDir, "ecosync.json")
	if err != nil {
		return nil, err
	}

	var snap memorySnapshot
	if err := js.Load(&snap); err != nil {
		return nil, err
	}

	s := NewMemoryStore()
	s.snapshot = js
	for _, u := range snap.Users {
		s.users[u.ID] = u
		s.byEmail[u.Email] = u.ID
	}
	for _, it := range snap.Items {
		s.items[it.ID] = it
	}
	for _, r := range snap.Requests {
		s.requests[r.ID] = r
	}
	for _, t := range snap.Transactions {
		s.transactions[t.ID] = t
	}

	logrus.WithFields(logrus.Fields{
		"path":         js.Path(),
		"users":        len(s.users),
		"items":        len(s.items),
		"requests":     len(s.requests),
		"transactions": len(s.transactions),
	}).Info("memory store loaded")
	return s, nil
}

// persist must be called with mu held for writing.
func (s *MemoryStore) persist() {
	if s.snapshot == nil {
		return
	}

	snap := memorySnapshot{
		Users:        make([]*models.User, 0, len(s.users)),
		Items:        make([]*models.Item, 0, len(s.items)),
		Requests:     make([]*models.Request, 0, len(s.requests)),
		Transactions: make([]*models.Transaction, 0, len(s.transactions)),
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}
	for _, it := range s.items {
		snap.Items = append(snap.Items, it)
	}
	for _, r := range s.requests {
		snap.Requests = append(snap.Requests, r)
	}
	for _, t := range s.transactions {
		snap.Transactions = append(snap.Transactions, t)
	}

	if err := s.snapshot.Save(&snap); err != nil {
		logrus.WithError(err).Error("failed to save memory store snapshot")
	}
}
