package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/models"
)

type MemoryTransactionService struct {
	store *MemoryStore
	users UserService
	items ItemService
}

func NewMemoryTransactionService(store *MemoryStore, users UserService, items ItemService) *MemoryTransactionService {
	return &MemoryTransactionService{store: store, users: users, items: items}
}

// checkCreateTransaction validates the body and resolves the item and lender.
func checkCreateTransaction(ctx context.Context, users UserService, items ItemService, borrowerID string, req *models.CreateTransactionRequest) error {
	fields := req.Validate()
	if req.Lender != "" && req.Lender == borrowerID {
		fields["lender"] = "You cannot borrow from yourself"
	}
	if err := validationFrom(fields); err != nil {
		return err
	}

	if _, err := items.GetByID(ctx, req.Item); err != nil {
		return err
	}
	if _, err := users.GetByID(ctx, req.Lender); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrLenderNotFound
		}
		return err
	}
	return nil
}

func newTransaction(borrowerID string, req *models.CreateTransactionRequest) *models.Transaction {
	now := time.Now().UTC()
	pickup := now
	if req.PickupTime != nil {
		pickup = req.PickupTime.UTC()
	}
	return &models.Transaction{
		ID:         uuid.New().String(),
		ItemID:     req.Item,
		BorrowerID: borrowerID,
		LenderID:   req.Lender,
		Status:     models.TransactionStatusRequested,
		PickupTime: pickup,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// checkStatusChange rejects moving a transaction out of a terminal state.
// Transitions into completed go through Complete and are not checked here.
func checkStatusChange(current, next string) error {
	if current == next {
		return nil
	}
	switch current {
	case models.TransactionStatusCompleted:
		return NewValidationError("status", "Completed transactions cannot change status")
	case models.TransactionStatusCancelled:
		return NewValidationError("status", "Cancelled transactions cannot change status")
	}
	return nil
}

func errCannotComplete() error {
	return NewValidationError("status", "Cancelled transactions cannot be completed")
}

type completionAward struct {
	userID string
	points int
}

func completionAwards(t *models.Transaction) []completionAward {
	return []completionAward{
		{t.BorrowerID, models.BorrowerCompletionPoints},
		{t.LenderID, models.LenderCompletionPoints},
	}
}

// awardLedger records which participants of a completed transaction have
// been claimed for payout.
type awardLedger interface {
	releaseAward(ctx context.Context, txID, userID string) error
	markAwarded(ctx context.Context, t *models.Transaction) error
}

// payAwards credits the participants in claimed. A participant whose account
// no longer exists is skipped. If a credit fails, it and every later claim are
// released so the next Complete call pays them.
func payAwards(ctx context.Context, users UserService, ledger awardLedger, t *models.Transaction, claimed []completionAward) (bool, error) {
	paid := false
	for i, a := range claimed {
		_, err := users.AdjustPoints(ctx, a.userID, a.points)
		if err == nil {
			paid = true
			continue
		}
		if errors.Is(err, ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"transaction": t.ID,
				"user":        a.userID,
			}).Warn("completion award skipped: user not found")
			continue
		}

		for _, unpaid := range claimed[i:] {
			if rerr := ledger.releaseAward(ctx, t.ID, unpaid.userID); rerr != nil {
				logrus.WithError(rerr).WithFields(logrus.Fields{
					"transaction": t.ID,
					"user":        unpaid.userID,
				}).Error("failed to release completion award")
			}
		}
		return paid, err
	}

	if err := ledger.markAwarded(ctx, t); err != nil {
		return paid, err
	}
	t.PointsAwarded = true
	return paid, nil
}

func applyRating(t *models.Transaction, callerID string, req *models.RateTransactionRequest) error {
	rating := req.Rating
	switch req.RatingFor {
	case models.RatingForLender:
		if callerID != t.BorrowerID {
			return ErrForbidden
		}
		t.RatingLender = &rating
		t.ReviewLender = req.Review
	case models.RatingForBorrower:
		if callerID != t.LenderID {
			return ErrForbidden
		}
		t.RatingBorrower = &rating
		t.ReviewBorrower = req.Review
	default:
		return ErrForbidden
	}
	return nil
}

func sortNewestFirst(txs []*models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

func (s *MemoryTransactionService) populate(ctx context.Context, txs ...*models.Transaction) error {
	return attachTransactionRefs(ctx, s.users, s.items, txs)
}

func (s *MemoryTransactionService) List(ctx context.Context) ([]*models.Transaction, error) {
	return s.listWhere(ctx, func(*models.Transaction) bool { return true })
}

func (s *MemoryTransactionService) ListForUser(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return s.listWhere(ctx, func(t *models.Transaction) bool { return t.IsParticipant(userID) })
}

func (s *MemoryTransactionService) listWhere(ctx context.Context, keep func(*models.Transaction) bool) ([]*models.Transaction, error) {
	s.store.mu.RLock()
	results := make([]*models.Transaction, 0)
	for _, t := range s.store.transactions {
		if keep(t) {
			tCopy := *t
			results = append(results, &tCopy)
		}
	}
	s.store.mu.RUnlock()

	sortNewestFirst(results)
	if err := s.populate(ctx, results...); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *MemoryTransactionService) Create(ctx context.Context, borrowerID string, req *models.CreateTransactionRequest) (*models.Transaction, error) {
	if err := checkCreateTransaction(ctx, s.users, s.items, borrowerID, req); err != nil {
		return nil, err
	}

	t := newTransaction(borrowerID, req)

	s.store.mu.Lock()
	s.store.transactions[t.ID] = t
	s.store.persist()
	tCopy := *t
	s.store.mu.Unlock()

	if err := s.populate(ctx, &tCopy); err != nil {
		return nil, err
	}
	return &tCopy, nil
}

func (s *MemoryTransactionService) Update(ctx context.Context, callerID, id string, req *models.UpdateTransactionRequest) (*models.Transaction, bool, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, false, err
	}

	s.store.mu.Lock()
	t, exists := s.store.transactions[id]
	if !exists {
		s.store.mu.Unlock()
		return nil, false, ErrTransactionNotFound
	}
	if !t.IsParticipant(callerID) {
		s.store.mu.Unlock()
		return nil, false, ErrForbidden
	}

	completing := req.Status != nil && *req.Status == models.TransactionStatusCompleted
	if req.Status != nil && !completing {
		if err := checkStatusChange(t.Status, *req.Status); err != nil {
			s.store.mu.Unlock()
			return nil, false, err
		}
	}
	if completing && t.Status == models.TransactionStatusCancelled {
		s.store.mu.Unlock()
		return nil, false, errCannotComplete()
	}

	if req.PickupTime != nil {
		t.PickupTime = req.PickupTime.UTC()
	}
	if req.Status != nil && !completing {
		t.Status = *req.Status
	}
	t.UpdatedAt = time.Now().UTC()
	s.store.persist()
	tCopy := *t
	s.store.mu.Unlock()

	if completing {
		return s.Complete(ctx, callerID, id)
	}

	if err := s.populate(ctx, &tCopy); err != nil {
		return nil, false, err
	}
	return &tCopy, false, nil
}

// claimAwardsLocked marks every unpaid participant as claimed and returns
// them. Must be called with mu held for writing.
func claimAwardsLocked(t *models.Transaction) []completionAward {
	var claimed []completionAward
	for _, a := range completionAwards(t) {
		if slices.Contains(t.AwardedTo, a.userID) {
			continue
		}
		t.AwardedTo = append(t.AwardedTo, a.userID)
		claimed = append(claimed, a)
	}
	return claimed
}

func (s *MemoryTransactionService) releaseAward(_ context.Context, txID, userID string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	t, exists := s.store.transactions[txID]
	if !exists {
		return ErrTransactionNotFound
	}
	kept := t.AwardedTo[:0]
	for _, id := range t.AwardedTo {
		if id != userID {
			kept = append(kept, id)
		}
	}
	t.AwardedTo = kept
	s.store.persist()
	return nil
}

func (s *MemoryTransactionService) markAwarded(_ context.Context, tx *models.Transaction) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	t, exists := s.store.transactions[tx.ID]
	if !exists {
		return ErrTransactionNotFound
	}
	if slices.Contains(t.AwardedTo, t.BorrowerID) && slices.Contains(t.AwardedTo, t.LenderID) {
		t.PointsAwarded = true
		s.store.persist()
	}
	return nil
}

func (s *MemoryTransactionService) Complete(ctx context.Context, callerID, id string) (*models.Transaction, bool, error) {
	s.store.mu.Lock()
	t, exists := s.store.transactions[id]
	if !exists {
		s.store.mu.Unlock()
		return nil, false, ErrTransactionNotFound
	}
	if !t.IsParticipant(callerID) {
		s.store.mu.Unlock()
		return nil, false, ErrForbidden
	}

	completed := false
	var claimed []completionAward
	switch {
	case t.Status == models.TransactionStatusCompleted:
		if !t.PointsAwarded {
			claimed = claimAwardsLocked(t)
		}
	case models.IsCompletable(t.Status):
		now := time.Now().UTC()
		t.Status = models.TransactionStatusCompleted
		t.CompletedAt = &now
		t.UpdatedAt = now
		claimed = claimAwardsLocked(t)
		completed = true
	default:
		s.store.mu.Unlock()
		return nil, false, errCannotComplete()
	}
	if completed || len(claimed) > 0 {
		s.store.persist()
	}
	tCopy := *t
	tCopy.AwardedTo = nil
	s.store.mu.Unlock()

	awarded := completed
	if len(claimed) > 0 {
		paid, err := payAwards(ctx, s.users, s, &tCopy, claimed)
		if err != nil {
			return nil, false, err
		}
		awarded = awarded || paid
	}

	if err := s.populate(ctx, &tCopy); err != nil {
		return nil, false, err
	}
	return &tCopy, awarded, nil
}

func (s *MemoryTransactionService) Rate(ctx context.Context, callerID, id string, req *models.RateTransactionRequest) (*models.Transaction, error) {
	if err := validationFrom(req.Validate()); err != nil {
		return nil, err
	}

	s.store.mu.Lock()
	t, exists := s.store.transactions[id]
	if !exists {
		s.store.mu.Unlock()
		return nil, ErrTransactionNotFound
	}
	if err := applyRating(t, callerID, req); err != nil {
		s.store.mu.Unlock()
		return nil, err
	}
	t.UpdatedAt = time.Now().UTC()
	s.store.persist()
	tCopy := *t
	s.store.mu.Unlock()

	if err := s.populate(ctx, &tCopy); err != nil {
		return nil, err
	}
	return &tCopy, nil
}
