package services

import (
	"context"

	"github.com/ecosync/backend/internal/models"
)

// userSummaries resolves ids to embedded summaries in one lookup. Ids with
// no matching user map to a summary carrying only the id.
func userSummaries(ctx context.Context, users UserService, ids []string, extended bool) (map[string]*models.UserSummary, error) {
	found, err := users.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}

	out := make(map[string]*models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := found[id]; ok {
			out[id] = u.Summary(extended)
		} else {
			out[id] = &models.UserSummary{ID: id}
		}
	}
	return out, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func attachOwners(ctx context.Context, users UserService, items []*models.Item, extended bool) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.OwnerID)
	}
	summaries, err := userSummaries(ctx, users, ids, extended)
	if err != nil {
		return err
	}
	for _, it := range items {
		it.Owner = summaries[it.OwnerID]
	}
	return nil
}

func attachRequesters(ctx context.Context, users UserService, requests []*models.Request) error {
	if len(requests) == 0 {
		return nil
	}
	ids := make([]string, 0, len(requests))
	for _, r := range requests {
		ids = append(ids, r.UserID)
	}
	summaries, err := userSummaries(ctx, users, ids, false)
	if err != nil {
		return err
	}
	for _, r := range requests {
		s := summaries[r.UserID]
		r.User = &models.UserSummary{ID: s.ID, Name: s.Name, ProfilePhoto: s.ProfilePhoto}
	}
	return nil
}

func attachTransactionRefs(ctx context.Context, users UserService, items ItemService, txs []*models.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	userIDs := make([]string, 0, len(txs)*2)
	itemIDs := make([]string, 0, len(txs))
	for _, t := range txs {
		userIDs = append(userIDs, t.BorrowerID, t.LenderID)
		itemIDs = append(itemIDs, t.ItemID)
	}

	summaries, err := userSummaries(ctx, users, userIDs, false)
	if err != nil {
		return err
	}
	found, err := items.FindByIDs(ctx, uniqueIDs(itemIDs))
	if err != nil {
		return err
	}

	for _, t := range txs {
		t.Borrower = nameOnly(summaries[t.BorrowerID])
		t.Lender = nameOnly(summaries[t.LenderID])
		if it, ok := found[t.ItemID]; ok {
			t.Item = &models.ItemSummary{ID: it.ID, Title: it.Title, ImageURL: it.ImageURL}
		} else {
			t.Item = &models.ItemSummary{ID: t.ItemID}
		}
	}
	return nil
}

func nameOnly(s *models.UserSummary) *models.UserSummary {
	return &models.UserSummary{ID: s.ID, Name: s.Name, ProfilePhoto: s.ProfilePhoto}
}
