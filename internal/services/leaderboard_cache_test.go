package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosync/backend/internal/models"
)

func newCachedUsers(t *testing.T) (*CachedUserService, *MemoryUserService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	inner := NewMemoryUserService(NewMemoryStore())
	return NewCachedUserService(inner, rdb, time.Minute), inner, mr
}

func TestCachedLeaderboardServesFromRedis(t *testing.T) {
	ctx := context.Background()
	cached, inner, mr := newCachedUsers(t)

	u := registerUser(t, cached, "Ana", "ana@example.com")
	_, err := cached.AdjustPoints(ctx, u.ID, 40)
	require.NoError(t, err)

	first, err := cached.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 40, first[0].EcoPoints)
	assert.True(t, mr.Exists(leaderboardKey))
	assert.Equal(t, time.Minute, mr.TTL(leaderboardKey))

	// Bypass the decorator; the cached copy stays stale until invalidated.
	_, err = inner.AdjustPoints(ctx, u.ID, 100)
	require.NoError(t, err)

	second, err := cached.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 40, second[0].EcoPoints)
}

func TestCachedLeaderboardInvalidatesOnPointsChange(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedUsers(t)

	u := registerUser(t, cached, "Ana", "ana@example.com")
	_, err := cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.True(t, mr.Exists(leaderboardKey))

	_, err = cached.AdjustPoints(ctx, u.ID, 25)
	require.NoError(t, err)
	assert.False(t, mr.Exists(leaderboardKey))

	entries, err := cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 25, entries[0].EcoPoints)
}

func TestCachedLeaderboardInvalidatesOnProfileAndRegister(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedUsers(t)

	u := registerUser(t, cached, "Ana", "ana@example.com")
	_, err := cached.Leaderboard(ctx, 10)
	require.NoError(t, err)

	name := "Ana Maria"
	_, err = cached.UpdateProfile(ctx, u.ID, u.ID, &models.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.False(t, mr.Exists(leaderboardKey))

	_, err = cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	registerUser(t, cached, "Ben", "ben@example.com")
	assert.False(t, mr.Exists(leaderboardKey))

	entries, err := cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCachedLeaderboardFallsThroughWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedUsers(t)

	u := registerUser(t, cached, "Ana", "ana@example.com")
	mr.Close()

	res, err := cached.AdjustPoints(ctx, u.ID, 60)
	require.NoError(t, err)
	assert.Equal(t, 60, res.EcoPoints)

	entries, err := cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 60, entries[0].EcoPoints)
}

func TestCompletionThroughCacheInvalidates(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCachedUsers(t)

	store := NewMemoryStore()
	cached.UserService = NewMemoryUserService(store)
	items := NewMemoryItemService(store, cached)
	txs := NewMemoryTransactionService(store, cached, items)

	lender := registerUser(t, cached, "Lender", "lender@example.com")
	borrower := registerUser(t, cached, "Borrower", "borrower@example.com")
	item := createItem(t, items, lender.ID, "tools", []float64{1, 1})
	tx, err := txs.Create(ctx, borrower.ID, &models.CreateTransactionRequest{Item: item.ID, Lender: lender.ID})
	require.NoError(t, err)

	_, err = cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.True(t, mr.Exists(leaderboardKey))

	_, _, err = txs.Complete(ctx, borrower.ID, tx.ID)
	require.NoError(t, err)
	assert.False(t, mr.Exists(leaderboardKey))

	entries, err := cached.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, lender.ID, entries[0].ID)
	assert.Equal(t, 25, entries[0].EcoPoints)
}
