package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosync/backend/internal/handlers"
	"github.com/ecosync/backend/internal/services"
	"github.com/ecosync/backend/pkg/client"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := services.NewMemoryStore()
	users := services.NewMemoryUserService(store)
	items := services.NewMemoryItemService(store, users)

	srv := httptest.NewServer(handlers.NewRouter(handlers.RouterConfig{
		JWTSecret:     "client-test-secret",
		JWTExpiration: time.Hour,
		Users:         users,
		Items:         items,
		Requests:      services.NewMemoryRequestService(store, users),
		Transactions:  services.NewMemoryTransactionService(store, users, items),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func register(t *testing.T, c *client.Client, name, email string) *client.User {
	t.Helper()
	res, err := c.Register(context.Background(), client.RegisterRequest{Name: name, Email: email, Password: "secret123"})
	require.NoError(t, err)
	return &res.User
}

func TestClientAuthSession(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := client.New(srv.URL+"/", nil)

	assert.False(t, c.Session().Authenticated())
	u := register(t, c, "Ana", "ana@example.com")
	assert.True(t, c.Session().Authenticated())
	assert.Equal(t, u.ID, c.Session().User().ID)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", me.Email)

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.Session().Authenticated())

	_, err = c.Me(ctx)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = c.Login(ctx, "ana@example.com", "wrong-password")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	_, err = c.Login(ctx, "ana@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, c.Session().Authenticated())
}

func TestClientValidationError(t *testing.T) {
	srv := newTestServer(t)
	c := client.New(srv.URL, nil)

	_, err := c.Register(context.Background(), client.RegisterRequest{Name: "Ana"})
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Fields, "email")
	assert.Contains(t, apiErr.Error(), "400")
}

func TestClientItemsAndRequests(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := client.New(srv.URL, nil)
	register(t, c, "Owner", "owner@example.com")

	item, err := c.CreateItem(ctx, client.CreateItemRequest{
		Title:       "Kayak",
		Description: "Two seater",
		Category:    "outdoor",
		Type:        "rent",
		Coordinates: []float64{51.5072, -0.1276},
	})
	require.NoError(t, err)
	assert.Equal(t, "available", item.Status)

	title := "Kayak with paddles"
	updated, err := c.UpdateItem(ctx, item.ID, client.UpdateItemRequest{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	nearby, err := c.NearbyItems(ctx, -0.1276, 51.5072, 1000, "outdoor")
	require.NoError(t, err)
	require.Len(t, nearby, 1)
	assert.Equal(t, item.ID, nearby[0].ID)

	list, err := c.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, c.DeleteItem(ctx, item.ID))
	_, err = c.GetItem(ctx, item.ID)
	var apiErr *client.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)

	r, err := c.CreateRequest(ctx, client.CreateRequestRequest{ItemName: "Tent", Coordinates: []float64{51.5072, -0.1276}})
	require.NoError(t, err)
	beacons, err := c.NearbyRequests(ctx, -0.1276, 51.5072, 0)
	require.NoError(t, err)
	assert.Len(t, beacons, 1)

	r, err = c.UpdateRequestStatus(ctx, r.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, "cancelled", r.Status)

	active, err := c.ListRequests(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	require.NoError(t, c.DeleteRequest(ctx, r.ID))
}

func TestClientTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	lenderClient := client.New(srv.URL, nil)
	lender := register(t, lenderClient, "Lender", "lender@example.com")
	borrowerClient := client.New(srv.URL, nil)
	borrower := register(t, borrowerClient, "Borrower", "borrower@example.com")

	item, err := lenderClient.CreateItem(ctx, client.CreateItemRequest{
		Title:       "Sewing machine",
		Description: "Works well",
		Category:    "other",
		Type:        "lend",
		Coordinates: []float64{48.8566, 2.3522},
	})
	require.NoError(t, err)

	tx, err := borrowerClient.CreateTransaction(ctx, client.CreateTransactionRequest{Item: item.ID, Lender: lender.ID})
	require.NoError(t, err)

	accepted := "accepted"
	tx, err = lenderClient.UpdateTransaction(ctx, tx.ID, client.UpdateTransactionRequest{Status: &accepted})
	require.NoError(t, err)
	assert.Equal(t, accepted, tx.Status)

	tx, err = borrowerClient.CompleteTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", tx.Status)
	assert.True(t, tx.PointsAwarded)

	tx, err = borrowerClient.RateTransaction(ctx, tx.ID, client.RateTransactionRequest{Rating: 5, RatingFor: "lender"})
	require.NoError(t, err)
	require.NotNil(t, tx.RatingLender)

	mine, err := borrowerClient.UserTransactions(ctx, borrower.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	all, err := lenderClient.ListTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	board, err := lenderClient.Leaderboard(ctx, 2)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, lender.ID, board[0].ID)
	assert.Equal(t, 25, board[0].EcoPoints)
	assert.Equal(t, 15, board[1].EcoPoints)

	pts, err := lenderClient.UpdatePoints(ctx, borrower.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 65, pts.EcoPoints)
	assert.Equal(t, "sapling", pts.Level)

	name := "Lender Co"
	profile, err := lenderClient.UpdateProfile(ctx, lender.ID, client.UpdateProfileRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, profile.Name)

	got, err := borrowerClient.GetUser(ctx, lender.ID)
	require.NoError(t, err)
	assert.Equal(t, name, got.Name)
}
