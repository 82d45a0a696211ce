package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosync/backend/internal/models"
	"github.com/ecosync/backend/internal/services"
)

func TestSweepExpiresOldRequests(t *testing.T) {
	ctx := context.Background()
	store := services.NewMemoryStore()
	users := services.NewMemoryUserService(store)
	requests := services.NewMemoryRequestService(store, users)

	_, err := requests.Create(ctx, "user-1", &models.CreateRequestRequest{ItemName: "Drill", Coordinates: []float64{1, 1}})
	require.NoError(t, err)

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)

	// A zero TTL makes every request older than the cutoff.
	time.Sleep(5 * time.Millisecond)
	newSweep(requests, 0, log)(ctx)

	active, err := requests.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Contains(t, buf.String(), "expired=1")

	buf.Reset()
	newSweep(requests, time.Hour, log)(ctx)
	assert.Contains(t, buf.String(), "expired=0")
}
