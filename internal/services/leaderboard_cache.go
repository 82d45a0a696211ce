package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/models"
)

// leaderboardKey is a hash of limit -> encoded entries.
const leaderboardKey = "ecosync:leaderboard"

// CachedUserService serves Leaderboard from Redis and drops the cache
// whenever points change. Cache failures fall through to the wrapped service.
type CachedUserService struct {
	UserService
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedUserService(users UserService, rdb *redis.Client, ttl time.Duration) *CachedUserService {
	return &CachedUserService{UserService: users, rdb: rdb, ttl: ttl}
}

func (s *CachedUserService) Leaderboard(ctx context.Context, limit int) ([]*models.LeaderboardEntry, error) {
	limit = clampLeaderboardLimit(limit)
	field := strconv.Itoa(limit)

	raw, err := s.rdb.HGet(ctx, leaderboardKey, field).Bytes()
	if err == nil {
		var entries []*models.LeaderboardEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
	} else if err != redis.Nil {
		logrus.WithError(err).Warn("leaderboard cache read failed")
	}

	entries, err := s.UserService.Leaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(entries); err == nil {
		pipe := s.rdb.TxPipeline()
		pipe.HSet(ctx, leaderboardKey, field, encoded)
		pipe.Expire(ctx, leaderboardKey, s.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithError(err).Warn("leaderboard cache write failed")
		}
	}
	return entries, nil
}

func (s *CachedUserService) AdjustPoints(ctx context.Context, id string, delta int) (*models.PointsResponse, error) {
	res, err := s.UserService.AdjustPoints(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return res, nil
}

// UpdateProfile also invalidates: names and photos are part of each entry.
func (s *CachedUserService) UpdateProfile(ctx context.Context, callerID, id string, req *models.UpdateProfileRequest) (*models.User, error) {
	u, err := s.UserService.UpdateProfile(ctx, callerID, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return u, nil
}

func (s *CachedUserService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	u, err := s.UserService.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return u, nil
}

func (s *CachedUserService) invalidate(ctx context.Context) {
	if err := s.rdb.Del(ctx, leaderboardKey).Err(); err != nil {
		logrus.WithError(err).Warn("leaderboard cache invalidation failed")
	}
}

// NewRedisClient connects and pings the server.
func NewRedisClient(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
