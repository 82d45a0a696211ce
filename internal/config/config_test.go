package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("JWT_EXPIRATION", "2h")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com,")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "4")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("MODERATION_ENABLED", "true")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("LEADERBOARD_TTL", "30s")
	t.Setenv("SWEEP_SCHEDULE", "@hourly")
	t.Setenv("HEALTH_ADDRESS", ":9191")

	cfg := Load()

	assert.Equal(t, ":9090", cfg.ServerAddress)
	assert.Equal(t, 2*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, int64(4), cfg.MaxUploadSizeMB)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.True(t, cfg.ModerationEnabled)
	assert.Equal(t, 2, cfg.RedisDB)
	assert.Equal(t, 30*time.Second, cfg.LeaderboardTTL)
	assert.Equal(t, "@hourly", cfg.SweepSchedule)
	assert.Equal(t, ":9191", cfg.HealthAddress)
}

func TestLoadFallsBackOnBadValues(t *testing.T) {
	t.Setenv("JWT_EXPIRATION", "a week")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "ten")
	t.Setenv("MODERATION_ENABLED", "maybe")
	t.Setenv("REQUEST_TTL", "")
	t.Setenv("ALLOWED_ORIGINS", "  ")
	t.Setenv("MONGODB_DB", "ecosync")

	cfg := Load()

	assert.Equal(t, 7*24*time.Hour, cfg.JWTExpiration)
	assert.Equal(t, int64(10), cfg.MaxUploadSizeMB)
	assert.False(t, cfg.ModerationEnabled)
	assert.Equal(t, 24*time.Hour, cfg.RequestTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "ecosync", cfg.MongoDB)
}
