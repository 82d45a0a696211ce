package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerAddress   string
	JWTSecret       string
	JWTExpiration   time.Duration
	AllowedOrigins  []string
	UploadDir       string
	MaxUploadSizeMB int64

	// MongoURI selects the MongoDB backend; empty runs the in-process store.
	MongoURI string
	MongoDB  string
	DataDir  string

	// UploadBucket stores images in Cloud Storage instead of UploadDir.
	UploadBucket      string
	ModerationEnabled bool

	RedisAddr      string
	RedisDB        int
	LeaderboardTTL time.Duration

	LogLevel  string
	LogFormat string

	RequestTTL    time.Duration
	SweepSchedule string
	// HealthAddress is where the sweeper serves health and metrics.
	HealthAddress string
}

// Load reads configuration from the environment, after an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerAddress:   getEnv("SERVER_ADDRESS", ":8080"),
		JWTSecret:       getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTExpiration:   getDuration("JWT_EXPIRATION", 7*24*time.Hour),
		AllowedOrigins:  getList("ALLOWED_ORIGINS", []string{"*"}),
		UploadDir:       getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadSizeMB: int64(getInt("MAX_UPLOAD_SIZE_MB", 10)),

		MongoURI: getEnv("MONGODB_URI", ""),
		MongoDB:  getEnv("MONGODB_DB", "ecosync"),
		DataDir:  getEnv("DATA_DIR", ""),

		UploadBucket:      getEnv("UPLOAD_BUCKET", ""),
		ModerationEnabled: getBool("MODERATION_ENABLED", false),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisDB:        getInt("REDIS_DB", 0),
		LeaderboardTTL: getDuration("LEADERBOARD_TTL", time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		RequestTTL:    getDuration("REQUEST_TTL", 24*time.Hour),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@every 15m"),
		HealthAddress: getEnv("HEALTH_ADDRESS", ":8081"),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return b
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return d
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
