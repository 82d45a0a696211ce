package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ecosync/backend/internal/config"
	"github.com/ecosync/backend/internal/handlers"
	"github.com/ecosync/backend/internal/logging"
	"github.com/ecosync/backend/internal/services"
	"github.com/ecosync/backend/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logging.Configure(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	routerCfg := handlers.RouterConfig{
		JWTSecret:       cfg.JWTSecret,
		JWTExpiration:   cfg.JWTExpiration,
		AllowedOrigins:  cfg.AllowedOrigins,
		MaxUploadSizeMB: cfg.MaxUploadSizeMB,
	}

	var mongoClient *mongo.Client
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
		client, db, err := storage.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			cancel()
			log.WithError(err).Fatal("failed to connect to MongoDB")
		}
		if err := storage.EnsureIndexes(connectCtx, db); err != nil {
			cancel()
			log.WithError(err).Fatal("failed to create indexes")
		}
		cancel()
		mongoClient = client

		routerCfg.Users = withLeaderboardCache(ctx, cfg, log, services.NewMongoUserService(db))
		routerCfg.Items = services.NewMongoItemService(db, routerCfg.Users)
		routerCfg.Requests = services.NewMongoRequestService(db, routerCfg.Users)
		routerCfg.Transactions = services.NewMongoTransactionService(db, routerCfg.Users, routerCfg.Items)
	} else {
		store := services.NewMemoryStore()
		if cfg.DataDir != "" {
			var err error
			if store, err = services.NewPersistentMemoryStore(cfg.DataDir); err != nil {
				log.WithError(err).Fatal("failed to load data snapshot")
			}
		}
		log.Warn("MONGODB_URI not set, using the in-process store")

		routerCfg.Users = withLeaderboardCache(ctx, cfg, log, services.NewMemoryUserService(store))
		routerCfg.Items = services.NewMemoryItemService(store, routerCfg.Users)
		routerCfg.Requests = services.NewMemoryRequestService(store, routerCfg.Users)
		routerCfg.Transactions = services.NewMemoryTransactionService(store, routerCfg.Users, routerCfg.Items)
	}

	routerCfg.Images = newImageService(ctx, cfg, log)
	if cfg.UploadBucket == "" {
		routerCfg.UploadDir = cfg.UploadDir
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           handlers.NewRouter(routerCfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ServerAddress).Info("EcoSync API server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.WithError(err).Warn("MongoDB disconnect failed")
		}
	}
	log.Info("server exited")
}

func withLeaderboardCache(ctx context.Context, cfg *config.Config, log *logrus.Logger, users services.UserService) services.UserService {
	if cfg.RedisAddr == "" {
		return users
	}
	rdb, err := services.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, leaderboard cache disabled")
		return users
	}
	log.WithField("addr", cfg.RedisAddr).Info("leaderboard cache enabled")
	return services.NewCachedUserService(users, rdb, cfg.LeaderboardTTL)
}

func newImageService(ctx context.Context, cfg *config.Config, log *logrus.Logger) *services.ImageService {
	var store services.ImageStore
	if cfg.UploadBucket != "" {
		gcs, err := services.NewGCSImageStore(ctx, cfg.UploadBucket)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize Cloud Storage")
		}
		store = gcs
	} else {
		local, err := services.NewLocalImageStore(cfg.UploadDir)
		if err != nil {
			log.WithError(err).Fatal("failed to create upload directory")
		}
		store = local
	}

	var moderator services.ImageModerator
	if cfg.ModerationEnabled {
		m, err := services.NewSafeSearchModerator(ctx)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize image moderation")
		}
		moderator = m
	}

	return services.NewImageService(store, moderator)
}
