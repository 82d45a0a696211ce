package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/ecosync/backend/internal/config"
	"github.com/ecosync/backend/internal/logging"
	"github.com/ecosync/backend/internal/metrics"
	"github.com/ecosync/backend/internal/services"
	"github.com/ecosync/backend/internal/storage"
)

// The sweeper marks active requests older than REQUEST_TTL as expired.
func main() {
	cfg := config.Load()
	log := logging.Configure(cfg.LogLevel, cfg.LogFormat)

	if cfg.MongoURI == "" {
		log.Fatal("MONGODB_URI is required")
	}

	ctx := context.Background()
	connectCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	client, db, err := storage.Connect(connectCtx, cfg.MongoURI, cfg.MongoDB)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	requests := services.NewMongoRequestService(db, services.NewMongoUserService(db))
	sweep := newSweep(requests, cfg.RequestTTL, log)

	c := cron.New()
	if _, err := c.AddFunc(cfg.SweepSchedule, func() { sweep(ctx) }); err != nil {
		log.WithError(err).WithField("schedule", cfg.SweepSchedule).Fatal("invalid sweep schedule")
	}
	c.Start()
	log.WithFields(logrus.Fields{"schedule": cfg.SweepSchedule, "ttl": cfg.RequestTTL}).Info("beacon-sweeper started")

	// Health and metrics for the platform.
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.HealthAddress, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("health server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopped := c.Stop()
	<-stopped.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 5*time.Second)
	defer cancelShutdown()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("beacon-sweeper exited")
}

// newSweep returns one sweep pass over requests.
func newSweep(requests services.RequestService, ttl time.Duration, log *logrus.Logger) func(context.Context) {
	return func(ctx context.Context) {
		cutoff := time.Now().UTC().Add(-ttl)
		n, err := requests.ExpireStale(ctx, cutoff)
		if err != nil {
			log.WithError(err).Error("sweep failed")
			return
		}
		metrics.RecordRequestsExpired(n)
		log.WithFields(logrus.Fields{"expired": n, "cutoff": cutoff}).Info("sweep finished")
	}
}
