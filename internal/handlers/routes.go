package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ecosync/backend/internal/metrics"
	appMiddleware "github.com/ecosync/backend/internal/middleware"
	"github.com/ecosync/backend/internal/services"
)

// RouterConfig carries everything the route table needs.
type RouterConfig struct {
	JWTSecret       string
	JWTExpiration   time.Duration
	AllowedOrigins  []string
	UploadDir       string // served at /uploads/ when set
	MaxUploadSizeMB int64

	Users        services.UserService
	Items        services.ItemService
	Requests     services.RequestService
	Transactions services.TransactionService
	Images       *services.ImageService
}

func NewRouter(cfg RouterConfig) http.Handler {
	authHandler := NewAuthHandler(cfg.Users, cfg.JWTSecret, cfg.JWTExpiration)
	userHandler := NewUserHandler(cfg.Users)
	itemHandler := NewItemHandler(cfg.Items)
	requestHandler := NewRequestHandler(cfg.Requests)
	transactionHandler := NewTransactionHandler(cfg.Transactions)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", metrics.Handler())

	requireAuth := appMiddleware.JWTAuth(cfg.JWTSecret)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(requireAuth).Get("/me", authHandler.Me)
			r.With(requireAuth).Post("/logout", authHandler.Logout)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.ListItems)
			r.Get("/nearby", itemHandler.ListNearbyItems)
			r.Get("/{id}", itemHandler.GetItem)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", itemHandler.CreateItem)
				r.Patch("/{id}", itemHandler.UpdateItem)
				r.Delete("/{id}", itemHandler.DeleteItem)
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", requestHandler.ListRequests)
			r.Get("/nearby", requestHandler.ListNearbyRequests)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", requestHandler.CreateRequest)
				r.Patch("/{id}", requestHandler.UpdateRequest)
				r.Delete("/{id}", requestHandler.DeleteRequest)
			})
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", transactionHandler.ListTransactions)
			r.Get("/user/{userId}", transactionHandler.ListUserTransactions)
			r.Post("/", transactionHandler.CreateTransaction)
			r.Patch("/{id}", transactionHandler.UpdateTransaction)
			r.Post("/{id}/complete", transactionHandler.CompleteTransaction)
			r.Patch("/{id}/rate", transactionHandler.RateTransaction)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/leaderboard", userHandler.Leaderboard)
			r.Get("/{id}", userHandler.GetUser)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Patch("/{id}", userHandler.UpdateUser)
				r.Patch("/{id}/points", userHandler.UpdatePoints)
			})
		})

		if cfg.Images != nil {
			imageHandler := NewImageHandler(cfg.Images, cfg.MaxUploadSizeMB)
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/upload", imageHandler.Upload)
				r.Delete("/upload/{imageId}", imageHandler.Delete)
			})
		}
	})

	// Serve uploaded files
	if cfg.UploadDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	}

	return r
}
