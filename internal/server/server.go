package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/minishop/apiserver/config"
	"github.com/minishop/apiserver/internal/clock"
	"github.com/minishop/apiserver/internal/db"
	"github.com/minishop/apiserver/internal/handlers"
	"github.com/minishop/apiserver/internal/mq"
	"github.com/minishop/apiserver/internal/services"
	"github.com/minishop/apiserver/internal/storage"
	"github.com/minishop/apiserver/internal/store"
	"github.com/minishop/apiserver/internal/token"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     *mq.MQ
}

// New constructs a Server with its dependencies wired from config.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if strings.TrimSpace(cfg.Auth.SecretKey) == "" {
		return nil, errors.New("SECRET_KEY is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	imageStore, err := newImageStore(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if err := imageStore.EnsureBucket(ctx); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("ensure image bucket: %w", err)
	}

	broker, err := newBroker(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	productRepo := store.NewProductRepository(dbConn)
	orderRepo := store.NewOrderRepository(dbConn)

	userService := services.NewUserService(userRepo)
	catalogService := services.NewCatalogService(productRepo, imageStore)

	var publisher services.EventPublisher
	if broker != nil {
		publisher = broker
	}
	orderService := services.NewOrderService(orderRepo, publisher, cfg.MQ.OrderChannel)

	tokenService := token.NewService(cfg.Auth.SecretKey, cfg.Auth.TokenTTL, clock.NewSystem())
	authHandler := handlers.NewAuthHandler(userService, tokenService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		r.Get("/hello", handlers.Hello)
	})
	router.Route("/user", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
		handlers.OrderRouter(r, orderService)
	})
	router.Route("/shop", func(r chi.Router) {
		handlers.ShopRouter(r, catalogService, orderService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}

func newImageStore(ctx context.Context, cfg config.StorageConfig) (*storage.ImageStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "minio":
		backend, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewImageStore(backend), nil
	case "gcs":
		backend, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewImageStore(backend), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// NewBroker builds the configured message broker, or nil when events are
// disabled.
func NewBroker(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	return newBroker(ctx, cfg)
}

func newBroker(ctx context.Context, cfg config.MQConfig) (*mq.MQ, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return nil, nil
	case "rabbitmq":
		backend, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	case "pubsub":
		backend, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(backend), nil
	default:
		return nil, fmt.Errorf("unknown mq backend %q", cfg.Backend)
	}
}
