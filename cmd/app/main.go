package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/waste3d/course-marketplace/config"
	"github.com/waste3d/course-marketplace/internal/application"
	"github.com/waste3d/course-marketplace/internal/infrastructure/cache"
	"github.com/waste3d/course-marketplace/internal/infrastructure/memory"
	"github.com/waste3d/course-marketplace/internal/infrastructure/payment"
	"github.com/waste3d/course-marketplace/internal/infrastructure/repository"
	"github.com/waste3d/course-marketplace/internal/infrastructure/security"
	applogger "github.com/waste3d/course-marketplace/internal/logger"
	"github.com/waste3d/course-marketplace/internal/middleware"
	grpc_server "github.com/waste3d/course-marketplace/internal/transport/grpc"
	handlers "github.com/waste3d/course-marketplace/internal/transport/http"
)

type stores struct {
	courses     application.CourseStore
	enrollments application.EnrollmentStore
	ratings     application.RatingStore
	sessions    application.SessionStore
	events      application.PaymentEventStore
	rdb         *redis.Client
	probes      []grpc_server.Probe
}

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := applogger.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Storage
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	// 2. Application
	ledger := application.NewEnrollmentLedger(st.enrollments)
	processor := payment.NewClient(cfg.PaymentBaseURL, cfg.PaymentSecretKey, cfg.FrontendURL, cfg.PaymentTimeout)
	checkout := application.NewCheckoutOrchestrator(st.courses, ledger, st.sessions, processor, application.CheckoutConfig{
		Currency:       cfg.Currency,
		SessionTTL:     cfg.CheckoutSessionTTL,
		PaymentTimeout: cfg.PaymentTimeout,
	}, logger)
	catalog := application.NewCatalogQueryService(st.courses, st.ratings, ledger, cfg.Currency)
	ratings := application.NewRatingService(st.courses, st.ratings, ledger)
	publisher := application.NewPublishingService(st.courses, logger)
	events := application.NewPaymentEventHandler(checkout, st.events, logger)

	if cfg.SeedDemo {
		if err := seedDemo(ctx, catalog, publisher, logger); err != nil {
			log.Fatalf("Failed to seed demo catalog: %v", err)
		}
	}

	// 3. Transport
	tokens := security.NewTokenManager(cfg.AccessSecret)
	router := handlers.NewRouter(
		handlers.NewCourseHandler(catalog, publisher),
		handlers.NewEnrollmentHandler(checkout, catalog, ratings),
		handlers.NewWebhookHandler(payment.NewVerifier(cfg.PaymentWebhookSecret), events),
		tokens,
		middleware.NewRateLimiter(st.rdb),
		logger,
		handlers.RouterConfig{AllowedOrigins: cfg.AllowedOrigins},
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	healthServer := grpc_server.NewHealthServer(logger)
	lis, err := net.Listen("tcp", cfg.GRPCPort)
	if err != nil {
		log.Fatalf("Failed to listen: %v", err)
	}

	go func() {
		if err := healthServer.Serve(lis); err != nil {
			logger.Error("grpc server stopped", "event", "grpc_serve_failed", "error", err.Error())
		}
	}()
	go healthServer.Watch(ctx, 15*time.Second, st.probes...)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to serve: %v", err)
		}
	}()
	logger.Info("course marketplace started",
		"event", "service_started",
		"http", cfg.HTTPPort,
		"grpc", cfg.GRPCPort,
		"storage", cfg.StorageDriver,
	)

	<-ctx.Done()
	logger.Info("shutting down", "event", "service_stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	healthServer.SetServing(false)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "event", "http_shutdown_failed", "error", err.Error())
	}
	healthServer.Stop()
	if st.rdb != nil {
		_ = st.rdb.Close()
	}
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		logger.Warn("using in-memory storage, data is lost on restart", "event", "storage_memory")
		return &stores{
			courses:     store,
			enrollments: store,
			ratings:     store,
			sessions:    store.Sessions(),
			events:      store,
		}, nil
	}

	db, err := repository.Connect(ctx, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}
	if err := repository.Migrate(db); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &stores{
		courses:     repository.NewCourseRepository(db, rdb, logger),
		enrollments: repository.NewEnrollmentRepository(db, logger),
		ratings:     repository.NewRatingRepository(db, logger),
		sessions:    cache.NewCheckoutCache(rdb, cache.DefaultRetention),
		events:      repository.NewPaymentEventRepository(db, logger),
		rdb:         rdb,
		probes: []grpc_server.Probe{
			func(ctx context.Context) error { return repository.Ping(ctx, db) },
			func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}, nil
}
