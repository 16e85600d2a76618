package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"stockroom/internal/config"
	"stockroom/internal/database"
	"stockroom/internal/feed"
	"stockroom/internal/metrics"
	custommiddleware "stockroom/internal/middleware"
	"stockroom/internal/notification"
	"stockroom/internal/repository"
	"stockroom/internal/service"
	"stockroom/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config *config.Config
	logger *zap.Logger
	db     database.Service
	redis  *redis.Client

	center   *notification.Center
	kafka    *notification.KafkaMirror
	registry *feed.Registry
	batches  service.BatchService
	products service.ProductService
}

// NewServer wires repositories, services and handlers onto a chi router.
// Nothing here talks to Postgres; the first query runs on the first request.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client) *Server {
	s := &Server{
		config:   cfg,
		logger:   logger,
		db:       db,
		redis:    redisClient,
		registry: feed.NewRegistry(),
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	s.center = notification.NewCenter(
		notification.NewRedisStore(redisClient, cfg.Notifications.Key),
		logger,
		notification.Options{
			Capacity: cfg.Notifications.Capacity,
			Enabled:  cfg.Notifications.Enabled,
			Mirror:   s.mirrors(),
		},
	)
	notifier := service.CountingNotifier(s.center, m)

	batchRepo := repository.NewBatchRepository(db.DB())
	productRepo := repository.NewProductRepository(db.DB())
	transfers := repository.NewTransferStore(db.DB())

	s.batches = service.NewBatchService(batchRepo, notifier, s.registry, logger)
	s.products = service.NewProductService(productRepo, notifier, s.registry, m, logger)
	reorders := service.NewReorderService(transfers, notifier, m, logger, s.batches, s.products)

	router := chi.NewRouter()
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.MetricsMiddleware(m))
	router.Use(custommiddleware.CORSMiddleware(cfg.CORS.AllowedOrigins, cfg.Server.Env == "development"))

	router.Get("/health", s.health)
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	router.Group(func(r chi.Router) {
		r.Use(custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger))
		r.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "stockroom:ratelimit",
		}, logger))
		r.Use(custommiddleware.ValidationMiddleware(logger))

		staffOnly := custommiddleware.RequireRole([]string{custommiddleware.RoleAdmin, custommiddleware.RoleStaff}, logger)

		transport.NewProductHandler(s.products, logger).RegisterRoutes(r, staffOnly)
		transport.NewBatchHandler(s.batches, logger).RegisterRoutes(r, staffOnly)
		transport.NewReorderHandler(reorders, logger).RegisterRoutes(r)
		transport.NewNotificationHandler(s.center, s.registry, logger).RegisterRoutes(r)
	})

	s.Server = &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	// Live streams never go idle, so Shutdown ends them explicitly
	s.Server.RegisterOnShutdown(s.registry.CancelAll)

	return s
}

// mirrors builds the live notification fan-out: Redis pub/sub always, Kafka
// when brokers are configured
func (s *Server) mirrors() notification.Mirror {
	out := notification.MultiMirror{notification.NewRedisMirror(s.redis, s.config.Notifications.Channel)}

	if s.config.Kafka.Enabled() {
		kafka, err := notification.NewKafkaMirror(s.config.Kafka.Brokers, s.config.Kafka.Topic)
		if err != nil {
			s.logger.Warn("Kafka mirror disabled", zap.Error(err), zap.Strings("brokers", s.config.Kafka.Brokers))
		} else {
			s.kafka = kafka
			out = append(out, kafka)
			s.logger.Info("Kafka mirror enabled", zap.String("topic", s.config.Kafka.Topic))
		}
	}
	return out
}

// RunChangeListener republishes live queries whenever another writer changes
// the underlying tables. It blocks until ctx is canceled.
func (s *Server) RunChangeListener(ctx context.Context) error {
	listener := database.NewListener(s.config.Database.DSN(), s.logger)
	listener.Handle(database.ChannelBatches, func(ctx context.Context, change database.Change) {
		s.logger.Debug("Batch change received", zap.String("op", change.Op), zap.String("batch_id", change.ID))
		s.batches.Refresh(ctx)
	})
	listener.Handle(database.ChannelProducts, func(ctx context.Context, change database.Change) {
		s.logger.Debug("Product change received", zap.String("op", change.Op), zap.String("product_id", change.ID))
		s.products.Refresh(ctx)
	})
	return listener.Run(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{"status": "ok"}

	dbHealth := s.db.Health()
	body["database"] = dbHealth
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["redis"] = map[string]string{"status": "down", "error": err.Error()}
	} else {
		body["redis"] = map[string]string{"status": "up"}
	}

	body["live_subscriptions"] = s.registry.Active()
	custommiddleware.RespondWithJSON(w, status, body)
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	s.registry.CancelAll()
	s.batches.Close()
	s.products.Close()
	s.center.Close()

	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			s.logger.Error("Failed to close kafka producer", zap.Error(err))
		}
	}
	if err := s.redis.Close(); err != nil {
		s.logger.Error("Failed to close redis client", zap.Error(err))
	}
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	s.logger.Sync()
	return nil
}
