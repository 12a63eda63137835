package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/Farylve/TEST/internal/auth"
	"github.com/Farylve/TEST/internal/config"
	"github.com/Farylve/TEST/internal/event"
	handler "github.com/Farylve/TEST/internal/handler/http"
	"github.com/Farylve/TEST/internal/notify"
	"github.com/Farylve/TEST/internal/repository/postgres"
	"github.com/Farylve/TEST/internal/service"
	"github.com/Farylve/TEST/migrations"
	"github.com/Farylve/TEST/pkg/database"
	"github.com/Farylve/TEST/pkg/health"
	"github.com/Farylve/TEST/pkg/httputil"
	pkgkafka "github.com/Farylve/TEST/pkg/kafka"
	"github.com/Farylve/TEST/pkg/middleware"
	"github.com/Farylve/TEST/pkg/ratelimit"
	"github.com/Farylve/TEST/pkg/tracing"
)

// App wires together all dependencies and runs the blog API.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	db             *database.Supervisor
	redis          *redis.Client
	producer       *pkgkafka.Producer
	httpServer     *http.Server
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance, initializing all dependencies.
// It blocks until the database is reachable or the retry budget is spent.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.Init(ctx, cfg.Tracing())
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Connect to PostgreSQL with backoff.
	a.db = database.NewSupervisor(cfg.Postgres(), cfg.RetryPolicy(), logger)
	if err := a.db.Connect(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	if err := database.RegisterPoolMetrics(registry, a.db, cfg.ServiceName); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	pool := a.db.Pool()
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	if threshold := cfg.SlowQuery(); threshold > 0 {
		database.SetSlowQueryLogging(threshold, logger)
	}

	healthHandler := health.NewHandler()
	healthHandler.RegisterCritical("postgres", a.db.Ping)

	// Optional Redis for shared rate-limit counters.
	var rateCounter *ratelimit.RedisCounter
	if cfg.RedisEnabled {
		client, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			a.closeAll()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.redis = client
		rateCounter = ratelimit.NewRedisCounter(client, cfg.ServiceName+":ratelimit", logger)
		healthHandler.RegisterNonCritical("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		logger.Info("redis rate-limit counters enabled", slog.String("addr", cfg.Redis().Addr()))
	}

	// Optional Kafka producer for user lifecycle events.
	var publisher event.Publisher = event.Noop{}
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(
			pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers),
			pkgkafka.NewProducerMetrics(registry),
			logger,
		)
		publisher = event.NewProducer(a.producer, logger)
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}

	sender, err := newSender(cfg, registry, logger)
	if err != nil {
		a.closeAll()
		return nil, err
	}

	// Build the dependency graph.
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.JWTExpire, cfg.JWTRefreshExpire)
	userRepo := postgres.NewUserRepository(pool)
	refreshTokenRepo := postgres.NewRefreshTokenRepository(pool)
	postRepo := postgres.NewPostRepository(pool)

	authService := service.NewAuthService(
		userRepo,
		refreshTokenRepo,
		jwtManager,
		sender,
		publisher,
		service.NewAuthMetrics(registry),
		service.AuthConfig{ClientURL: cfg.ClientURL, BcryptCost: cfg.BcryptCost},
		logger,
	)
	userService := service.NewUserService(userRepo, refreshTokenRepo, publisher, logger)
	postService := service.NewPostService(postRepo)

	httputil.ExposeErrorDetails(!cfg.IsProduction())

	routerCfg := handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		CORS: middleware.CORSConfig{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			Environment:    cfg.Environment,
		},
		Cookie: handler.CookieConfig{
			Secure: !cfg.IsDevelopment(),
			MaxAge: cfg.JWTExpire,
		},
		AuthRateLimit:  cfg.AuthRateLimit,
		AuthRateWindow: cfg.AuthRateWindow,
		StoreAvailable: a.db.Available,
		Registerer:     registry,
		Gatherer:       registry,
	}
	if rateCounter != nil {
		routerCfg.RateCounter = rateCounter
	}
	router := handler.NewRouter(authService, userService, postService, healthHandler, routerCfg, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

// newSender picks SMTP delivery behind a circuit breaker, or logs messages
// when SMTP is disabled.
func newSender(cfg *config.Config, reg prometheus.Registerer, logger *slog.Logger) (notify.Sender, error) {
	if !cfg.SMTPEnabled {
		logger.Warn("SMTP disabled, notifications will only be logged")
		return notify.NewLogSender(logger), nil
	}

	renderer, err := notify.NewRenderer(notify.Branding{AppName: cfg.EmailFromName, ClientURL: cfg.ClientURL})
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	smtp := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		Timeout:  10 * time.Second,
	}, renderer)
	return notify.NewBreakerSender(smtp, notify.DefaultBreakerConfig(), reg, logger), nil
}

// Run starts the HTTP server and the database watcher, and blocks until the
// context is canceled.
func (a *App) Run(ctx context.Context) error {
	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	go a.db.Watch(watchCtx, a.cfg.DBWatchInterval)

	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
			slog.String("environment", a.cfg.Environment),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		stopWatch()
		return errors.Join(err, a.Shutdown())
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Tracer (flush pending spans from drained requests)
// 3. Kafka producer and Redis client
// 4. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	errs = append(errs, a.closeAll())

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// closeAll releases everything except the HTTP server. It tolerates
// components that were never started.
func (a *App) closeAll() error {
	var errs []error

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if a.db != nil {
		a.db.Close()
	}

	return errors.Join(errs...)
}
