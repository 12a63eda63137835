package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Farylve/TEST/internal/domain"
	"github.com/Farylve/TEST/pkg/health"
	"github.com/Farylve/TEST/pkg/middleware"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	ServiceName string
	CORS        middleware.CORSConfig
	Cookie      CookieConfig

	// AuthRateLimit requests per AuthRateWindow are allowed per client IP on
	// the public auth routes. RateCounter shares the counts across replicas;
	// nil keeps them in memory.
	AuthRateLimit  int
	AuthRateWindow time.Duration
	RateCounter    httprate.LimitCounter

	// StoreAvailable reports whether the database is reachable.
	StoreAvailable func() bool

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(
	authService AuthService,
	userService UserService,
	postService PostService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	if cfg.StoreAvailable == nil {
		cfg.StoreAvailable = func() bool { return true }
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Registerer != nil {
		r.Use(middleware.NewHTTPMetrics(cfg.Registerer, cfg.ServiceName).Middleware)
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	authHandler := NewAuthHandler(authService, cfg.Cookie, logger)
	userHandler := NewUserHandler(userService, cfg.Cookie, logger)
	postHandler := NewPostHandler(postService, logger)

	authenticate := middleware.Authenticate(authService, logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireStore(cfg.StoreAvailable, logger))

		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthRateLimit > 0 {
					r.Use(middleware.RateLimitByIP(cfg.AuthRateLimit, cfg.AuthRateWindow, cfg.RateCounter, logger))
				}
				r.Post("/register", authHandler.Register)
				r.Post("/login", authHandler.Login)
				r.Post("/refresh-token", authHandler.RefreshToken)
				r.Post("/forgot-password", authHandler.ForgotPassword)
				r.Post("/reset-password", authHandler.ResetPassword)
			})
			r.Get("/verify-email/{token}", authHandler.VerifyEmail)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/logout", authHandler.Logout)
				r.Post("/resend-verification", authHandler.ResendVerification)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authenticate)

			r.Get("/profile", userHandler.GetProfile)
			r.Put("/profile", userHandler.UpdateProfile)
			r.Put("/change-password", authHandler.ChangePassword)
			r.Delete("/account", userHandler.DeleteAccount)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logger, domain.RoleAdmin))
				r.Get("/", userHandler.ListUsers)
				r.Get("/{id}", userHandler.GetUser)
				r.Put("/{id}", userHandler.UpdateUser)
				r.Delete("/{id}", userHandler.DeleteUser)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.ListPosts)
			r.Get("/id/{id}", postHandler.GetPostByID)
			r.Get("/slug/{slug}", postHandler.GetPostBySlug)
		})
		r.Get("/categories", postHandler.ListCategories)
		r.Get("/tags", postHandler.ListTags)
	})

	return r
}
