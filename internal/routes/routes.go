package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/handlers"
	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers groups the HTTP handlers mounted by the router.
type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Cards        *handlers.CardHandler
	Transactions *handlers.TransactionHandler
	Security     *handlers.SecurityHandler
	Health       *handlers.HealthHandler
}

// RouterConfig holds the cross-cutting settings of the middleware chain.
type RouterConfig struct {
	Env            string
	AllowedOrigins []string
	RequestTimeout time.Duration
	Guard          middleware.GuardConfig
	Monitor        middleware.RequestMonitor
	Authorizer     auth.Authorizer
	AuthRateLimit  middleware.RateLimitConfig
	// Metrics is served on /metrics when set.
	Metrics prometheus.Gatherer
	Logger  *slog.Logger
}

// NewRouter builds the full middleware chain and mounts every route.
// Security headers wrap everything so that rejections from the guard carry
// them too.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Env}))
	router.Use(middleware.Recoverer(cfg.Logger))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
	router.Use(middleware.SecureLogger(cfg.Logger))
	router.Use(middleware.Guard(cfg.Monitor, cfg.Guard, cfg.Logger))
	router.Use(chimiddleware.StripSlashes)
	router.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteNotFound(w, "Not found")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		pkghttp.WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	if h.Health != nil {
		router.Get("/health", h.Health.Health)
	}
	if cfg.Metrics != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Metrics, promhttp.HandlerOpts{}))
	}

	router.Route("/api/v1", func(r chi.Router) {
		RegisterRoutes(r, h, cfg.Authorizer, cfg.AuthRateLimit)
	})

	return router
}

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, h Handlers, authz auth.Authorizer, rateLimit middleware.RateLimitConfig) {
	// Public credential endpoints share a coarse per-address cap.
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitByIP(rateLimit))
		r.Post("/token", h.Auth.Token)
		r.Post("/users", h.Auth.Register)
	})

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.AuthMiddleware(authz))

		r.Get("/users/me", h.Users.Me)
		r.Put("/users/me/password", h.Users.ChangePassword)
		r.Delete("/users/me", h.Users.DeleteMe)

		r.Route("/cards", func(r chi.Router) {
			r.Post("/", h.Cards.Create)
			r.Get("/", h.Cards.List)
			r.Get("/{cardID}", h.Cards.Get)
			r.Delete("/{cardID}", h.Cards.Delete)
			r.Post("/{cardID}/transactions", h.Transactions.Create)
			r.Get("/{cardID}/transactions", h.Transactions.List)
		})
		r.Delete("/transactions/{transactionID}", h.Transactions.Delete)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(models.RoleAdmin))
			r.Get("/security/alerts", h.Security.Alerts)
			r.Get("/security/audit", h.Security.Audit)
		})
	})
}
