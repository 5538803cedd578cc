// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"context"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"weighttogo/internal/app"
	"weighttogo/internal/domain"
	"weighttogo/internal/metrics"
)

// Services bundles the application services the adapter routes to.
type Services struct {
	Weights       *app.WeightService
	Goals         *app.GoalService
	Achievements  *app.AchievementService
	Notifications *app.NotificationService
	Progress      *app.ProgressService
	Preferences   *app.PreferenceService
	Auth          *app.AuthService
}

// Options carries the ambient collaborators and transport settings.
type Options struct {
	Log            *logrus.Logger
	Metrics        *metrics.Metrics
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	OIDC           OIDCConfig
	// Ping reports storage health for /api/health. Nil means always healthy.
	Ping func(ctx context.Context) error
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	weights       *app.WeightService
	goals         *app.GoalService
	achievements  *app.AchievementService
	notifications *app.NotificationService
	progress      *app.ProgressService
	prefs         *app.PreferenceService
	authSvc       *app.AuthService

	log         *logrus.Logger
	metrics     *metrics.Metrics
	corsOrigins []string
	limiter     *RateLimiter
	oidcConfig  OIDCConfig
	ping        func(ctx context.Context) error

	// fixedUser bypasses authentication when set.
	fixedUser *domain.User
}

// New creates a Server wired to the given application services.
func New(svc Services, opts Options) *Server {
	return &Server{
		weights:       svc.Weights,
		goals:         svc.Goals,
		achievements:  svc.Achievements,
		notifications: svc.Notifications,
		progress:      svc.Progress,
		prefs:         svc.Preferences,
		authSvc:       svc.Auth,
		log:           opts.Log,
		metrics:       opts.Metrics,
		corsOrigins:   opts.CORSOrigins,
		limiter:       NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst),
		oidcConfig:    opts.OIDC,
		ping:          opts.Ping,
	}
}

// WithoutAuth makes every request act as u, for tests.
func (s *Server) WithoutAuth(u *domain.User) *Server {
	s.fixedUser = u
	return s
}

// Limiter exposes the per-client rate limiter so the caller can run its
// cleanup loop.
func (s *Server) Limiter() *RateLimiter {
	return s.limiter
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.loggingMiddleware, s.metricsMiddleware, s.limiter.middleware)

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)
	api.HandleFunc("/auth/setup", s.handleSetupUser).Methods(http.MethodPost)
	api.HandleFunc("/auth/config", s.handleConfig).Methods(http.MethodGet)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin).Methods(http.MethodGet)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback).Methods(http.MethodGet)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authMiddleware)

	protected.HandleFunc("/weights", s.handleListWeights).Methods(http.MethodGet)
	protected.HandleFunc("/weights", s.handleRecordWeight).Methods(http.MethodPost)
	protected.HandleFunc("/weights/{id:[0-9]+}", s.handleUpdateWeight).Methods(http.MethodPut)
	protected.HandleFunc("/weights/{id:[0-9]+}", s.handleDeleteWeight).Methods(http.MethodDelete)

	protected.HandleFunc("/goals/active", s.handleActiveGoal).Methods(http.MethodGet)
	protected.HandleFunc("/goals", s.handleCreateGoal).Methods(http.MethodPost)
	protected.HandleFunc("/goals/history", s.handleGoalHistory).Methods(http.MethodGet)
	protected.HandleFunc("/goals/{id:[0-9]+}", s.handleDeactivateGoal).Methods(http.MethodDelete)

	protected.HandleFunc("/achievements", s.handleListAchievements).Methods(http.MethodGet)
	protected.HandleFunc("/achievements/flush", s.handleFlushAchievements).Methods(http.MethodPost)
	protected.HandleFunc("/achievements/{id:[0-9]+}/notified", s.handleMarkNotified).Methods(http.MethodPost)

	protected.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	protected.HandleFunc("/trend", s.handleTrend).Methods(http.MethodGet)

	protected.HandleFunc("/preferences", s.handleGetPreferences).Methods(http.MethodGet)
	protected.HandleFunc("/preferences", s.handlePutPreferences).Methods(http.MethodPut)

	var h http.Handler = r
	if len(s.corsOrigins) > 0 {
		h = cors.New(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
		}).Handler(h)
	}
	h = handlers.RecoveryHandler(
		handlers.RecoveryLogger(s.log),
		handlers.PrintRecoveryStack(true),
	)(h)

	return withNoCache(h)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.log.WithError(err).Error("Health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
