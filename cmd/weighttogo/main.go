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

	adapthttp "weighttogo/internal/adapter/http"
	"weighttogo/internal/adapter/memory"
	"weighttogo/internal/adapter/notify"
	"weighttogo/internal/adapter/postgres"
	"weighttogo/internal/app"
	"weighttogo/internal/config"
	"weighttogo/internal/domain"
	"weighttogo/internal/logging"
	"weighttogo/internal/metrics"
)

// store is everything the services need from a storage adapter.
type store interface {
	domain.WeightRepository
	domain.GoalRepository
	domain.AchievementRepository
	domain.PreferenceRepository
	domain.UserRepository
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat)
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db       store
		sessions domain.SessionRepository
		ping     func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		pg, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to open database")
		}
		defer func() { _ = pg.Close() }()
		db, sessions, ping = pg, postgres.NewSessionRepo(pg), pg.Ping
		log.Info("Using PostgreSQL storage")
	} else {
		mem := memory.New()
		db, sessions = mem, mem.NewSessionRepo()
		log.Warn("DATABASE_URL not set, using in-memory storage; data is lost on restart")
	}

	goalSvc := app.NewGoalService(db, log, m)
	achievementSvc := app.NewAchievementService(db, db, goalSvc, log, m)
	prefSvc := app.NewPreferenceService(db, log)
	notificationSvc := app.NewNotificationService(db, prefSvc, notify.NewLogNotifier(log), log)
	weightSvc := app.NewWeightService(db, achievementSvc, notificationSvc, log)
	progressSvc := app.NewProgressService(goalSvc, db, db)
	authSvc := app.NewAuthService(db, sessions, log)

	if cfg.InitialUser != "" && cfg.InitialPassword != "" {
		err := authSvc.CreateInitialUser(ctx, cfg.InitialUser, cfg.InitialPassword)
		switch {
		case errors.Is(err, app.ErrUsersExist):
		case err != nil:
			log.WithError(err).Fatal("Failed to create initial user")
		}
	}

	var oidcCfg adapthttp.OIDCConfig
	if cfg.SSOEnabled() {
		var err error
		oidcCfg, err = adapthttp.NewOIDCConfig(ctx, cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to set up SSO")
		}
		log.WithField("issuer", cfg.OIDCIssuer).Info("SSO enabled")
	}

	srv := adapthttp.New(adapthttp.Services{
		Weights:       weightSvc,
		Goals:         goalSvc,
		Achievements:  achievementSvc,
		Notifications: notificationSvc,
		Progress:      progressSvc,
		Preferences:   prefSvc,
		Auth:          authSvc,
	}, adapthttp.Options{
		Log:            log,
		Metrics:        m,
		CORSOrigins:    cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		OIDC:           oidcCfg,
		Ping:           ping,
	})

	go srv.Limiter().Cleanup(ctx, time.Minute, 3*time.Minute)
	go purgeSessions(ctx, authSvc, log)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.Addr).Info("Listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}
}

func purgeSessions(ctx context.Context, auth *app.AuthService, log *logrus.Logger) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if _, err := auth.PurgeExpiredSessions(ctx); err != nil {
				log.WithError(err).Warn("Session purge failed")
			}
		}
	}
}
