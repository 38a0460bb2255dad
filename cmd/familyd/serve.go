package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dimitrije/family-core/internal/audit"
	"github.com/dimitrije/family-core/internal/config"
	"github.com/dimitrije/family-core/internal/handlers"
	authmw "github.com/dimitrije/family-core/internal/middleware"
	"github.com/dimitrije/family-core/internal/metrics"
	"github.com/dimitrije/family-core/internal/services"
	"github.com/dimitrije/family-core/internal/sse"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(ctx context.Context) error {
	cfg, db, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	auditOpts := []audit.Option{audit.WithMetrics(m)}
	if cfg.Audit.NATSURL != "" {
		publisher, err := audit.NewNATSPublisher(cfg.Audit.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer publisher.Close()
		auditOpts = append(auditOpts, audit.WithPublisher(publisher, cfg.Audit.NATSSubject))
	}
	auditLogger := audit.NewLogger(db, cfg.Audit.Buffer, auditOpts...)
	defer auditLogger.Close()

	hub := sse.NewHub()
	go hub.Run()
	defer hub.Stop()

	recorder := audit.Multi(auditLogger, hub)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry)
	emailService := services.NewEmailService(cfg.SMTP)
	familyService := services.NewFamilyService(db, recorder, services.WithMetrics(m))
	invitationService := services.NewInvitationService(db, familyService, recorder, cfg.Family, services.WithMetrics(m))
	gameLockService := services.NewGameLockService(db, familyService, recorder, cfg.Family, services.WithMetrics(m))
	sweeper := services.NewSweeper(db, services.WithMetrics(m))

	familyHandler := handlers.NewFamilyHandler(familyService)
	invitationHandler := handlers.NewInvitationHandler(invitationService, familyService, emailService, cfg.Family.InviteExpiry())
	gameLockHandler := handlers.NewGameLockHandler(gameLockService, familyService)
	eventsHandler := handlers.NewEventsHandler(hub, familyService)
	healthHandler := handlers.NewHealthHandler(db.Pool)

	app := newApp(cfg, jwtService, routes{
		family:     familyHandler,
		invitation: invitationHandler,
		gameLock:   gameLockHandler,
		events:     eventsHandler,
		health:     healthHandler,
	})

	if cfg.SweepInterval > 0 {
		go sweeper.Run(ctx, cfg.SweepInterval)
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info().Msg("shutting down server")
	hub.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics shutdown")
	}
	return nil
}

type routes struct {
	family     *handlers.FamilyHandler
	invitation *handlers.InvitationHandler
	gameLock   *handlers.GameLockHandler
	events     *handlers.EventsHandler
	health     *handlers.HealthHandler
}

func newApp(cfg *config.Config, jwtService *services.JWTService, r routes) http.Handler {
	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.Family.FrontendURL},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	api.Get("/health", r.health.Check)
	api.Get("/invitations/:token", r.invitation.Preview)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/families", r.family.Create)
	protected.Get("/me/family", r.family.GetMine)
	protected.Get("/families/:familyId/members", r.family.ListMembers)
	protected.Get("/families/:familyId/events", r.events.Stream)

	protected.Post("/families/:familyId/invitations", r.invitation.Create)
	protected.Get("/families/:familyId/invitations", r.invitation.ListPending)
	protected.Delete("/families/:familyId/invitations/:invitationId", r.invitation.Cancel)
	protected.Post("/invitations/:token/redeem", r.invitation.Redeem)

	protected.Get("/families/:familyId/locks", r.gameLock.ListActive)
	protected.Post("/families/:familyId/games/:gameId/lock", r.gameLock.Lock)
	protected.Delete("/families/:familyId/games/:gameId/lock", r.gameLock.Unlock)
	protected.Delete("/families/:familyId/games/:gameId/lock/force", r.gameLock.ForceUnlock)

	return app
}
