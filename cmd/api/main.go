package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	server "karoo_lodge/internal/adapters/http_server"
	"karoo_lodge/internal/adapters/observability"
	"karoo_lodge/internal/app"
	"karoo_lodge/internal/catalog"
	"karoo_lodge/internal/gateway"
	"karoo_lodge/internal/shared"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	zerolog.DefaultContextLogger = &log.Logger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := observability.InitRegistry()
	observability.Serve(cfg.MetricsAddr, reg)

	// gateways
	gw, err := gateway.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("gateway setup failed")
	}
	defer gw.Close()
	if gw.SQL != nil {
		if err := gw.SQL.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("schema migration failed")
		}
	}
	log.Info().Str("driver", cfg.StoreDriver).Bool("elevated", gw.ElevatedErr == nil).Msg("gateways ready")

	locks, closeLocks, err := gateway.OpenLocker(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("lock setup failed")
	}
	defer closeLocks()

	// deps
	cat := catalog.Default()
	h := &server.Handlers{
		Content:     app.NewContentService(gw.Restricted, cat, cfg.ReadTimeout),
		Submissions: app.NewSubmissionService(gw.Restricted),
		Admin:       app.NewAdminService(gw.Elevated, locks),
		Reconciler:  app.NewReconciler(gw.Elevated, locks),
		Health: app.NewHealth(gw.Restricted, gw.Elevated, app.HealthReport{
			Driver:           cfg.StoreDriver,
			ServiceKey:       gw.ElevatedErr == nil,
			MaintenanceToken: cfg.MaintenanceToken != "",
			SharedLock:       cfg.RedisAddr != "",
		}),
		BookingURL:       cfg.BookingURL,
		JWTSecret:        cfg.AdminJWTSecret,
		MaintenanceToken: cfg.MaintenanceToken,
	}

	// http
	srv := server.New(cfg.CORSOrigins)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
