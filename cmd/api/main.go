package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shiptrack/internal/api"
	"shiptrack/internal/buildinfo"
	"shiptrack/internal/config"
	"shiptrack/internal/log"
	"shiptrack/internal/metrics"
)

// sessionIdleTTL is how long an untouched session is kept.
const sessionIdleTTL = 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (defaults to $SHIPTRACK_CONFIG)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Init(log.Config{Level: log.ErrorLevel})
		log.Logger.Fatal().Err(err).Msg("invalid configuration")
	}
	log.Init(log.Config{Level: log.Level(cfg.LogLevel), JSONOutput: cfg.LogJSON})
	metrics.RegisterDefault()
	logger := log.WithComponent("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srvDeps, err := api.NewServerFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init server")
	}
	defer func() { _ = srvDeps.Close() }()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srvDeps.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start webhook worker
	go srvDeps.NewWebhookWorker().Run(ctx)
	go expireSessions(ctx, srvDeps)

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("version", buildinfo.Version).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("stopped")
}

func expireSessions(ctx context.Context, s *api.Server) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ExpireSessions(time.Now().Add(-sessionIdleTTL)); n > 0 {
				s.Logger.Info().Int("sessions", n).Msg("idle sessions expired")
			}
		}
	}
}
