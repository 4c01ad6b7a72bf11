package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"biosync/internal/config"
	"biosync/internal/db"
	"biosync/internal/httpapi"
	"biosync/internal/logging"
	"biosync/internal/metrics"
	"biosync/internal/syncevents"
	"biosync/internal/syncworker"
)

func main() {
	cfg, err := config.LoadServer()
	if err != nil {
		bootLogger := logging.New("info", "biosync-server")
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}

	logger := logging.New(cfg.LogLevel, "biosync-server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *db.Pool
	if cfg.DatabaseURL != "" {
		if cfg.MigrateOnStart {
			if err := db.Migrate(cfg.DatabaseURL, "up"); err != nil {
				logger.Fatal().Err(err).Msg("failed to apply migrations")
			}
		}
		p, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer p.Close()
		pool = p
	} else {
		logger.Warn().Msg("DATABASE_URL not set; API will answer 503 and no sync runs will execute")
	}

	m := metrics.New()

	events := syncevents.FromBrokers(cfg.KafkaBrokersList(), cfg.SyncEventsTopic, logger)
	defer func() {
		if err := events.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close sync event producer")
		}
	}()

	if pool != nil {
		worker := syncworker.New(logger, pool.Queries(), syncworker.Options{
			Enabled:       cfg.SyncEnabled,
			PollInterval:  cfg.SyncPollInterval,
			MaxRuntime:    cfg.SyncMaxRuntime,
			DeviceTimeout: cfg.DeviceTimeout,
			Workers:       cfg.SyncWorkers,
			Events:        events,
		}, m)
		go worker.Run(ctx)

		if cfg.SyncInterval > 0 {
			scheduler := syncworker.NewScheduler(logger, pool.Queries(), cfg.SyncInterval)
			go scheduler.Run(ctx)
		}
	}

	h := httpapi.NewHandler(logger, pool, m)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("biosync-server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	logger.Info().Msg("shutdown complete")
}
