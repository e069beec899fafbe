package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Outreach/internal/config"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/orchestrator"
	"github.com/shaiso/Outreach/internal/repo"
	"github.com/shaiso/Outreach/internal/scheduler"
	"github.com/shaiso/Outreach/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting outreach-sweeper", "cron", cfg.Sweeper.Cron, "stale_after", cfg.Sweeper.StaleAfter)

	// Лидерство держится через advisory lock, в памяти его не с кем делить
	if cfg.Store != config.StorePostgres {
		logger.Error("sweeper requires the postgres store", "store", cfg.Store)
		os.Exit(1)
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := repo.Migrate(ctx, pool); err != nil {
		logger.Error("failed to migrate", "error", err)
		os.Exit(1)
	}
	store := repo.NewPgStore(pool)

	var publisher *mq.Publisher
	if cfg.AMQP.URL != "" {
		conn, err := mq.NewConnection(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()
		publisher = mq.NewPublisher(conn, logger)
	}

	orch := orchestrator.New(orchestrator.Config{
		Store:     store,
		Publisher: publisher,
		Logger:    logger,
	})

	sweeper, err := scheduler.New(scheduler.Config{
		Runs:       orch,
		Lock:       store,
		Logger:     logger,
		Cron:       cfg.Sweeper.Cron,
		StaleAfter: cfg.Sweeper.StaleAfter,
		BatchSize:  cfg.Sweeper.BatchSize,
	})
	if err != nil {
		logger.Error("invalid sweeper config", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + cfg.Sweeper.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http error", "error", err)
			cancel()
		}
	}()

	if err := sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sweeper stopped", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
