package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Outreach/internal/api"
	"github.com/shaiso/Outreach/internal/config"
	"github.com/shaiso/Outreach/internal/mq"
	"github.com/shaiso/Outreach/internal/orchestrator"
	"github.com/shaiso/Outreach/internal/repo"
	"github.com/shaiso/Outreach/internal/repo/memory"
	"github.com/shaiso/Outreach/internal/telemetry"
)

var startTime = time.Now()

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Инициализируем structured logging
	logger := telemetry.SetupLogger(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting outreach-api", "store", cfg.Store)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// RabbitMQ необязателен: без него события просто не публикуются
	var publisher *mq.Publisher
	if cfg.AMQP.URL != "" {
		conn, err := mq.NewConnection(cfg.AMQP.URL, logger)
		if err != nil {
			logger.Error("failed to connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		if err := mq.SetupTopology(ctx, conn); err != nil {
			logger.Error("failed to setup topology", "error", err)
			os.Exit(1)
		}
		publisher = mq.NewPublisher(conn, logger)
		logger.Info("connected to rabbitmq")
	}

	orch := orchestrator.New(orchestrator.Config{
		Store:             store,
		Publisher:         publisher,
		Logger:            logger,
		StrictStatusOrder: cfg.Requests.StrictStatusOrder,
		ChangeFeedLag:     cfg.API.ChangeFeedLag,
	})

	handler := api.NewHandler(api.Config{
		Orchestrator: orch,
		JWTSecret:    cfg.API.JWTSecret,
		Logger:       logger,
	})
	if cfg.API.JWTSecret == "" {
		logger.Warn("jwt secret is empty, trusting X-User-ID header")
	}

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":" + cfg.API.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}

// openStore открывает хранилище по cfg.Store. Память заполняется из seed.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repo.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		store := memory.New()
		if cfg.Seed != nil {
			if err := cfg.Seed.Apply(store); err != nil {
				return nil, nil, fmt.Errorf("seed: %w", err)
			}
		}
		logger.Info("using in-memory store")
		return store, func() {}, nil
	}

	pool, err := repo.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := repo.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}
	logger.Info("connected to database")
	return repo.NewPgStore(pool), pool.Close, nil
}
