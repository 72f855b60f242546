package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/cardmeta/bindex/internal/auth"
	"github.com/cardmeta/bindex/internal/config"
	"github.com/cardmeta/bindex/internal/server"
	"github.com/cardmeta/bindex/internal/service/directory"
	"github.com/cardmeta/bindex/internal/storage"
	"github.com/cardmeta/bindex/internal/telegram"
	"github.com/cardmeta/bindex/internal/telemetry"
	"github.com/cardmeta/bindex/internal/web"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	level := slog.LevelInfo
	if os.Getenv("BINDEX_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, logger); err != nil {
		slog.Error("fatal error", "error", err)
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *slog.Logger) error {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	slog.Info("bindex starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// Open the registry store (sqlite file by default, postgres by DSN).
	store, err := storage.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	defer store.Close()

	dir := directory.New(store, logger)

	renderer, err := web.New()
	if err != nil {
		return fmt.Errorf("web: %w", err)
	}

	sessions, err := auth.NewSessionManager(cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if cfg.AdminUser == "" {
		logger.Info("admin ui: disabled (no BINDEX_ADMIN_USER)")
	}

	// Start the chat worker. A missing token degrades to disabled; the HTTP
	// service comes up either way.
	var worker *telegram.Worker
	if cfg.TelegramEnabled {
		if cfg.TelegramToken == "" {
			logger.Warn("telegram: enabled but no BINDEX_TELEGRAM_TOKEN, staying stopped")
		} else {
			transport := telegram.NewHTTPTransport(cfg.TelegramAPIURL, cfg.TelegramToken, cfg.TelegramPollTimeout)
			worker = telegram.NewWorker(transport, dir, logger)
			worker.Start(ctx)
		}
	} else {
		logger.Info("telegram: disabled")
	}

	srv := server.New(server.ServerConfig{
		Store:             store,
		Directory:         dir,
		Renderer:          renderer,
		Sessions:          sessions,
		Logger:            logger,
		APIKey:            cfg.APIKey,
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		Port:              cfg.Port,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		Version:           version,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Wait for a shutdown signal or a server failure.
	<-gctx.Done()

	// Graceful shutdown. Each phase gets its own timeout so early completion
	// doesn't steal budget from later phases. Order: (1) stop accepting new
	// HTTP requests and drain in-flight, (2) stop the chat worker, (3) close
	// the store (deferred).
	slog.Info("bindex shutting down")

	httpCtx, httpCancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}
	httpCancel()

	if worker != nil {
		workerCtx, workerCancel := context.WithTimeout(context.Background(), cfg.StopTimeout)
		worker.Stop(workerCtx)
		workerCancel()
	}

	err = g.Wait()
	slog.Info("bindex stopped")
	return err
}
