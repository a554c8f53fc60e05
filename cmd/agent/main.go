package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ewhitmore/postpilot/internal/browser"
	"github.com/ewhitmore/postpilot/internal/config"
	"github.com/ewhitmore/postpilot/internal/models"
	"github.com/ewhitmore/postpilot/internal/orchestrator"
	"github.com/ewhitmore/postpilot/internal/poster"
	"github.com/ewhitmore/postpilot/internal/queue"
	"github.com/ewhitmore/postpilot/internal/reporter"
	"github.com/ewhitmore/postpilot/internal/server"
	"github.com/ewhitmore/postpilot/internal/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, relying on environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Configuration error", "error", err)
		os.Exit(1)
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open state database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	session, err := browser.Launch(browser.Options{
		ControlURL: cfg.BrowserURL,
		Headless:   cfg.Headless,
		Warmup:     cfg.TabWarmup,
	})
	if err != nil {
		slog.Error("Failed to start browser session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	selectors := poster.LoadConfig()
	engine := poster.NewEngine(session,
		poster.JitterPolicy{Min: cfg.JitterMin, Max: cfg.JitterMax},
		poster.NewAdapter(models.PlatformX, selectors[models.PlatformX], cfg.SelectorTimeout),
		poster.NewAdapter(models.PlatformLinkedIn, selectors[models.PlatformLinkedIn], cfg.SelectorTimeout),
	)

	queueClient := queue.New(cfg.QueueBaseURL, cfg.QueueUserID)
	notifier := reporter.NewDesktopNotifier(cfg.NotifyEnabled, reporter.IconPath())
	rep := reporter.New(queueClient, notifier)

	orch := orchestrator.New(queueClient, engine, rep, store, orchestrator.Options{
		PollInterval:   cfg.PollInterval,
		InterPostDelay: cfg.InterPostDelay,
		PassTimeout:    cfg.PassTimeout,
		ScheduleMode:   cfg.ScheduleMode,
		DailyPostLimit: cfg.DailyPostLimit,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchDone := make(chan struct{})
	go func() {
		defer close(orchDone)
		orch.Run(ctx)
	}()

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: server.New(orch, cfg.PassTimeout).Routes(),
	}
	go func() {
		slog.Info("Control API listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Control API failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Control API shutdown failed", "error", err)
	}

	// The store and browser close in deferred calls; an active pass must
	// finish its marker writes before they do.
	select {
	case <-orchDone:
	case <-shutdownCtx.Done():
		slog.Warn("Timed out waiting for the active pass to finish")
	}
	slog.Info("Shutdown complete")
}
