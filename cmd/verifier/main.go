package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/app"
	"github.com/Alias1177/footcast/internal/config"
	"github.com/Alias1177/footcast/internal/leagues"
	"github.com/Alias1177/footcast/internal/notify"
	"github.com/Alias1177/footcast/internal/verify"
	"github.com/Alias1177/footcast/models"
)

func main() {
	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	setupSignalHandling(cancel)

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// 2. Configure logging
	setupLogging(cfg.LogLevel)
	log.Info().
		Dur("interval", cfg.Verify.Interval).
		Int("batch_size", cfg.Verify.BatchSize).
		Int("window_days", cfg.Verify.WindowDays).
		Str("db_driver", cfg.Database.Driver).
		Msg("Starting verification service")

	// 3. Shared infrastructure
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := app.Build(ctx, cfg, reg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer deps.Close()

	// 4. Pipeline and scheduler
	pipeline := verify.NewPipeline(deps.DB, deps.Football, leagues.Default(), verify.Config{
		BatchSize:   cfg.Verify.BatchSize,
		WindowDays:  cfg.Verify.WindowDays,
		LeaguePause: cfg.Verify.LeaguePause,
		DateSlack:   1,
	}, verify.WithMetrics(deps.Metrics))

	scheduler := verify.NewScheduler(pipeline, cfg.Verify.Interval, alertHandler(cfg.Telegram))
	go scheduler.Start(ctx)

	// 5. HTTP server
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newRouter(scheduler, deps.DB, reg),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: manualRunTimeout + 10*time.Second,
	}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown")
	}
	log.Info().Msg("Verification service stopped")
}

// alertHandler posts failing batches to Telegram when it is configured
func alertHandler(cfg config.TelegramConfig) verify.SummaryHandler {
	if !cfg.Enabled() {
		log.Info().Msg("Telegram alerts disabled")
		return nil
	}
	tg, err := notify.NewTelegram(cfg.BotToken, cfg.AlertChatID)
	if err != nil {
		log.Error().Err(err).Msg("Telegram alerts unavailable")
		return nil
	}
	return func(ctx context.Context, summary models.VerificationSummary) {
		if _, err := tg.NotifySummary(ctx, summary); err != nil {
			log.Error().Err(err).Msg("Failed to send batch alert")
		}
	}
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, stopping...")
		cancel()
	}()
}

// setupLogging configures the logger
func setupLogging(logLevel string) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(level)
}
