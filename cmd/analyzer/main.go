package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/analyze"
	"github.com/Alias1177/footcast/internal/app"
	"github.com/Alias1177/footcast/internal/config"
	"github.com/Alias1177/footcast/internal/leagues"
	"github.com/Alias1177/footcast/internal/similarity"
	"github.com/Alias1177/footcast/models"
)

func main() {
	league := flag.String("league", "", "league name, alias or code (e.g. PL, \"Premier League\", АПЛ)")
	home := flag.String("home", "", "home team")
	away := flag.String("away", "", "away team")
	date := flag.String("date", "", "match date YYYY-MM-DD (default today)")
	flag.Parse()

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

	req, err := buildRequest(*league, *home, *away, *date, time.Now())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		flag.Usage()
		os.Exit(2)
	}
	log.Info().Str("league", req.League).Str("home", req.HomeTeam).Str("away", req.AwayTeam).
		Str("date", models.FormatDate(req.MatchDate)).Msg("Starting football analyzer")

	// 3. Shared infrastructure
	deps, err := app.Build(ctx, cfg, prometheus.NewRegistry())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer deps.Close()

	// 4. Analyze
	registry := leagues.Default()
	svc := analyze.New(deps.Football, registry, deps.Engine(cfg),
		analyze.WithSimilarity(similarity.NewSearcher(deps.DB, similarity.DefaultConfig())),
		analyze.WithStore(deps.DB),
		analyze.WithMetrics(deps.Metrics),
	)

	f, err := svc.Analyze(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("Analysis failed")
		deps.Close()
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(f); err != nil {
		log.Error().Err(err).Msg("Failed to write forecast")
	}
}

// buildRequest validates flags into a match request
func buildRequest(league, home, away, date string, now time.Time) (models.MatchRequest, error) {
	req := models.MatchRequest{League: league, HomeTeam: home, AwayTeam: away, MatchDate: models.DateOnly(now)}
	if date != "" {
		d, err := models.ParseDate(date)
		if err != nil {
			return req, fmt.Errorf("invalid -date %q: %w", date, err)
		}
		req.MatchDate = d
	}
	return req, req.Validate()
}

// setupSignalHandling configures signal handling for graceful shutdown
func setupSignalHandling(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Info().Msg("Shutdown signal received, cancelling analysis...")
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
