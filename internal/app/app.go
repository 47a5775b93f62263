// Package app wires the shared infrastructure of the footcast binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/api/footballdata"
	"github.com/Alias1177/footcast/internal/api/openai"
	"github.com/Alias1177/footcast/internal/config"
	"github.com/Alias1177/footcast/internal/database"
	"github.com/Alias1177/footcast/internal/forecast"
	"github.com/Alias1177/footcast/internal/gateway"
	"github.com/Alias1177/footcast/internal/metrics"
)

// Deps are the long-lived components shared by analyzer and verifier
type Deps struct {
	DB       *database.DB
	Gateway  *gateway.Gateway
	Football *footballdata.Client
	Metrics  *metrics.Recorder
	redis    *redis.Client
}

// Build opens the database, the optional Redis cache and the provider gateway
func Build(ctx context.Context, cfg *config.Config, reg prometheus.Registerer) (*Deps, error) {
	rec := metrics.New(reg)

	driver, dsn := cfg.Database.DSN()
	db, err := database.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	deps := &Deps{DB: db, Metrics: rec}

	store, err := deps.gatewayStore(ctx, cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	transport := footballdata.NewHTTPTransport(footballdata.TransportOptions{
		APIKey:         cfg.FootballDataAPIKey,
		BaseURL:        cfg.FootballDataBaseURL,
		RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
	})

	gwCfg := gateway.DefaultConfig()
	gwCfg.MinInterval = cfg.Gateway.MinInterval
	gwCfg.MaxRetries = cfg.Gateway.MaxRetries

	deps.Gateway = gateway.New(transport, gwCfg, gateway.WithStore(store), gateway.WithMetrics(rec))
	deps.Football = footballdata.NewClient(deps.Gateway)
	return deps, nil
}

// gatewayStore returns a Redis-backed store when configured, otherwise an in-process one
func (d *Deps) gatewayStore(ctx context.Context, cfg config.RedisConfig) (gateway.Store, error) {
	if cfg.Addr == "" {
		log.Info().Msg("REDIS_ADDR not set, gateway cache is in-process")
		return gateway.NewMemoryStore(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	d.redis = client
	log.Info().Str("addr", cfg.Addr).Msg("Gateway cache backed by Redis")
	return gateway.NewRedisStore(client), nil
}

// Engine builds the forecast engine, consulting the advisor when it is enabled
func (d *Deps) Engine(cfg *config.Config) *forecast.Engine {
	opts := []forecast.Option{forecast.WithAccuracy(d.DB)}
	if cfg.AdvisorEnabled {
		advisor := openai.NewClient(openai.ClientOptions{
			APIKey:         cfg.OpenAIAPIKey,
			Model:          cfg.OpenAIModel,
			RequestTimeout: time.Duration(cfg.RequestTimeout) * time.Second,
		})
		opts = append(opts, forecast.WithAdvisor(advisor))
	} else {
		log.Info().Msg("Advisor disabled, forecasts use mathematical confidence only")
	}
	return forecast.New(forecast.DefaultConfig(), opts...)
}

// Close releases connections
func (d *Deps) Close() {
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing redis")
		}
	}
	if err := d.DB.Close(); err != nil {
		log.Warn().Err(err).Msg("Closing database")
	}
}
