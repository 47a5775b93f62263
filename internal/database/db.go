package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyVerified is returned when a forecast has already been reconciled
	ErrAlreadyVerified = errors.New("forecast already verified")
)

// DB represents a database connection
type DB struct {
	*sql.DB
	driver string
	logger zerolog.Logger
}

// Open connects to the database, retrying the first ping, and creates tables if needed
func Open(ctx context.Context, driver, dsn string) (*DB, error) {
	if driver != DriverPostgres && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// one writer keeps sqlite transactions from failing with SQLITE_BUSY
		conn.SetMaxOpenConns(1)
	}

	db := &DB{DB: conn, driver: driver, logger: log.With().Str("component", "database").Logger()}

	// Check connection
	strategy := backoff.NewExponentialBackOff()
	strategy.MaxElapsedTime = 30 * time.Second
	err = backoff.RetryNotify(func() error {
		return conn.PingContext(ctx)
	}, backoff.WithContext(strategy, ctx), func(err error, wait time.Duration) {
		db.logger.Warn().Err(err).Dur("wait", wait).Msg("Database not reachable yet")
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("connecting to %s: %w", driver, err)
	}

	// Create tables if they don't exist
	if err := db.createTables(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// createTables creates the necessary tables if they don't exist
func (db *DB) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS forecasts (
			id TEXT PRIMARY KEY,
			league TEXT NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			match_date TEXT NOT NULL,
			status TEXT NOT NULL,
			ai_enhanced BOOLEAN NOT NULL DEFAULT FALSE,
			features TEXT NOT NULL,
			model TEXT NOT NULL,
			similar TEXT,
			created_at TIMESTAMP NOT NULL,
			verified_at TIMESTAMP,
			home_score INTEGER,
			away_score INTEGER,
			ht_home_score INTEGER,
			ht_away_score INTEGER,
			result TEXT,
			UNIQUE (league, home_team, away_team, match_date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_status_date ON forecasts (status, match_date)`,
		`CREATE TABLE IF NOT EXISTS predictions (
			id TEXT PRIMARY KEY,
			forecast_id TEXT NOT NULL REFERENCES forecasts (id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			pick TEXT NOT NULL,
			probability DOUBLE PRECISION NOT NULL,
			math_confidence TEXT NOT NULL,
			external_label TEXT,
			external_confidence DOUBLE PRECISION,
			hybrid_confidence DOUBLE PRECISION NOT NULL,
			hybrid_level TEXT NOT NULL,
			ai_enhanced BOOLEAN NOT NULL DEFAULT FALSE,
			reasoning TEXT,
			correct BOOLEAN,
			UNIQUE (forecast_id, type)
		)`,
		`CREATE TABLE IF NOT EXISTS historical_matches (
			id TEXT PRIMARY KEY,
			league TEXT NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			match_date TEXT NOT NULL,
			features TEXT NOT NULL,
			home_goals INTEGER NOT NULL,
			away_goals INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_historical_league_date ON historical_matches (league, match_date)`,
		`CREATE TABLE IF NOT EXISTS accuracy_stats (
			prediction_type TEXT PRIMARY KEY,
			total INTEGER NOT NULL DEFAULT 0,
			correct INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for postgres
func (db *DB) rebind(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction, rolling back on any error
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
