package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Alias1177/footcast/models"
)

// RecentHistorical returns up to limit reconciled matches of a league, most recent first.
// Implements models.HistoryReader.
func (db *DB) RecentHistorical(ctx context.Context, league string, limit int) ([]models.HistoricalMatchRecord, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT id, league, home_team, away_team, match_date, features, home_goals, away_goals
		FROM historical_matches
		WHERE league = ?
		ORDER BY match_date DESC, created_at DESC
		LIMIT ?`), league, limit)
	if err != nil {
		return nil, fmt.Errorf("querying historical matches: %w", err)
	}
	defer rows.Close()

	var out []models.HistoricalMatchRecord
	for rows.Next() {
		var (
			r              models.HistoricalMatchRecord
			date, features string
		)
		if err := rows.Scan(&r.ID, &r.League, &r.HomeTeam, &r.AwayTeam, &date, &features, &r.HomeGoals, &r.AwayGoals); err != nil {
			return nil, fmt.Errorf("scanning historical match: %w", err)
		}
		if r.MatchDate, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("historical match %s: %w", r.ID, err)
		}
		// a damaged row only loses its features; missing ones are skipped by similarity scoring
		if err := json.Unmarshal([]byte(features), &r.Features); err != nil {
			db.logger.Warn().Err(err).Str("id", r.ID).Msg("Undecodable historical features")
			r.Features = models.HistoricalFeatures{}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// AccuracyStats returns the running per-type counters. Implements models.AccuracyReader.
func (db *DB) AccuracyStats(ctx context.Context) ([]models.AccuracyStat, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT prediction_type, total, correct FROM accuracy_stats ORDER BY prediction_type`)
	if err != nil {
		return nil, fmt.Errorf("querying accuracy stats: %w", err)
	}
	defer rows.Close()

	var out []models.AccuracyStat
	for rows.Next() {
		var (
			s   models.AccuracyStat
			typ string
		)
		if err := rows.Scan(&typ, &s.Total, &s.Correct); err != nil {
			return nil, fmt.Errorf("scanning accuracy stat: %w", err)
		}
		s.Type = models.PredictionType(typ)
		out = append(out, s)
	}
	return out, rows.Err()
}
