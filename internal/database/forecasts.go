package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alias1177/footcast/models"
)

const forecastColumns = `id, league, home_team, away_team, match_date, status, ai_enhanced,
	features, model, similar, created_at, verified_at,
	home_score, away_score, ht_home_score, ht_away_score, result`

const predictionColumns = `id, type, pick, probability, math_confidence, external_label,
	external_confidence, hybrid_confidence, hybrid_level, ai_enhanced, reasoning, correct`

// SaveForecast stores a pending forecast. A forecast for the same league, teams and date
// that is still pending is replaced, keeping its ID; a verified one is left alone and
// ErrAlreadyVerified is returned. f.ID is set to the stored ID.
func (db *DB) SaveForecast(ctx context.Context, f *models.Forecast) error {
	features, err := json.Marshal(f.Features)
	if err != nil {
		return fmt.Errorf("encoding features: %w", err)
	}
	model, err := json.Marshal(f.Model)
	if err != nil {
		return fmt.Errorf("encoding model: %w", err)
	}
	var similar sql.NullString
	if f.Similar != nil {
		b, err := json.Marshal(f.Similar)
		if err != nil {
			return fmt.Errorf("encoding similar matches: %w", err)
		}
		similar = sql.NullString{String: string(b), Valid: true}
	}
	date := models.FormatDate(f.MatchDate)
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		var id, status string
		err := tx.QueryRowContext(ctx, db.rebind(`
			SELECT id, status FROM forecasts
			WHERE league = ? AND home_team = ? AND away_team = ? AND match_date = ?`),
			f.League, f.HomeTeam, f.AwayTeam, date).Scan(&id, &status)

		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, db.rebind(`
				INSERT INTO forecasts (id, league, home_team, away_team, match_date, status,
					ai_enhanced, features, model, similar, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				f.ID, f.League, f.HomeTeam, f.AwayTeam, date, models.StatusPending,
				f.AIEnhanced, string(features), string(model), similar, f.CreatedAt.UTC())
			if err != nil {
				return fmt.Errorf("inserting forecast: %w", err)
			}
		case err != nil:
			return fmt.Errorf("looking up forecast: %w", err)
		case status != models.StatusPending:
			return ErrAlreadyVerified
		default:
			f.ID = id
			_, err = tx.ExecContext(ctx, db.rebind(`
				UPDATE forecasts
				SET ai_enhanced = ?, features = ?, model = ?, similar = ?, created_at = ?
				WHERE id = ?`),
				f.AIEnhanced, string(features), string(model), similar, f.CreatedAt.UTC(), id)
			if err != nil {
				return fmt.Errorf("updating forecast: %w", err)
			}
			if _, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM predictions WHERE forecast_id = ?`), id); err != nil {
				return fmt.Errorf("clearing predictions: %w", err)
			}
		}

		for _, p := range f.Predictions {
			if err := db.insertPrediction(ctx, tx, f.ID, p); err != nil {
				return err
			}
		}
		f.Status = models.StatusPending
		return nil
	})
}

func (db *DB) insertPrediction(ctx context.Context, q execer, forecastID string, p models.Prediction) error {
	var external sql.NullFloat64
	if p.ExternalConfidence != nil {
		external = sql.NullFloat64{Float64: *p.ExternalConfidence, Valid: true}
	}
	_, err := q.ExecContext(ctx, db.rebind(`
		INSERT INTO predictions (id, forecast_id, type, pick, probability, math_confidence,
			external_label, external_confidence, hybrid_confidence, hybrid_level, ai_enhanced, reasoning)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID, forecastID, string(p.Type), p.Pick, p.Probability, string(p.MathConfidence),
		nullString(p.ExternalLabel), external, p.HybridConfidence, string(p.HybridLevel),
		p.AIEnhanced, nullString(p.Reasoning))
	if err != nil {
		return fmt.Errorf("inserting %s prediction: %w", p.Type, err)
	}
	return nil
}

// GetForecast returns a forecast with its predictions, or ErrNotFound
func (db *DB) GetForecast(ctx context.Context, id string) (*models.Forecast, error) {
	row := db.QueryRowContext(ctx, db.rebind(`SELECT `+forecastColumns+` FROM forecasts WHERE id = ?`), id)
	f, err := scanForecast(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if f.Predictions, err = db.predictions(ctx, f.ID); err != nil {
		return nil, err
	}
	return f, nil
}

// PendingForecasts returns up to limit pending forecasts, oldest match date first
func (db *DB) PendingForecasts(ctx context.Context, limit int) ([]models.Forecast, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+forecastColumns+` FROM forecasts
		WHERE status = ?
		ORDER BY match_date ASC, created_at ASC
		LIMIT ?`), models.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("querying pending forecasts: %w", err)
	}
	defer rows.Close()

	var out []models.Forecast
	for rows.Next() {
		f, err := scanForecast(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// predictions are loaded after the cursor is closed; sqlite runs on a single connection
	rows.Close()

	for i := range out {
		if out[i].Predictions, err = db.predictions(ctx, out[i].ID); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// SaveVerification marks f verified with its score, records per-prediction outcomes,
// bumps accuracy counters for predictions leaving the pending state and appends record
// to the historical corpus. Everything happens in one transaction.
func (db *DB) SaveVerification(ctx context.Context, f *models.Forecast, record models.HistoricalMatchRecord) error {
	if f.Score == nil {
		return fmt.Errorf("forecast %s has no score", f.ID)
	}
	verifiedAt := time.Now().UTC()
	if f.VerifiedAt != nil {
		verifiedAt = f.VerifiedAt.UTC()
	}
	features, err := json.Marshal(record.Features)
	if err != nil {
		return fmt.Errorf("encoding historical features: %w", err)
	}

	return db.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, db.rebind(`
			UPDATE forecasts
			SET status = ?, verified_at = ?, home_score = ?, away_score = ?,
				ht_home_score = ?, ht_away_score = ?, result = ?
			WHERE id = ? AND status = ?`),
			models.StatusVerified, verifiedAt, f.Score.Home, f.Score.Away,
			nullInt(f.Score.HalfTimeHome), nullInt(f.Score.HalfTimeAway), f.Result,
			f.ID, models.StatusPending)
		if err != nil {
			return fmt.Errorf("updating forecast: %w", err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrAlreadyVerified
		}

		for _, p := range f.Predictions {
			if p.Correct == nil {
				continue
			}
			res, err := tx.ExecContext(ctx, db.rebind(`
				UPDATE predictions SET correct = ? WHERE id = ? AND correct IS NULL`),
				*p.Correct, p.ID)
			if err != nil {
				return fmt.Errorf("updating prediction %s: %w", p.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				continue
			}
			hit := 0
			if *p.Correct {
				hit = 1
			}
			_, err = tx.ExecContext(ctx, db.rebind(`
				INSERT INTO accuracy_stats (prediction_type, total, correct) VALUES (?, 1, ?)
				ON CONFLICT (prediction_type) DO UPDATE
				SET total = accuracy_stats.total + 1, correct = accuracy_stats.correct + excluded.correct`),
				string(p.Type), hit)
			if err != nil {
				return fmt.Errorf("updating accuracy for %s: %w", p.Type, err)
			}
		}

		_, err = tx.ExecContext(ctx, db.rebind(`
			INSERT INTO historical_matches (id, league, home_team, away_team, match_date,
				features, home_goals, away_goals, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING`),
			record.ID, record.League, record.HomeTeam, record.AwayTeam, models.FormatDate(record.MatchDate),
			string(features), record.HomeGoals, record.AwayGoals, verifiedAt)
		if err != nil {
			return fmt.Errorf("inserting historical match: %w", err)
		}
		return nil
	})
}

func (db *DB) predictions(ctx context.Context, forecastID string) ([]models.Prediction, error) {
	rows, err := db.QueryContext(ctx, db.rebind(`
		SELECT `+predictionColumns+` FROM predictions WHERE forecast_id = ?`), forecastID)
	if err != nil {
		return nil, fmt.Errorf("querying predictions: %w", err)
	}
	defer rows.Close()

	byType := make(map[models.PredictionType]models.Prediction)
	for rows.Next() {
		var (
			p                     models.Prediction
			typ, mathConf, hybrid string
			label, reasoning      sql.NullString
			external              sql.NullFloat64
			correct               sql.NullBool
		)
		if err := rows.Scan(&p.ID, &typ, &p.Pick, &p.Probability, &mathConf, &label,
			&external, &p.HybridConfidence, &hybrid, &p.AIEnhanced, &reasoning, &correct); err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		p.Type = models.PredictionType(typ)
		p.MathConfidence = models.ConfidenceLevel(mathConf)
		p.HybridLevel = models.ConfidenceLevel(hybrid)
		p.ExternalLabel = label.String
		p.Reasoning = reasoning.String
		if external.Valid {
			v := external.Float64
			p.ExternalConfidence = &v
		}
		if correct.Valid {
			v := correct.Bool
			p.Correct = &v
		}
		byType[p.Type] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// stable order regardless of storage order
	out := make([]models.Prediction, 0, len(byType))
	for _, t := range models.PredictionTypes {
		if p, ok := byType[t]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForecast(row scanner) (*models.Forecast, error) {
	var (
		f                          models.Forecast
		date, features, model      string
		similar, result            sql.NullString
		verifiedAt                 sql.NullTime
		home, away, htHome, htAway sql.NullInt64
	)
	err := row.Scan(&f.ID, &f.League, &f.HomeTeam, &f.AwayTeam, &date, &f.Status, &f.AIEnhanced,
		&features, &model, &similar, &f.CreatedAt, &verifiedAt,
		&home, &away, &htHome, &htAway, &result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning forecast: %w", err)
	}

	if f.MatchDate, err = models.ParseDate(date); err != nil {
		return nil, fmt.Errorf("forecast %s: %w", f.ID, err)
	}
	if err := json.Unmarshal([]byte(features), &f.Features); err != nil {
		return nil, fmt.Errorf("decoding features of %s: %w", f.ID, err)
	}
	if err := json.Unmarshal([]byte(model), &f.Model); err != nil {
		return nil, fmt.Errorf("decoding model of %s: %w", f.ID, err)
	}
	if similar.Valid {
		f.Similar = &models.SimilarityResult{}
		if err := json.Unmarshal([]byte(similar.String), f.Similar); err != nil {
			return nil, fmt.Errorf("decoding similar matches of %s: %w", f.ID, err)
		}
	}
	if verifiedAt.Valid {
		t := verifiedAt.Time
		f.VerifiedAt = &t
	}
	if home.Valid && away.Valid {
		f.Score = &models.Score{Home: int(home.Int64), Away: int(away.Int64)}
		if htHome.Valid && htAway.Valid {
			h, a := int(htHome.Int64), int(htAway.Int64)
			f.Score.HalfTimeHome, f.Score.HalfTimeAway = &h, &a
		}
	}
	f.Result = result.String
	return &f, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
