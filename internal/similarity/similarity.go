// Package similarity finds finished matches whose features resemble an upcoming fixture.
package similarity

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/models"
)

// Weights of each feature in the similarity score
type Weights struct {
	PositionDiff  float64
	Form          float64 // per side
	Goals         float64 // per goal average
	HomeAdvantage float64
	Derby         float64
	Importance    float64
}

// Scales are the differences at which a feature stops counting as close
type Scales struct {
	PositionDiff  float64
	Form          float64
	Goals         float64
	HomeAdvantage float64
}

// Config tunes the search
type Config struct {
	Window   int     // historical records considered
	MinScore float64 // records below are dropped
	TopN     int
	Weights  Weights
	Scales   Scales
	Defaults models.SimilarityStats // returned when nothing is similar enough
}

// DefaultConfig returns the standard search settings
func DefaultConfig() Config {
	return Config{
		Window:   200,
		MinScore: 50,
		TopN:     10,
		Weights: Weights{
			PositionDiff:  2,
			Form:          1.5,
			Goals:         1,
			HomeAdvantage: 1,
			Derby:         0.5,
			Importance:    0.5,
		},
		Scales: Scales{
			PositionDiff:  20,
			Form:          100,
			Goals:         3,
			HomeAdvantage: 60,
		},
		Defaults: PopulationDefaults(),
	}
}

// PopulationDefaults are typical top-flight outcome rates
func PopulationDefaults() models.SimilarityStats {
	return models.SimilarityStats{
		HomeWinRate:  0.45,
		DrawRate:     0.27,
		AwayWinRate:  0.28,
		AvgGoals:     2.6,
		Over25Rate:   0.5,
		BTTSRate:     0.5,
		IsPopulation: true,
	}
}

// Searcher runs similarity searches over stored history
type Searcher struct {
	store  models.HistoryReader
	cfg    Config
	logger zerolog.Logger
}

// NewSearcher creates a searcher over store
func NewSearcher(store models.HistoryReader, cfg Config) *Searcher {
	return &Searcher{
		store:  store,
		cfg:    cfg,
		logger: log.With().Str("component", "similarity").Logger(),
	}
}

// Search ranks recent finished matches of league by similarity to fv and aggregates their outcomes
func (s *Searcher) Search(ctx context.Context, fv models.FeatureVector, league string) (*models.SimilarityResult, error) {
	records, err := s.store.RecentHistorical(ctx, league, s.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", league, err)
	}
	res := Rank(fv, records, s.cfg)
	s.logger.Debug().Str("league", league).Int("corpus", len(records)).Int("kept", len(res.Matches)).Msg("Similarity search done")
	return res, nil
}

// Rank scores records against fv, keeps the top matches above the floor and aggregates them
func Rank(fv models.FeatureVector, records []models.HistoricalMatchRecord, cfg Config) *models.SimilarityResult {
	var kept []models.SimilarMatch
	for _, r := range records {
		score := Score(fv, r.Features, cfg)
		if score < cfg.MinScore {
			continue
		}
		kept = append(kept, models.SimilarMatch{Record: r, Similarity: score})
	}

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Similarity > kept[j].Similarity })
	if cfg.TopN > 0 && len(kept) > cfg.TopN {
		kept = kept[:cfg.TopN]
	}

	return &models.SimilarityResult{Matches: kept, Stats: Aggregate(kept, cfg.Defaults)}
}

// Score is the weighted similarity in [0,100] between fv and a stored feature set.
// Missing stored fields drop out of both numerator and denominator.
func Score(fv models.FeatureVector, h models.HistoricalFeatures, cfg Config) float64 {
	w, sc := cfg.Weights, cfg.Scales
	var num, den float64

	numeric := func(stored *float64, current, scale, weight float64) {
		if stored == nil || weight <= 0 {
			return
		}
		num += weight * closeness(current-*stored, scale)
		den += weight
	}

	numeric(h.PositionDiff, float64(fv.PositionDiff), sc.PositionDiff, w.PositionDiff)
	numeric(h.HomeForm, fv.HomeForm, sc.Form, w.Form)
	numeric(h.AwayForm, fv.AwayForm, sc.Form, w.Form)
	numeric(h.HomeGoalsFor, fv.HomeGoalsFor, sc.Goals, w.Goals)
	numeric(h.HomeGoalsAgainst, fv.HomeGoalsAgainst, sc.Goals, w.Goals)
	numeric(h.AwayGoalsFor, fv.AwayGoalsFor, sc.Goals, w.Goals)
	numeric(h.AwayGoalsAgainst, fv.AwayGoalsAgainst, sc.Goals, w.Goals)
	numeric(h.HomeAdvantage, fv.HomeAdvantage, sc.HomeAdvantage, w.HomeAdvantage)

	if h.IsDerby != nil && w.Derby > 0 {
		den += w.Derby
		if *h.IsDerby == fv.IsDerby {
			num += w.Derby
		}
	}
	if h.Importance != nil && w.Importance > 0 {
		den += w.Importance
		if *h.Importance == fv.Importance {
			num += w.Importance
		}
	}

	if den == 0 {
		return 0
	}
	return math.Max(0, math.Min(100, 100*num/den))
}

// closeness is 1 - min(|delta|/scale, 1)
func closeness(delta, scale float64) float64 {
	if scale <= 0 {
		if delta == 0 {
			return 1
		}
		return 0
	}
	return 1 - math.Min(math.Abs(delta)/scale, 1)
}

// Aggregate computes outcome rates of matches, or defaults when there are none
func Aggregate(matches []models.SimilarMatch, defaults models.SimilarityStats) models.SimilarityStats {
	if len(matches) == 0 {
		defaults.SampleSize = 0
		defaults.IsPopulation = true
		return defaults
	}

	var home, draw, away, over, btts, goals int
	for _, m := range matches {
		hg, ag := m.Record.HomeGoals, m.Record.AwayGoals
		switch models.OutcomeOf(hg, ag) {
		case models.PickHome:
			home++
		case models.PickAway:
			away++
		default:
			draw++
		}
		goals += hg + ag
		if hg+ag > 2 {
			over++
		}
		if hg > 0 && ag > 0 {
			btts++
		}
	}

	n := float64(len(matches))
	return models.SimilarityStats{
		SampleSize:  len(matches),
		HomeWinRate: float64(home) / n,
		DrawRate:    float64(draw) / n,
		AwayWinRate: float64(away) / n,
		AvgGoals:    float64(goals) / n,
		Over25Rate:  float64(over) / n,
		BTTSRate:    float64(btts) / n,
	}
}
