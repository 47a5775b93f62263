// Package forecast turns a feature vector into typed predictions with fused confidence.
package forecast

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/clock"
	"github.com/Alias1177/footcast/models"
)

// Config holds model constants and per-type confidence thresholds
type Config struct {
	MaxGoals       int       // score grid is 0..MaxGoals per side
	GoalLines      []float64 // over/under lines reported
	TotalsLine     float64   // line used for the total-goals pick
	FirstHalfShare float64   // share of expected goals scored before half-time
	TopScores      int
	FallbackAvg    float64
	Thresholds     map[models.PredictionType]Thresholds
}

// DefaultConfig returns the standard model settings
func DefaultConfig() Config {
	return Config{
		MaxGoals:       5,
		GoalLines:      []float64{0.5, 1.5, 2.5, 3.5},
		TotalsLine:     2.5,
		FirstHalfShare: 0.45,
		TopScores:      5,
		FallbackAvg:    1.35,
		Thresholds:     DefaultThresholds(),
	}
}

// Engine produces forecasts. The advisor is optional.
type Engine struct {
	cfg      Config
	advisor  models.Advisor
	accuracy models.AccuracyReader
	clock    clock.Clock
	logger   zerolog.Logger
}

// Option configures an Engine
type Option func(*Engine)

// WithAdvisor consults advisor for a second opinion
func WithAdvisor(a models.Advisor) Option {
	return func(e *Engine) { e.advisor = a }
}

// WithAccuracy forwards per-type track records to the advisor
func WithAccuracy(r models.AccuracyReader) Option {
	return func(e *Engine) { e.accuracy = r }
}

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger replaces the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine
func New(cfg Config, opts ...Option) *Engine {
	if cfg.Thresholds == nil {
		cfg.Thresholds = DefaultThresholds()
	}
	if cfg.MaxGoals <= 0 {
		cfg.MaxGoals = 5
	}
	if cfg.FallbackAvg <= 0 {
		cfg.FallbackAvg = 1.35
	}
	e := &Engine{
		cfg:    cfg,
		clock:  clock.Real{},
		logger: log.With().Str("component", "forecast").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model runs the Poisson model over fv
func (e *Engine) Model(fv models.FeatureVector) models.ModelOutput {
	homeXG, awayXG := ExpectedGoals(fv, e.cfg.FallbackAvg)
	table := NewScoreTable(homeXG, awayXG, e.cfg.MaxGoals)
	homeWin, draw, awayWin := table.Outcomes()

	half := NewScoreTable(homeXG*e.cfg.FirstHalfShare, awayXG*e.cfg.FirstHalfShare, e.cfg.MaxGoals)
	htHome, htDraw, htAway := half.Outcomes()

	out := models.ModelOutput{
		HomeExpectedGoals: homeXG,
		AwayExpectedGoals: awayXG,
		HomeWin:           homeWin,
		Draw:              draw,
		AwayWin:           awayWin,
		BTTS:              table.BTTS(),
		HalfTimeHomeWin:   htHome,
		HalfTimeDraw:      htDraw,
		HalfTimeAwayWin:   htAway,
		TopScores:         table.MostLikely(e.cfg.TopScores),
		Power:             PowerIndices(fv, e.cfg.FallbackAvg),
	}
	for _, line := range e.cfg.GoalLines {
		out.OverUnder = append(out.OverUnder, table.OverUnder(line))
	}
	return out
}

// Forecast builds a pending forecast for the fixture described by fv.
// An advisor failure never fails the forecast; it comes back mathematics-only.
func (e *Engine) Forecast(ctx context.Context, fv models.FeatureVector, matchDate time.Time) (*models.Forecast, error) {
	if fv.HomeTeam == "" || fv.AwayTeam == "" {
		return nil, fmt.Errorf("feature vector has no teams")
	}

	logger := e.logger.With().Str("league", fv.League).Str("home", fv.HomeTeam).Str("away", fv.AwayTeam).Logger()

	model := e.Model(fv)
	predictions := e.predictions(fv, model)

	advice := e.advise(ctx, logger, fv, model)

	enhanced := false
	for i := range predictions {
		p := &predictions[i]
		opinion := advice.Opinion(p.Type)
		p.HybridConfidence, p.HybridLevel, p.AIEnhanced = Fuse(p.MathConfidence, opinion)
		if opinion != nil {
			conf := opinion.Confidence
			p.ExternalConfidence = &conf
			p.ExternalLabel = opinion.Label
			p.Reasoning = opinion.Reasoning
		}
		enhanced = enhanced || p.AIEnhanced
	}

	f := &models.Forecast{
		ID:          uuid.NewString(),
		League:      fv.League,
		HomeTeam:    fv.HomeTeam,
		AwayTeam:    fv.AwayTeam,
		MatchDate:   models.DateOnly(matchDate),
		Status:      models.StatusPending,
		Predictions: predictions,
		Features:    fv,
		Model:       model,
		AIEnhanced:  enhanced,
		CreatedAt:   e.clock.Now(),
	}

	logger.Info().Bool("ai_enhanced", enhanced).
		Float64("home_xg", model.HomeExpectedGoals).
		Float64("away_xg", model.AwayExpectedGoals).
		Msg("Forecast built")
	return f, nil
}

// advise returns nil when there is no advisor or it fails
func (e *Engine) advise(ctx context.Context, logger zerolog.Logger, fv models.FeatureVector, model models.ModelOutput) *models.Advice {
	if e.advisor == nil {
		return nil
	}

	req := models.AdviceRequest{Features: fv, Model: model}
	if e.accuracy != nil {
		stats, err := e.accuracy.AccuracyStats(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Accuracy stats unavailable for advisor")
		} else {
			req.Accuracy = stats
		}
	}

	advice, err := e.advisor.Advise(ctx, req)
	if err != nil {
		logger.Warn().Err(err).Msg("Advisor failed, using mathematical confidence only")
		return nil
	}
	return advice
}

func (e *Engine) predictions(fv models.FeatureVector, m models.ModelOutput) []models.Prediction {
	var out []models.Prediction
	add := func(t models.PredictionType, pick string, p float64) {
		out = append(out, models.Prediction{
			ID:             uuid.NewString(),
			Type:           t,
			Pick:           pick,
			Probability:    p,
			MathConfidence: MathConfidence(t, p, fv, e.cfg.Thresholds[t]),
		})
	}

	pick, p := argmax3(m.HomeWin, m.Draw, m.AwayWin)
	add(models.PredictionResult, pick, p)

	line := e.lineFor(m, e.cfg.TotalsLine)
	if line.Over >= line.Under {
		add(models.PredictionTotalGoals, TotalsPick(models.PickOver, line.Line), line.Over)
	} else {
		add(models.PredictionTotalGoals, TotalsPick(models.PickUnder, line.Line), line.Under)
	}

	if m.BTTS >= 0.5 {
		add(models.PredictionBTTS, models.PickYes, m.BTTS)
	} else {
		add(models.PredictionBTTS, models.PickNo, 1-m.BTTS)
	}

	if len(m.TopScores) > 0 {
		top := m.TopScores[0]
		add(models.PredictionCorrectScore, top.String(), top.Probability)
	}

	pick, p = argmax3(m.HalfTimeHomeWin, m.HalfTimeDraw, m.HalfTimeAwayWin)
	add(models.PredictionFirstHalfResult, pick, p)

	return out
}

func (e *Engine) lineFor(m models.ModelOutput, line float64) models.GoalLine {
	for _, gl := range m.OverUnder {
		if gl.Line == line {
			return gl
		}
	}
	// line not among the reported ones
	home, away := m.HomeExpectedGoals, m.AwayExpectedGoals
	return NewScoreTable(home, away, e.cfg.MaxGoals).OverUnder(line)
}

// TotalsPick formats a total-goals pick such as over_2.5
func TotalsPick(side string, line float64) string {
	return fmt.Sprintf("%s_%g", side, line)
}

// argmax3 picks home, draw or away; ties resolve in that order
func argmax3(home, draw, away float64) (string, float64) {
	pick, p := models.PickHome, home
	if draw > p {
		pick, p = models.PickDraw, draw
	}
	if away > p {
		pick, p = models.PickAway, away
	}
	return pick, p
}
