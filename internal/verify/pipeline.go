package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/clock"
	"github.com/Alias1177/footcast/internal/leagues"
	"github.com/Alias1177/footcast/internal/metrics"
	"github.com/Alias1177/footcast/internal/teamname"
	"github.com/Alias1177/footcast/models"
)

// Verification outcomes reported to metrics
const (
	OutcomeVerified = "verified"
	OutcomeNotFound = "not_found"
	OutcomeSkipped  = "skipped"
	OutcomePending  = "pending"
	OutcomeError    = "error"
)

// Store holds pending forecasts and persists reconciliations atomically
type Store interface {
	PendingForecasts(ctx context.Context, limit int) ([]models.Forecast, error)
	SaveVerification(ctx context.Context, f *models.Forecast, record models.HistoricalMatchRecord) error
}

// ResultSource provides finished matches of a competition
type ResultSource interface {
	FinishedMatches(ctx context.Context, code string, from, to time.Time) ([]models.FinishedMatch, error)
}

// LeagueResolver maps a stored league name to a competition
type LeagueResolver interface {
	Resolve(name string) (leagues.Competition, error)
}

// Config tunes a reconciliation batch
type Config struct {
	BatchSize   int
	WindowDays  int           // trailing window of finished matches fetched per league
	LeaguePause time.Duration // pause between league fetches
	DateSlack   int           // allowed distance in days between forecast and match dates
}

// DefaultConfig returns the standard batch settings
func DefaultConfig() Config {
	return Config{
		BatchSize:   100,
		WindowDays:  14,
		LeaguePause: 6500 * time.Millisecond,
		DateSlack:   1,
	}
}

// Pipeline reconciles pending forecasts with real results
type Pipeline struct {
	store   Store
	results ResultSource
	leagues LeagueResolver
	cfg     Config
	match   teamname.Matcher
	clock   clock.Clock
	metrics *metrics.Recorder
	logger  zerolog.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithClock replaces the wall clock
func WithClock(c clock.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithMatcher replaces the team name matcher
func WithMatcher(m teamname.Matcher) Option {
	return func(p *Pipeline) { p.match = m }
}

// WithMetrics records outcomes
func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithLogger replaces the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a reconciliation pipeline
func NewPipeline(store Store, results ResultSource, resolver LeagueResolver, cfg Config, opts ...Option) *Pipeline {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = def.WindowDays
	}
	if cfg.DateSlack < 0 {
		cfg.DateSlack = 0
	}
	p := &Pipeline{
		store:   store,
		results: results,
		leagues: resolver,
		cfg:     cfg,
		match:   teamname.Match,
		clock:   clock.Real{},
		logger:  log.With().Str("component", "verify").Logger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// leagueBatch is the pending forecasts of one stored league name, in load order
type leagueBatch struct {
	league    string
	forecasts []models.Forecast
}

// Run reconciles one batch. It never fails as a whole: problems end up in the summary.
func (p *Pipeline) Run(ctx context.Context) models.VerificationSummary {
	summary := models.VerificationSummary{StartedAt: p.clock.Now(), Errors: []string{}}
	defer func() {
		summary.FinishedAt = p.clock.Now()
		p.logger.Info().
			Int("processed", summary.Processed).
			Int("verified", summary.Verified).
			Int("not_found", summary.NotFound).
			Int("skipped", summary.Skipped).
			Int("pending", summary.Pending).
			Int("errors", len(summary.Errors)).
			Dur("took", summary.FinishedAt.Sub(summary.StartedAt)).
			Msg("Verification batch finished")
	}()

	pending, err := p.store.PendingForecasts(ctx, p.cfg.BatchSize)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to load pending forecasts")
		summary.Errors = append(summary.Errors, fmt.Sprintf("loading pending forecasts: %v", err))
		return summary
	}
	if len(pending) == 0 {
		p.logger.Debug().Msg("No pending forecasts")
		return summary
	}

	fetched := 0
	for _, batch := range groupByLeague(pending) {
		if ctx.Err() != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("batch interrupted: %v", ctx.Err()))
			return summary
		}

		comp, err := p.leagues.Resolve(batch.league)
		if err != nil {
			p.logger.Warn().Err(err).Str("league", batch.league).Int("forecasts", len(batch.forecasts)).
				Msg("League has no competition mapping, skipping")
			summary.Unresolvable = append(summary.Unresolvable, batch.league)
			summary.Skipped += len(batch.forecasts)
			summary.Processed += len(batch.forecasts)
			p.metrics.RecordVerification(OutcomeSkipped, len(batch.forecasts))
			continue
		}

		if fetched > 0 && p.cfg.LeaguePause > 0 {
			if err := p.clock.Sleep(ctx, p.cfg.LeaguePause); err != nil {
				summary.Errors = append(summary.Errors, fmt.Sprintf("batch interrupted: %v", err))
				return summary
			}
		}
		fetched++

		p.runLeague(ctx, comp, batch.forecasts, &summary)
	}
	return summary
}

func (p *Pipeline) runLeague(ctx context.Context, comp leagues.Competition, forecasts []models.Forecast, summary *models.VerificationSummary) {
	logger := p.logger.With().Str("league", comp.Code).Logger()

	now := p.clock.Now()
	from := now.AddDate(0, 0, -p.cfg.WindowDays)
	matches, err := p.results.FinishedMatches(ctx, comp.Code, from, now)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch finished matches")
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", comp.Code, err))
		summary.Processed += len(forecasts)
		p.metrics.RecordVerification(OutcomeError, len(forecasts))
		return
	}
	logger.Debug().Int("matches", len(matches)).Int("forecasts", len(forecasts)).Msg("Reconciling league")

	today := models.DateOnly(now)
	for i := range forecasts {
		f := &forecasts[i]
		summary.Processed++

		m, found := p.find(*f, matches)
		if !found {
			p.unmatched(logger, *f, today, summary)
			continue
		}

		unverifiable, err := p.reconcile(ctx, f, m)
		switch {
		case errors.Is(err, errNoScore):
			// postponed or abandoned fixtures come back without a score
			p.unmatched(logger, *f, today, summary)
		case err != nil:
			logger.Error().Err(err).Str("forecast", f.ID).Msg("Failed to save verification")
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: forecast %s: %v", comp.Code, f.ID, err))
			p.metrics.RecordVerification(OutcomeError, 1)
		default:
			summary.Verified++
			summary.Unverifiable += unverifiable
			p.metrics.RecordVerification(OutcomeVerified, 1)
			logger.Info().Str("forecast", f.ID).Str("score", f.Score.String()).Msg("Forecast verified")
		}
	}
}

// unmatched counts a forecast with no usable result: past fixtures are not found, the rest wait
func (p *Pipeline) unmatched(logger zerolog.Logger, f models.Forecast, today time.Time, summary *models.VerificationSummary) {
	if !models.DateOnly(f.MatchDate).Before(today) {
		summary.Pending++
		p.metrics.RecordVerification(OutcomePending, 1)
		return
	}
	summary.NotFound++
	p.metrics.RecordVerification(OutcomeNotFound, 1)
	logger.Debug().Str("forecast", f.ID).Str("home", f.HomeTeam).Str("away", f.AwayTeam).
		Str("date", models.FormatDate(f.MatchDate)).Msg("No finished match found")
}

var errNoScore = errors.New("match has no final score")

// reconcile evaluates every prediction of f against m and persists the result.
// It returns the number of predictions that could not be judged.
func (p *Pipeline) reconcile(ctx context.Context, f *models.Forecast, m models.FinishedMatch) (int, error) {
	if m.Score == nil {
		return 0, errNoScore
	}

	unverifiable := 0
	var judged []int
	for i := range f.Predictions {
		pr := &f.Predictions[i]
		if pr.Correct != nil {
			continue
		}
		pr.Correct = Evaluate(*pr, *m.Score)
		if pr.Correct == nil {
			unverifiable++
			continue
		}
		judged = append(judged, i)
	}

	score := *m.Score
	verifiedAt := p.clock.Now()
	f.Status = models.StatusVerified
	f.Score = &score
	f.Result = score.Outcome()
	f.VerifiedAt = &verifiedAt

	record := models.HistoricalMatchRecord{
		ID:        f.ID,
		League:    f.League,
		HomeTeam:  f.HomeTeam,
		AwayTeam:  f.AwayTeam,
		MatchDate: models.DateOnly(f.MatchDate),
		Features:  models.HistoricalFeaturesOf(f.Features),
		HomeGoals: score.Home,
		AwayGoals: score.Away,
	}
	if err := p.store.SaveVerification(ctx, f, record); err != nil {
		f.Status = models.StatusPending
		f.Score = nil
		f.Result = ""
		f.VerifiedAt = nil
		for _, i := range judged {
			f.Predictions[i].Correct = nil
		}
		return 0, err
	}
	return unverifiable, nil
}

// find returns the finished match played by both teams of f within the date slack
func (p *Pipeline) find(f models.Forecast, matches []models.FinishedMatch) (models.FinishedMatch, bool) {
	for _, m := range matches {
		if models.DaysApart(f.MatchDate, m.UTCDate) > p.cfg.DateSlack {
			continue
		}
		if p.match(f.HomeTeam, m.HomeTeam) && p.match(f.AwayTeam, m.AwayTeam) {
			return m, true
		}
	}
	return models.FinishedMatch{}, false
}

// groupByLeague keeps first-seen league order so the oldest fixtures go first
func groupByLeague(forecasts []models.Forecast) []leagueBatch {
	var out []leagueBatch
	index := make(map[string]int)
	for _, f := range forecasts {
		i, ok := index[f.League]
		if !ok {
			i = len(out)
			index[f.League] = i
			out = append(out, leagueBatch{league: f.League})
		}
		out[i].forecasts = append(out[i].forecasts, f)
	}
	return out
}
