// Package analyze builds forecasts for upcoming fixtures from provider data.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/footcast/internal/api/footballdata"
	"github.com/Alias1177/footcast/internal/features"
	"github.com/Alias1177/footcast/internal/leagues"
	"github.com/Alias1177/footcast/internal/metrics"
	"github.com/Alias1177/footcast/internal/teamname"
	"github.com/Alias1177/footcast/models"
)

// ErrTeamNotFound is returned when a team is not in its league's table
var ErrTeamNotFound = errors.New("team not found in standings")

// Provider is the football data the analyzer reads
type Provider interface {
	Standings(ctx context.Context, code string) (*footballdata.Standings, error)
	Matches(ctx context.Context, code string, from, to time.Time, status string) ([]models.FinishedMatch, error)
	Head2Head(ctx context.Context, matchID int64, limit int) ([]models.FinishedMatch, error)
	TeamMatches(ctx context.Context, teamID int64, limit int) ([]models.FinishedMatch, error)
}

// Forecaster turns features into a forecast
type Forecaster interface {
	Forecast(ctx context.Context, fv models.FeatureVector, matchDate time.Time) (*models.Forecast, error)
}

// SimilarityFinder looks up comparable past matches
type SimilarityFinder interface {
	Search(ctx context.Context, fv models.FeatureVector, league string) (*models.SimilarityResult, error)
}

// Store persists new forecasts
type Store interface {
	SaveForecast(ctx context.Context, f *models.Forecast) error
}

// Service runs the forecast flow for one fixture
type Service struct {
	provider  Provider
	leagues   *leagues.Registry
	extractor *features.Extractor
	engine    Forecaster
	similar   SimilarityFinder
	store     Store
	metrics   *metrics.Recorder
	formLimit int
	h2hLimit  int
	logger    zerolog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithSimilarity attaches similar past matches to forecasts
func WithSimilarity(s SimilarityFinder) Option {
	return func(svc *Service) { svc.similar = s }
}

// WithStore saves every forecast as pending
func WithStore(s Store) Option {
	return func(svc *Service) { svc.store = s }
}

// WithMetrics counts forecasts
func WithMetrics(m *metrics.Recorder) Option {
	return func(svc *Service) { svc.metrics = m }
}

// WithExtractor replaces the feature extractor
func WithExtractor(e *features.Extractor) Option {
	return func(svc *Service) { svc.extractor = e }
}

// WithLogger replaces the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(svc *Service) { svc.logger = l }
}

// New creates the analysis service
func New(provider Provider, registry *leagues.Registry, engine Forecaster, opts ...Option) *Service {
	s := &Service{
		provider:  provider,
		leagues:   registry,
		extractor: features.NewExtractor(registry),
		engine:    engine,
		formLimit: 5,
		h2hLimit:  10,
		logger:    log.With().Str("component", "analyze").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze forecasts the fixture in req. Missing head-to-head data, form history or
// similar matches only thin out the forecast; an unknown league or team fails it.
func (s *Service) Analyze(ctx context.Context, req models.MatchRequest) (*models.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	comp, err := s.leagues.Resolve(req.League)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With().Str("league", comp.Code).Str("home", req.HomeTeam).Str("away", req.AwayTeam).Logger()

	table, err := s.provider.Standings(ctx, comp.Code)
	if err != nil {
		return nil, err
	}

	home, err := findTeam(req.HomeTeam, table.Teams)
	if err != nil {
		return nil, err
	}
	away, err := findTeam(req.AwayTeam, table.Teams)
	if err != nil {
		return nil, err
	}
	if home.TeamID == away.TeamID && home.Name == away.Name {
		return nil, fmt.Errorf("%q and %q resolve to the same team %s", req.HomeTeam, req.AwayTeam, home.Name)
	}

	league := models.LeagueContext{
		Code:            comp.Code,
		Teams:           len(table.Teams),
		AvgGoalsPerGame: features.LeagueAverageGoals(table.Teams, comp.AvgGoals),
		Matchday:        table.Matchday,
		TotalMatchdays:  comp.Matchdays,
	}
	if comp.Teams > 0 && comp.Teams != league.Teams {
		// group-stage tables list fewer clubs than the competition
		league.Teams = comp.Teams
	}

	h2h := s.headToHead(ctx, logger, comp.Code, home, away, req.MatchDate)
	home.Form = s.form(ctx, logger, home)
	away.Form = s.form(ctx, logger, away)

	fv := s.extractor.Extract(home, away, h2h, league)

	f, err := s.engine.Forecast(ctx, fv, req.MatchDate)
	if err != nil {
		return nil, err
	}

	if s.similar != nil {
		res, err := s.similar.Search(ctx, fv, comp.Code)
		if err != nil {
			logger.Warn().Err(err).Msg("Similarity search failed, forecast goes without it")
		} else {
			f.Similar = res
		}
	}

	if s.store != nil {
		if err := s.store.SaveForecast(ctx, f); err != nil {
			return nil, fmt.Errorf("saving forecast: %w", err)
		}
	}
	s.metrics.RecordForecast(f.AIEnhanced)

	logger.Info().Str("forecast", f.ID).Bool("ai_enhanced", f.AIEnhanced).Msg("Forecast ready")
	return f, nil
}

// findTeam picks the table row best matching name, by full name first and then short name
func findTeam(name string, teams []models.TeamSnapshot) (models.TeamSnapshot, error) {
	names := make([]string, len(teams))
	shorts := make([]string, len(teams))
	for i, t := range teams {
		names[i] = t.Name
		shorts[i] = t.ShortName
	}

	bestIdx, bestStrength := -1, teamname.NoMatch
	for _, candidates := range [][]string{names, shorts} {
		if i, ok := teamname.Best(name, candidates); ok {
			if s := teamname.Compare(name, candidates[i]); s > bestStrength {
				bestIdx, bestStrength = i, s
			}
		}
	}
	if bestIdx < 0 {
		return models.TeamSnapshot{}, fmt.Errorf("%w: %q", ErrTeamNotFound, name)
	}
	return teams[bestIdx], nil
}

// headToHead tallies previous meetings through the scheduled fixture. Any failure gives an empty tally.
func (s *Service) headToHead(ctx context.Context, logger zerolog.Logger, code string, home, away models.TeamSnapshot, date time.Time) models.H2HTally {
	day := models.DateOnly(date)
	fixtures, err := s.provider.Matches(ctx, code, day.AddDate(0, 0, -1), day.AddDate(0, 0, 1), footballdata.StatusScheduled)
	if err != nil {
		logger.Warn().Err(err).Msg("Scheduled fixtures unavailable, no head-to-head")
		return models.H2HTally{}
	}

	for _, m := range fixtures {
		if !teamname.Match(home.Name, m.HomeTeam) || !teamname.Match(away.Name, m.AwayTeam) {
			continue
		}
		meetings, err := s.provider.Head2Head(ctx, m.ID, s.h2hLimit)
		if err != nil {
			logger.Warn().Err(err).Int64("match_id", m.ID).Msg("Head-to-head unavailable")
			return models.H2HTally{}
		}
		// the fixture itself has no score yet and is skipped by the tally
		return features.TallyHeadToHead(home.Name, meetings)
	}

	logger.Debug().Msg("Fixture not in schedule, no head-to-head")
	return models.H2HTally{}
}

// form returns the table form, or rebuilds it from recent matches when the table has none
func (s *Service) form(ctx context.Context, logger zerolog.Logger, team models.TeamSnapshot) string {
	if team.Form != "" || team.TeamID == 0 {
		return team.Form
	}
	matches, err := s.provider.TeamMatches(ctx, team.TeamID, s.formLimit)
	if err != nil {
		logger.Warn().Err(err).Str("team", team.Name).Msg("Recent matches unavailable, form left neutral")
		return ""
	}
	return footballdata.FormFromMatches(team.Name, matches, s.formLimit)
}
