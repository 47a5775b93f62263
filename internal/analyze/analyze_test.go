package analyze

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/footcast/internal/api/footballdata"
	"github.com/Alias1177/footcast/internal/clock"
	"github.com/Alias1177/footcast/internal/forecast"
	"github.com/Alias1177/footcast/internal/leagues"
	"github.com/Alias1177/footcast/internal/metrics"
	"github.com/Alias1177/footcast/models"
)

type fakeProvider struct {
	standings   *footballdata.Standings
	standErr    error
	fixtures    []models.FinishedMatch
	fixturesErr error
	h2h         []models.FinishedMatch
	h2hErr      error
	recent      map[int64][]models.FinishedMatch

	h2hCalls    []int64
	recentCalls []int64
}

func (p *fakeProvider) Standings(_ context.Context, code string) (*footballdata.Standings, error) {
	if p.standErr != nil {
		return nil, p.standErr
	}
	return p.standings, nil
}

func (p *fakeProvider) Matches(_ context.Context, _ string, _, _ time.Time, _ string) ([]models.FinishedMatch, error) {
	return p.fixtures, p.fixturesErr
}

func (p *fakeProvider) Head2Head(_ context.Context, matchID int64, _ int) ([]models.FinishedMatch, error) {
	p.h2hCalls = append(p.h2hCalls, matchID)
	return p.h2h, p.h2hErr
}

func (p *fakeProvider) TeamMatches(_ context.Context, teamID int64, _ int) ([]models.FinishedMatch, error) {
	p.recentCalls = append(p.recentCalls, teamID)
	return p.recent[teamID], nil
}

type fakeSimilarity struct {
	res *models.SimilarityResult
	err error
}

func (f fakeSimilarity) Search(context.Context, models.FeatureVector, string) (*models.SimilarityResult, error) {
	return f.res, f.err
}

type fakeStore struct {
	saved []*models.Forecast
	err   error
}

func (s *fakeStore) SaveForecast(_ context.Context, f *models.Forecast) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, f)
	return nil
}

func plTable() *footballdata.Standings {
	return &footballdata.Standings{
		Competition: "PL",
		Matchday:    27,
		Teams: []models.TeamSnapshot{
			{TeamID: 57, Name: "Arsenal FC", ShortName: "Arsenal", Position: 2, PlayedGames: 26, GoalsFor: 52, GoalsAgainst: 26, Form: "WWDWW"},
			{TeamID: 64, Name: "Liverpool FC", ShortName: "Liverpool", Position: 1, PlayedGames: 26, GoalsFor: 60, GoalsAgainst: 24, Form: "WWWDW"},
			{TeamID: 61, Name: "Chelsea FC", ShortName: "Chelsea", Position: 8, PlayedGames: 26, GoalsFor: 26, GoalsAgainst: 39, Form: ""},
			{TeamID: 66, Name: "Manchester United FC", ShortName: "Man United", Position: 12, PlayedGames: 26, GoalsFor: 30, GoalsAgainst: 35, Form: "LDLWL"},
		},
	}
}

func score(h, a int) *models.Score { return &models.Score{Home: h, Away: a} }

func newService(p Provider, opts ...Option) *Service {
	engine := forecast.New(forecast.DefaultConfig(),
		forecast.WithClock(clock.NewFake(time.Date(2025, 2, 27, 9, 0, 0, 0, time.UTC))),
		forecast.WithLogger(zerolog.Nop()))
	opts = append([]Option{WithLogger(zerolog.Nop())}, opts...)
	return New(p, leagues.Default(), engine, opts...)
}

func request() models.MatchRequest {
	return models.MatchRequest{
		League:    "АПЛ",
		HomeTeam:  "Arsenal",
		AwayTeam:  "Chelsea",
		MatchDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAnalyzeFullFlow(t *testing.T) {
	provider := &fakeProvider{
		standings: plTable(),
		fixtures: []models.FinishedMatch{
			{ID: 9001, HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC", UTCDate: time.Date(2025, 3, 1, 17, 30, 0, 0, time.UTC)},
		},
		h2h: []models.FinishedMatch{
			{HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC", Score: score(2, 0)},
			{HomeTeam: "Chelsea FC", AwayTeam: "Arsenal FC", Score: score(1, 1)},
			{HomeTeam: "Chelsea FC", AwayTeam: "Arsenal FC", Score: score(2, 1)},
		},
		recent: map[int64][]models.FinishedMatch{
			61: {
				{HomeTeam: "Chelsea FC", AwayTeam: "Everton FC", Score: score(0, 1)},
				{HomeTeam: "Fulham FC", AwayTeam: "Chelsea FC", Score: score(0, 2)},
			},
		},
	}
	similar := &models.SimilarityResult{Stats: models.SimilarityStats{SampleSize: 3}}
	store := &fakeStore{}
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	svc := newService(provider, WithSimilarity(fakeSimilarity{res: similar}), WithStore(store), WithMetrics(rec))
	f, err := svc.Analyze(context.Background(), request())
	require.NoError(t, err)

	assert.Equal(t, "PL", f.League)
	assert.Equal(t, "Arsenal FC", f.HomeTeam)
	assert.Equal(t, "Chelsea FC", f.AwayTeam)
	assert.Equal(t, models.StatusPending, f.Status)
	assert.Same(t, similar, f.Similar)

	fv := f.Features
	assert.Equal(t, 6, fv.PositionDiff)
	assert.Equal(t, 3, fv.H2H.Matches)
	assert.Equal(t, 1, fv.H2H.HomeWins, "встречи считаются с точки зрения хозяев")
	assert.Equal(t, 1, fv.H2H.AwayWins)
	assert.Equal(t, 1, fv.H2H.Draws)
	assert.True(t, fv.IsDerby, "Arsenal vs Chelsea is a listed rivalry")
	assert.Equal(t, []int64{9001}, provider.h2hCalls)

	// Chelsea had no table form, rebuilt from "LW"
	assert.Equal(t, []int64{61}, provider.recentCalls)
	assert.NotEqual(t, 50.0, fv.AwayForm)

	require.Len(t, store.saved, 1)
	assert.Same(t, f, store.saved[0])

	assert.Equal(t, 1.0, counterTotal(t, reg, "footcast_forecasts_total"))
}

func TestAnalyzeDegradesGracefully(t *testing.T) {
	provider := &fakeProvider{
		standings:   plTable(),
		fixturesErr: errors.New("rate limited"),
	}
	svc := newService(provider, WithSimilarity(fakeSimilarity{err: errors.New("db down")}))

	f, err := svc.Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 0, f.Features.H2H.Matches)
	assert.Nil(t, f.Similar)
	assert.Empty(t, provider.h2hCalls)
	assert.Equal(t, 50.0, f.Features.AwayForm, "no recent matches means neutral form")
}

func TestAnalyzeHeadToHeadFailure(t *testing.T) {
	provider := &fakeProvider{
		standings: plTable(),
		fixtures:  []models.FinishedMatch{{ID: 1, HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC"}},
		h2hErr:    errors.New("timeout"),
	}
	f, err := newService(provider).Analyze(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, models.H2HTally{}, f.Features.H2H)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.MatchRequest)
		prov    *fakeProvider
		wantErr error
	}{
		{
			name:    "unknown league",
			mutate:  func(r *models.MatchRequest) { r.League = "Eredivisie" },
			prov:    &fakeProvider{standings: plTable()},
			wantErr: leagues.ErrUnknownLeague,
		},
		{
			name:    "unknown team",
			mutate:  func(r *models.MatchRequest) { r.AwayTeam = "Wrexham" },
			prov:    &fakeProvider{standings: plTable()},
			wantErr: ErrTeamNotFound,
		},
		{
			name:    "standings unavailable",
			mutate:  func(*models.MatchRequest) {},
			prov:    &fakeProvider{standErr: errRateLimited},
			wantErr: errRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := request()
			tt.mutate(&req)
			_, err := newService(tt.prov).Analyze(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("missing date", func(t *testing.T) {
		req := request()
		req.MatchDate = time.Time{}
		_, err := newService(&fakeProvider{standings: plTable()}).Analyze(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("same team twice", func(t *testing.T) {
		req := request()
		req.AwayTeam = "Arsenal FC"
		_, err := newService(&fakeProvider{standings: plTable()}).Analyze(context.Background(), req)
		assert.Error(t, err)
	})

	t.Run("store failure is surfaced", func(t *testing.T) {
		svc := newService(&fakeProvider{standings: plTable()}, WithStore(&fakeStore{err: errors.New("disk full")}))
		_, err := svc.Analyze(context.Background(), request())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})
}

var errRateLimited = errors.New("rate limited")

func TestFindTeam(t *testing.T) {
	teams := plTable().Teams

	tests := []struct {
		query string
		want  string
	}{
		{"Arsenal", "Arsenal FC"},
		{"liverpool fc", "Liverpool FC"},
		{"Man United", "Manchester United FC"},
		{"Manchester United", "Manchester United FC"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := findTeam(tt.query, teams)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name)
		})
	}

	_, err := findTeam("Wrexham", teams)
	assert.ErrorIs(t, err, ErrTeamNotFound)
}

func counterTotal(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
