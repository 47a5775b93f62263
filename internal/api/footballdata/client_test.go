package footballdata

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/footcast/internal/gateway"
	"github.com/Alias1177/footcast/models"
)

type cannedRequester map[gateway.Action]string

func (c cannedRequester) Request(_ context.Context, req gateway.Request) ([]byte, error) {
	body, ok := c[req.Action]
	if !ok {
		return nil, fmt.Errorf("no canned response for %s", req.Action)
	}
	return []byte(body), nil
}

const standingsJSON = `{
  "competition": {"code": "PL"},
  "season": {"currentMatchday": 27},
  "standings": [
    {"type": "TOTAL", "table": [
      {"position": 1, "team": {"id": 64, "name": "Liverpool FC", "shortName": "Liverpool"},
       "playedGames": 27, "form": "W,W,D,L,W", "points": 64, "goalsFor": 64, "goalsAgainst": 25},
      {"position": 2, "team": {"id": 57, "name": "Arsenal FC", "shortName": "Arsenal"},
       "playedGames": 27, "form": null, "points": 54, "goalsFor": 50, "goalsAgainst": 22}
    ]},
    {"type": "HOME", "table": [
      {"position": 1, "team": {"id": 64, "name": "Liverpool FC"}, "playedGames": 14}
    ]}
  ]
}`

const matchesJSON = `{
  "matches": [
    {"id": 1, "utcDate": "2025-03-01T15:00:00Z", "status": "FINISHED", "matchday": 27,
     "homeTeam": {"id": 57, "name": "Arsenal FC"}, "awayTeam": {"id": 61, "name": "Chelsea FC"},
     "score": {"fullTime": {"home": 3, "away": 1}, "halfTime": {"home": 1, "away": 0}}},
    {"id": 2, "utcDate": "2025-03-02T15:00:00Z", "status": "FINISHED", "matchday": 27,
     "homeTeam": {"id": 65, "name": "Manchester City FC"}, "awayTeam": {"id": 66, "name": "Manchester United FC"},
     "score": {"fullTime": {"home": 0, "away": 0}, "halfTime": {"home": null, "away": null}}},
    {"id": 3, "utcDate": "2025-03-09T15:00:00Z", "status": "TIMED", "matchday": 28,
     "homeTeam": {"id": 61, "name": "Chelsea FC"}, "awayTeam": {"id": 57, "name": "Arsenal FC"},
     "score": {"fullTime": {"home": null, "away": null}, "halfTime": {"home": null, "away": null}}}
  ]
}`

func TestClientStandings(t *testing.T) {
	c := NewClient(cannedRequester{gateway.ActionStandings: standingsJSON})

	st, err := c.Standings(context.Background(), "PL")
	require.NoError(t, err)
	assert.Equal(t, 27, st.Matchday)
	require.Len(t, st.Teams, 2, "only the overall table is kept")

	liv := st.Teams[0]
	assert.Equal(t, "Liverpool FC", liv.Name)
	assert.Equal(t, "WWDLW", liv.Form)
	assert.InDelta(t, 64.0/27, liv.GoalsForPerGame(0), 1e-9)
	assert.Equal(t, "", st.Teams[1].Form)
}

func TestClientFinishedMatches(t *testing.T) {
	c := NewClient(cannedRequester{gateway.ActionMatches: matchesJSON})

	from := time.Date(2025, 2, 15, 0, 0, 0, 0, time.UTC)
	ms, err := c.FinishedMatches(context.Background(), "PL", from, from.AddDate(0, 0, 14))
	require.NoError(t, err)
	require.Len(t, ms, 3)

	require.NotNil(t, ms[0].Score)
	assert.Equal(t, "3-1", ms[0].Score.String())
	assert.True(t, ms[0].Score.HasHalfTime())

	require.NotNil(t, ms[1].Score)
	assert.False(t, ms[1].Score.HasHalfTime())

	assert.Nil(t, ms[2].Score)
}

func TestClientDecodeErrors(t *testing.T) {
	c := NewClient(cannedRequester{gateway.ActionStandings: `<html>`})
	_, err := c.Standings(context.Background(), "PL")
	assert.Error(t, err)
}

func TestFormFromMatches(t *testing.T) {
	one, three := 1, 3
	ms := []models.FinishedMatch{
		{HomeTeam: "Arsenal FC", AwayTeam: "Chelsea FC", Score: &models.Score{Home: three, Away: one}},
		{HomeTeam: "Liverpool FC", AwayTeam: "Arsenal FC", Score: &models.Score{Home: 2, Away: 0}},
		{HomeTeam: "Arsenal FC", AwayTeam: "Everton FC", Score: &models.Score{Home: 1, Away: 1}},
		{HomeTeam: "Arsenal FC", AwayTeam: "Fulham FC"},
		{HomeTeam: "Brentford FC", AwayTeam: "Arsenal FC", Score: &models.Score{Home: 0, Away: 2}},
	}

	assert.Equal(t, "WLDW", FormFromMatches("Arsenal FC", ms, 0))
	assert.Equal(t, "WL", FormFromMatches("Arsenal FC", ms, 2))
}

func TestNormalizeForm(t *testing.T) {
	tests := map[string]string{
		"W,D,L":   "WDL",
		"w,d,l,x": "WDL",
		"":        "",
		"WWW":     "WWW",
	}
	for in, want := range tests {
		if got := NormalizeForm(in); got != want {
			t.Errorf("NormalizeForm(%q) = %q, want %q", in, got, want)
		}
	}
}
