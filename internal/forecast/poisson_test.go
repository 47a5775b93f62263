package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/footcast/models"
)

func scenario() models.FeatureVector {
	return models.FeatureVector{
		League:           "PL",
		HomeTeam:         "Arsenal FC",
		AwayTeam:         "Chelsea FC",
		HomeGoalsFor:     2.0,
		HomeGoalsAgainst: 1.0,
		AwayGoalsFor:     1.0,
		AwayGoalsAgainst: 1.5,
		LeagueAvgGoals:   1.3,
		PositionDiff:     8,
		HomeForm:         72,
		AwayForm:         40,
	}
}

func TestPoissonPMFSumsToOne(t *testing.T) {
	var sum float64
	for k := 0; k <= 30; k++ {
		sum += PoissonPMF(k, 1.7)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Equal(t, 1.0, PoissonPMF(0, 0))
	assert.Equal(t, 0.0, PoissonPMF(2, 0))
	assert.Equal(t, 0.0, PoissonPMF(-1, 1))
}

func TestExpectedGoalsScenario(t *testing.T) {
	home, away := ExpectedGoals(scenario(), 1.35)
	assert.InDelta(t, 2.0*1.5/1.3, home, 1e-9)
	assert.InDelta(t, 1.0*1.0/1.3, away, 1e-9)
	assert.Greater(t, home, away)

	table := NewScoreTable(home, away, 5)
	homeWin, _, awayWin := table.Outcomes()
	assert.Greater(t, homeWin, awayWin)
	assert.Greater(t, table.OverUnder(1.5).Over, 0.5)
}

func TestExpectedGoalsClamped(t *testing.T) {
	fv := models.FeatureVector{HomeGoalsFor: 10, AwayGoalsAgainst: 10, LeagueAvgGoals: 1}
	home, away := ExpectedGoals(fv, 1.35)
	assert.Equal(t, maxExpectedGoals, home)
	assert.Equal(t, minExpectedGoals, away)
}

func TestScoreTableIsTruncated(t *testing.T) {
	table := NewScoreTable(2.5, 2.0, 5)
	require.Len(t, table, 6)

	var total float64
	for _, row := range table {
		require.Len(t, row, 6)
		for _, p := range row {
			total += p
		}
	}
	assert.Less(t, total, 1.0)

	h, d, a := table.Outcomes()
	assert.InDelta(t, total, h+d+a, 1e-12)

	gl := table.OverUnder(2.5)
	assert.InDelta(t, total, gl.Over+gl.Under, 1e-12)
}

func TestBTTSMatchesDirectSum(t *testing.T) {
	table := NewScoreTable(1.4, 1.1, 5)
	var direct float64
	for i := 1; i < len(table); i++ {
		for j := 1; j < len(table[i]); j++ {
			direct += table[i][j]
		}
	}
	assert.InDelta(t, direct, table.BTTS(), 1e-12)

	// truncated mass is excluded, so BTTS sits below the closed form
	closed := (1 - math.Exp(-1.4)) * (1 - math.Exp(-1.1))
	assert.Less(t, table.BTTS(), closed)
	assert.InDelta(t, closed, table.BTTS(), 0.01)
}

func TestMostLikelyTieBreaks(t *testing.T) {
	// with both rates at 1, P(0) == P(1), so 0-0, 0-1, 1-0 and 1-1 tie
	got := NewScoreTable(1, 1, 5).MostLikely(4)
	want := []string{"0-0", "0-1", "1-0", "1-1"}
	require.Len(t, got, 4)
	for i, s := range got {
		assert.Equal(t, want[i], s.String())
	}
}

func TestPowerIndices(t *testing.T) {
	fv := models.FeatureVector{
		HomeGoalsFor: 1.3, HomeGoalsAgainst: 1.3,
		AwayGoalsFor: 2.6, AwayGoalsAgainst: 0,
		LeagueAvgGoals: 1.3,
	}
	pi := PowerIndices(fv, 1.35)
	assert.InDelta(t, 100, pi.Home.Attack, 1e-9)
	assert.InDelta(t, 100, pi.Home.Defense, 1e-9)
	assert.InDelta(t, 100, pi.Home.Overall, 1e-9)
	assert.InDelta(t, 200, pi.Away.Attack, 1e-9)
	assert.Equal(t, 200.0, pi.Away.Defense)
	assert.InDelta(t, 200, pi.Away.Overall, 1e-9)
	assert.False(t, math.IsNaN(pi.Away.Overall))
}
