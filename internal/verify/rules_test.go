package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/footcast/models"
)

func ht(home, away int) models.Score {
	return models.Score{Home: home + 1, Away: away, HalfTimeHome: &home, HalfTimeAway: &away}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name  string
		typ   models.PredictionType
		pick  string
		score models.Score
		want  *bool
	}{
		{"home win", models.PredictionResult, models.PickHome, models.Score{Home: 2, Away: 1}, verdict(true)},
		{"home pick on draw", models.PredictionResult, models.PickHome, models.Score{Home: 1, Away: 1}, verdict(false)},
		{"goalless draw", models.PredictionResult, models.PickDraw, models.Score{Home: 0, Away: 0}, verdict(true)},
		{"away win", models.PredictionResult, models.PickAway, models.Score{Home: 0, Away: 3}, verdict(true)},
		{"away pick on home win", models.PredictionResult, models.PickAway, models.Score{Home: 2, Away: 0}, verdict(false)},
		{"unknown result pick", models.PredictionResult, "x", models.Score{Home: 2, Away: 0}, nil},

		{"over 2.5 with three goals", models.PredictionTotalGoals, "over_2.5", models.Score{Home: 2, Away: 1}, verdict(true)},
		{"over 2.5 with two goals", models.PredictionTotalGoals, "over_2.5", models.Score{Home: 1, Away: 1}, verdict(false)},
		{"under 2.5 with two goals", models.PredictionTotalGoals, "under_2.5", models.Score{Home: 2, Away: 0}, verdict(true)},
		{"over 3 on exactly three is not over", models.PredictionTotalGoals, "over_3", models.Score{Home: 2, Away: 1}, verdict(false)},
		{"under 3 on exactly three is not under", models.PredictionTotalGoals, "under_3", models.Score{Home: 2, Away: 1}, verdict(false)},
		{"malformed totals pick", models.PredictionTotalGoals, "over", models.Score{Home: 2, Away: 1}, nil},

		{"btts yes", models.PredictionBTTS, models.PickYes, models.Score{Home: 1, Away: 1}, verdict(true)},
		{"btts yes with clean sheet", models.PredictionBTTS, models.PickYes, models.Score{Home: 3, Away: 0}, verdict(false)},
		{"btts no with clean sheet", models.PredictionBTTS, models.PickNo, models.Score{Home: 0, Away: 0}, verdict(true)},
		{"btts unknown pick", models.PredictionBTTS, "maybe", models.Score{Home: 0, Away: 0}, nil},

		{"exact score", models.PredictionCorrectScore, "2-1", models.Score{Home: 2, Away: 1}, verdict(true)},
		{"correct score reversed", models.PredictionCorrectScore, "2-1", models.Score{Home: 1, Away: 2}, verdict(false)},
		{"correct score malformed", models.PredictionCorrectScore, "two-one", models.Score{Home: 2, Away: 1}, nil},

		{"first half without half-time score", models.PredictionFirstHalfResult, models.PickHome, models.Score{Home: 2, Away: 1}, nil},
		{"first half home lead", models.PredictionFirstHalfResult, models.PickHome, ht(1, 0), verdict(true)},
		{"first half level", models.PredictionFirstHalfResult, models.PickHome, ht(0, 0), verdict(false)},
		{"first half draw", models.PredictionFirstHalfResult, models.PickDraw, ht(1, 1), verdict(true)},

		{"unknown type", models.PredictionType("corners"), "over_9.5", models.Score{Home: 2, Away: 1}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(models.Prediction{Type: tt.typ, Pick: tt.pick}, tt.score)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestParseTotals(t *testing.T) {
	side, line, ok := parseTotals("under_1.5")
	require.True(t, ok)
	assert.Equal(t, models.PickUnder, side)
	assert.Equal(t, 1.5, line)

	_, _, ok = parseTotals("sideways_1.5")
	assert.False(t, ok)
	_, _, ok = parseTotals("over_abc")
	assert.False(t, ok)
}
