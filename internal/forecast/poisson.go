package forecast

import (
	"math"
	"sort"

	"github.com/Alias1177/footcast/models"
)

// expected-goal parameters are kept inside this range
const (
	minExpectedGoals = 0.05
	maxExpectedGoals = 6.0
)

// PoissonPMF returns P(X = k) for X ~ Poisson(lambda)
func PoissonPMF(k int, lambda float64) float64 {
	if k < 0 || lambda <= 0 {
		if k == 0 && lambda <= 0 {
			return 1
		}
		return 0
	}
	logP := float64(k)*math.Log(lambda) - lambda
	for i := 2; i <= k; i++ {
		logP -= math.Log(float64(i))
	}
	return math.Exp(logP)
}

// ExpectedGoals derives both sides' expected goals from attack and defence strength
// relative to the league average.
func ExpectedGoals(fv models.FeatureVector, fallbackAvg float64) (home, away float64) {
	avg := fv.LeagueAvgGoals
	if avg <= 0 {
		avg = fallbackAvg
	}

	homeAttack := fv.HomeGoalsFor / avg
	homeDefense := fv.HomeGoalsAgainst / avg
	awayAttack := fv.AwayGoalsFor / avg
	awayDefense := fv.AwayGoalsAgainst / avg

	home = clamp(homeAttack*awayDefense*avg, minExpectedGoals, maxExpectedGoals)
	away = clamp(awayAttack*homeDefense*avg, minExpectedGoals, maxExpectedGoals)
	return home, away
}

// ScoreTable is P(home = i, away = j) over 0..maxGoals for each side.
// Mass beyond the grid is dropped, not redistributed.
type ScoreTable [][]float64

// NewScoreTable builds the table from two independent Poisson distributions
func NewScoreTable(homeLambda, awayLambda float64, maxGoals int) ScoreTable {
	homeP := make([]float64, maxGoals+1)
	awayP := make([]float64, maxGoals+1)
	for k := 0; k <= maxGoals; k++ {
		homeP[k] = PoissonPMF(k, homeLambda)
		awayP[k] = PoissonPMF(k, awayLambda)
	}

	table := make(ScoreTable, maxGoals+1)
	for i := range table {
		table[i] = make([]float64, maxGoals+1)
		for j := range table[i] {
			table[i][j] = homeP[i] * awayP[j]
		}
	}
	return table
}

// Outcomes returns P(home win), P(draw), P(away win) over the grid
func (t ScoreTable) Outcomes() (home, draw, away float64) {
	for i, row := range t {
		for j, p := range row {
			switch {
			case i > j:
				home += p
			case i < j:
				away += p
			default:
				draw += p
			}
		}
	}
	return home, draw, away
}

// OverUnder returns the probability of more and of fewer total goals than line
func (t ScoreTable) OverUnder(line float64) models.GoalLine {
	gl := models.GoalLine{Line: line}
	for i, row := range t {
		for j, p := range row {
			total := float64(i + j)
			if total > line {
				gl.Over += p
			} else if total < line {
				gl.Under += p
			}
		}
	}
	return gl
}

// BTTS sums the grid cells where both sides score, like Outcomes and OverUnder
func (t ScoreTable) BTTS() float64 {
	var p float64
	for i := 1; i < len(t); i++ {
		for j := 1; j < len(t[i]); j++ {
			p += t[i][j]
		}
	}
	return p
}

// MostLikely returns the n most probable scorelines. Ties go to fewer total goals, then fewer home goals.
func (t ScoreTable) MostLikely(n int) []models.Scoreline {
	var all []models.Scoreline
	for i, row := range t {
		for j, p := range row {
			all = append(all, models.Scoreline{Home: i, Away: j, Probability: p})
		}
	}
	sort.SliceStable(all, func(a, b int) bool {
		x, y := all[a], all[b]
		if x.Probability != y.Probability {
			return x.Probability > y.Probability
		}
		if x.Home+x.Away != y.Home+y.Away {
			return x.Home+x.Away < y.Home+y.Away
		}
		return x.Home < y.Home
	})
	if n > 0 && n < len(all) {
		all = all[:n]
	}
	return all
}

// PowerIndices scores attack and defence against the league average, 100 being average.
// A side that concedes nothing is capped at 200 defence.
func PowerIndices(fv models.FeatureVector, fallbackAvg float64) models.PowerIndices {
	avg := fv.LeagueAvgGoals
	if avg <= 0 {
		avg = fallbackAvg
	}
	return models.PowerIndices{
		Home: powerIndex(fv.HomeGoalsFor, fv.HomeGoalsAgainst, avg),
		Away: powerIndex(fv.AwayGoalsFor, fv.AwayGoalsAgainst, avg),
	}
}

func powerIndex(goalsFor, goalsAgainst, avg float64) models.PowerIndex {
	attack := 100 * goalsFor / avg
	defense := 200.0
	if goalsAgainst > 0 {
		defense = math.Min(100*avg/goalsAgainst, 200)
	}
	return models.PowerIndex{
		Attack:  attack,
		Defense: defense,
		Overall: (attack + defense) / 2,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
