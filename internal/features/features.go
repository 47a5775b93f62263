// Package features turns standings rows into the numeric view the forecast model works from.
// Everything here is pure and deterministic.
package features

import (
	"github.com/Alias1177/footcast/internal/teamname"
	"github.com/Alias1177/footcast/models"
)

// DefaultLeagueAvgGoals is used when a league has no usable baseline, per team per game
const DefaultLeagueAvgGoals = 1.35

// FormPoints awards points per result in a form string
type FormPoints struct {
	Win  float64
	Draw float64
	Loss float64
}

// DefaultFormPoints gives five straight wins a score of 90
func DefaultFormPoints() FormPoints {
	return FormPoints{Win: 30, Draw: 10, Loss: 0}
}

// FormScore scores a most-recent-first W/D/L string on 0-100.
// The result at index i weighs (n-i)/n. An empty form is neutral (50).
func FormScore(form string, pts FormPoints) float64 {
	results := make([]byte, 0, len(form))
	for i := 0; i < len(form); i++ {
		switch form[i] {
		case 'W', 'D', 'L':
			results = append(results, form[i])
		}
	}
	n := len(results)
	if n == 0 {
		return 50
	}

	var score float64
	for i, r := range results {
		weight := float64(n-i) / float64(n)
		switch r {
		case 'W':
			score += pts.Win * weight
		case 'D':
			score += pts.Draw * weight
		case 'L':
			score += pts.Loss * weight
		}
	}
	return clamp(score, 0, 100)
}

// HomeAdvantagePolicy scores how much the fixture favours the home side
type HomeAdvantagePolicy func(home, away models.TeamSnapshot, league models.LeagueContext) float64

// DerbyPolicy flags local or historic rivalries
type DerbyPolicy func(league string, home, away models.TeamSnapshot) bool

// ImportancePolicy labels what is at stake
type ImportancePolicy func(home, away models.TeamSnapshot, league models.LeagueContext) models.Importance

// Extractor builds feature vectors with swappable policies
type Extractor struct {
	FormPoints    FormPoints
	HomeAdvantage HomeAdvantagePolicy
	Derby         DerbyPolicy
	Importance    ImportancePolicy
}

// NewExtractor returns an extractor with the default policies
func NewExtractor(rivals RivalryLookup) *Extractor {
	return &Extractor{
		FormPoints:    DefaultFormPoints(),
		HomeAdvantage: PositionGapAdvantage(3, 10, 60),
		Derby:         RivalryDerby(rivals),
		Importance:    SeasonPhaseImportance,
	}
}

// Extract computes the feature vector of home vs away
func (e *Extractor) Extract(home, away models.TeamSnapshot, h2h models.H2HTally, league models.LeagueContext) models.FeatureVector {
	avg := league.AvgGoalsPerGame
	if avg <= 0 {
		avg = DefaultLeagueAvgGoals
	}

	fv := models.FeatureVector{
		League:           league.Code,
		HomeTeam:         home.Name,
		AwayTeam:         away.Name,
		HomePosition:     home.Position,
		AwayPosition:     away.Position,
		PositionDiff:     away.Position - home.Position,
		HomeForm:         FormScore(home.Form, e.FormPoints),
		AwayForm:         FormScore(away.Form, e.FormPoints),
		HomeGoalsFor:     home.GoalsForPerGame(avg),
		HomeGoalsAgainst: home.GoalsAgainstPerGame(avg),
		AwayGoalsFor:     away.GoalsForPerGame(avg),
		AwayGoalsAgainst: away.GoalsAgainstPerGame(avg),
		LeagueAvgGoals:   avg,
		Importance:       models.ImportanceNormal,
		H2H:              h2h,
	}
	if e.HomeAdvantage != nil {
		fv.HomeAdvantage = e.HomeAdvantage(home, away, league)
	}
	if e.Derby != nil {
		fv.IsDerby = e.Derby(league.Code, home, away)
	}
	if e.Importance != nil {
		fv.Importance = e.Importance(home, away, league)
	}
	return fv
}

// LeagueAverageGoals returns goals per team per game across a table, or fallback for an empty table
func LeagueAverageGoals(teams []models.TeamSnapshot, fallback float64) float64 {
	var goals, games int
	for _, t := range teams {
		goals += t.GoalsFor
		games += t.PlayedGames
	}
	if games == 0 {
		return fallback
	}
	return float64(goals) / float64(games)
}

// TallyHeadToHead counts finished meetings from home's point of view, whichever side it played
func TallyHeadToHead(home string, matches []models.FinishedMatch) models.H2HTally {
	var t models.H2HTally
	for _, m := range matches {
		if m.Score == nil {
			continue
		}
		hg, ag := m.Score.Home, m.Score.Away
		if !teamname.Match(home, m.HomeTeam) {
			hg, ag = ag, hg
		}
		t.Matches++
		t.HomeGoals += hg
		t.AwayGoals += ag
		switch models.OutcomeOf(hg, ag) {
		case models.PickHome:
			t.HomeWins++
		case models.PickAway:
			t.AwayWins++
		default:
			t.Draws++
		}
	}
	return t
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
