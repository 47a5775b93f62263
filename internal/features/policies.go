package features

import "github.com/Alias1177/footcast/models"

// RivalryLookup answers whether two clubs are rivals in a competition
type RivalryLookup interface {
	IsRivalry(code, home, away string) bool
}

// PositionGapAdvantage scores perPlace points for every table place the home side is above
// the away side, plus a flat base, clamped to ±limit
func PositionGapAdvantage(perPlace, base, limit float64) HomeAdvantagePolicy {
	return func(home, away models.TeamSnapshot, _ models.LeagueContext) float64 {
		if home.Position <= 0 || away.Position <= 0 {
			return clamp(base, -limit, limit)
		}
		gap := float64(away.Position - home.Position)
		return clamp(gap*perPlace+base, -limit, limit)
	}
}

// RivalryDerby flags pairs listed as rivals
func RivalryDerby(rivals RivalryLookup) DerbyPolicy {
	return func(league string, home, away models.TeamSnapshot) bool {
		if rivals == nil {
			return false
		}
		return rivals.IsRivalry(league, home.Name, away.Name)
	}
}

// SeasonPhaseImportance labels fixtures by how far the season has gone and where the teams stand.
// Early fixtures are low; in the run-in a top-3 side makes it a title race and a bottom-3 side a
// relegation fight; close top-half meetings are high.
func SeasonPhaseImportance(home, away models.TeamSnapshot, league models.LeagueContext) models.Importance {
	if league.TotalMatchdays <= 0 {
		return models.ImportanceNormal
	}
	phase := float64(league.Matchday) / float64(league.TotalMatchdays)
	if phase < 0.15 {
		return models.ImportanceLow
	}

	teams := league.Teams
	if phase >= 0.75 {
		if home.Position > 0 && home.Position <= 3 || away.Position > 0 && away.Position <= 3 {
			return models.ImportanceTitleRace
		}
		if teams > 0 && (home.Position > teams-3 || away.Position > teams-3) {
			return models.ImportanceRelegation
		}
	}

	if teams > 0 && home.Position > 0 && away.Position > 0 {
		gap := home.Position - away.Position
		if gap < 0 {
			gap = -gap
		}
		if gap <= 3 && home.Position <= teams/2 && away.Position <= teams/2 {
			return models.ImportanceHigh
		}
	}
	return models.ImportanceNormal
}
