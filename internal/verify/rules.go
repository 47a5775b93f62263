// Package verify reconciles pending forecasts against finished matches.
package verify

import (
	"strconv"
	"strings"

	"github.com/Alias1177/footcast/models"
)

// Evaluate reports whether p came true for the final score s.
// It returns nil when the prediction cannot be judged from s.
func Evaluate(p models.Prediction, s models.Score) *bool {
	switch p.Type {
	case models.PredictionResult:
		return outcomeRule(p.Pick, s.Home, s.Away)

	case models.PredictionFirstHalfResult:
		if !s.HasHalfTime() {
			return nil
		}
		return outcomeRule(p.Pick, *s.HalfTimeHome, *s.HalfTimeAway)

	case models.PredictionTotalGoals:
		side, line, ok := parseTotals(p.Pick)
		if !ok {
			return nil
		}
		goals := float64(s.Home + s.Away)
		if side == models.PickOver {
			return verdict(goals > line)
		}
		return verdict(goals < line)

	case models.PredictionBTTS:
		both := s.Home > 0 && s.Away > 0
		switch p.Pick {
		case models.PickYes:
			return verdict(both)
		case models.PickNo:
			return verdict(!both)
		}
		return nil

	case models.PredictionCorrectScore:
		home, away, ok := parseScore(p.Pick)
		if !ok {
			return nil
		}
		return verdict(home == s.Home && away == s.Away)
	}
	return nil
}

func outcomeRule(pick string, home, away int) *bool {
	switch pick {
	case models.PickHome, models.PickDraw, models.PickAway:
		return verdict(models.OutcomeOf(home, away) == pick)
	}
	return nil
}

// parseTotals splits picks such as over_2.5
func parseTotals(pick string) (string, float64, bool) {
	side, raw, found := strings.Cut(pick, "_")
	if !found || (side != models.PickOver && side != models.PickUnder) {
		return "", 0, false
	}
	line, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return "", 0, false
	}
	return side, line, true
}

// parseScore reads "2-1"
func parseScore(pick string) (int, int, bool) {
	h, a, found := strings.Cut(strings.TrimSpace(pick), "-")
	if !found {
		return 0, 0, false
	}
	home, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || home < 0 {
		return 0, 0, false
	}
	away, err := strconv.Atoi(strings.TrimSpace(a))
	if err != nil || away < 0 {
		return 0, 0, false
	}
	return home, away, true
}

func verdict(b bool) *bool { return &b }
