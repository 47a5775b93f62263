package forecast

import (
	"math"

	"github.com/Alias1177/footcast/models"
)

// Thresholds bucket a prediction's strength. With Margin set the strength is |p - 0.5|,
// otherwise the probability itself.
type Thresholds struct {
	High   float64
	Medium float64
	Margin bool
}

// DefaultThresholds are the per-type heuristics
func DefaultThresholds() map[models.PredictionType]Thresholds {
	return map[models.PredictionType]Thresholds{
		models.PredictionResult:          {High: 0.60, Medium: 0.45},
		models.PredictionTotalGoals:      {High: 0.20, Medium: 0.10, Margin: true},
		models.PredictionBTTS:            {High: 0.20, Medium: 0.10, Margin: true},
		models.PredictionCorrectScore:    {High: 0.14, Medium: 0.10},
		models.PredictionFirstHalfResult: {High: 0.55, Medium: 0.42},
	}
}

// a result pick between sides this close on table and form is one level less certain
const (
	closePositionGap = 3
	closeFormGap     = 15
)

// MathConfidence buckets the model's probability for a pick of type t
func MathConfidence(t models.PredictionType, p float64, fv models.FeatureVector, th Thresholds) models.ConfidenceLevel {
	strength := p
	if th.Margin {
		strength = math.Abs(p - 0.5)
	}

	level := models.ConfidenceLow
	switch {
	case strength >= th.High:
		level = models.ConfidenceHigh
	case strength >= th.Medium:
		level = models.ConfidenceMedium
	}

	if t == models.PredictionResult && abs(fv.PositionDiff) < closePositionGap && math.Abs(fv.HomeForm-fv.AwayForm) < closeFormGap {
		level = downgrade(level)
	}
	return level
}

// ConfidenceValue maps a bucket onto [0,1] for fusion
func ConfidenceValue(level models.ConfidenceLevel) float64 {
	switch level {
	case models.ConfidenceHigh:
		return 0.85
	case models.ConfidenceMedium:
		return 0.6
	default:
		return 0.35
	}
}

// Bucket maps a fused value back onto a level: low below 0.5, high from 0.7
func Bucket(v float64) models.ConfidenceLevel {
	switch {
	case v >= 0.7:
		return models.ConfidenceHigh
	case v >= 0.5:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

// Fuse combines the mathematical bucket with an optional advisory opinion.
// Without an opinion the math level stands alone and the result is not enhanced.
func Fuse(mathLevel models.ConfidenceLevel, opinion *models.Opinion) (value float64, level models.ConfidenceLevel, enhanced bool) {
	mathValue := ConfidenceValue(mathLevel)
	if opinion == nil {
		return mathValue, mathLevel, false
	}
	ext := clamp(opinion.Confidence, 0, 1)
	value = 0.4*ext + 0.4*mathValue + 0.2*0.5
	return value, Bucket(value), true
}

func downgrade(level models.ConfidenceLevel) models.ConfidenceLevel {
	switch level {
	case models.ConfidenceHigh:
		return models.ConfidenceMedium
	default:
		return models.ConfidenceLow
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
