package models

import (
	"fmt"
	"time"
)

// TeamSnapshot is one team's standings row as fetched from the provider
type TeamSnapshot struct {
	TeamID       int64     `json:"team_id"`
	Name         string    `json:"name"`
	ShortName    string    `json:"short_name,omitempty"`
	Position     int       `json:"position"`
	Points       int       `json:"points"`
	GoalsFor     int       `json:"goals_for"`
	GoalsAgainst int       `json:"goals_against"`
	PlayedGames  int       `json:"played_games"`
	Form         string    `json:"form"` // W/D/L, most recent first
	FetchedAt    time.Time `json:"fetched_at"`
}

// GoalsForPerGame returns scored goals per game, or fallback when no games were played
func (t TeamSnapshot) GoalsForPerGame(fallback float64) float64 {
	if t.PlayedGames <= 0 {
		return fallback
	}
	return float64(t.GoalsFor) / float64(t.PlayedGames)
}

// GoalsAgainstPerGame returns conceded goals per game, or fallback when no games were played
func (t TeamSnapshot) GoalsAgainstPerGame(fallback float64) float64 {
	if t.PlayedGames <= 0 {
		return fallback
	}
	return float64(t.GoalsAgainst) / float64(t.PlayedGames)
}

// H2HTally aggregates previous meetings from the home team's point of view
type H2HTally struct {
	Matches   int `json:"matches"`
	HomeWins  int `json:"home_wins"`
	Draws     int `json:"draws"`
	AwayWins  int `json:"away_wins"`
	HomeGoals int `json:"home_goals"`
	AwayGoals int `json:"away_goals"`
}

// LeagueContext carries league-wide baselines needed by the model
type LeagueContext struct {
	Code            string  `json:"code"`
	Teams           int     `json:"teams"`
	AvgGoalsPerGame float64 `json:"avg_goals_per_game"` // per team, per game
	Matchday        int     `json:"matchday"`
	TotalMatchdays  int     `json:"total_matchdays"`
}

// Importance is a categorical match-importance label
type Importance string

const (
	ImportanceLow        Importance = "low"
	ImportanceNormal     Importance = "normal"
	ImportanceHigh       Importance = "high"
	ImportanceTitleRace  Importance = "title_race"
	ImportanceRelegation Importance = "relegation"
)

// FeatureVector is the numeric view of a fixture the model works from
type FeatureVector struct {
	League           string     `json:"league"`
	HomeTeam         string     `json:"home_team"`
	AwayTeam         string     `json:"away_team"`
	HomePosition     int        `json:"home_position"`
	AwayPosition     int        `json:"away_position"`
	PositionDiff     int        `json:"position_diff"` // away position - home position
	HomeForm         float64    `json:"home_form"`     // 0-100
	AwayForm         float64    `json:"away_form"`     // 0-100
	HomeGoalsFor     float64    `json:"home_goals_for"`
	HomeGoalsAgainst float64    `json:"home_goals_against"`
	AwayGoalsFor     float64    `json:"away_goals_for"`
	AwayGoalsAgainst float64    `json:"away_goals_against"`
	LeagueAvgGoals   float64    `json:"league_avg_goals"`
	HomeAdvantage    float64    `json:"home_advantage"`
	IsDerby          bool       `json:"is_derby"`
	Importance       Importance `json:"importance"`
	H2H              H2HTally   `json:"h2h"`
}

// PredictionType enumerates the sub-predictions of a forecast
type PredictionType string

const (
	PredictionResult          PredictionType = "result"
	PredictionTotalGoals      PredictionType = "total_goals"
	PredictionBTTS            PredictionType = "btts"
	PredictionCorrectScore    PredictionType = "correct_score"
	PredictionFirstHalfResult PredictionType = "first_half_result"
)

// PredictionTypes lists every sub-prediction type in display order
var PredictionTypes = []PredictionType{
	PredictionResult,
	PredictionTotalGoals,
	PredictionBTTS,
	PredictionCorrectScore,
	PredictionFirstHalfResult,
}

// Valid reports whether t is a known prediction type
func (t PredictionType) Valid() bool {
	for _, known := range PredictionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Picks used across prediction types
const (
	PickHome  = "home"
	PickDraw  = "draw"
	PickAway  = "away"
	PickYes   = "yes"
	PickNo    = "no"
	PickOver  = "over"
	PickUnder = "under"
)

// ConfidenceLevel is a bucketed confidence
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// Prediction is one typed sub-prediction of a forecast
type Prediction struct {
	ID                 string          `json:"id"`
	Type               PredictionType  `json:"type"`
	Pick               string          `json:"pick"`        // e.g. home, over_2.5, yes, 2-1
	Probability        float64         `json:"probability"` // raw model probability of the pick, 0-1
	MathConfidence     ConfidenceLevel `json:"math_confidence"`
	ExternalLabel      string          `json:"external_label,omitempty"`
	ExternalConfidence *float64        `json:"external_confidence,omitempty"`
	HybridConfidence   float64         `json:"hybrid_confidence"`
	HybridLevel        ConfidenceLevel `json:"hybrid_level"`
	AIEnhanced         bool            `json:"ai_enhanced"`
	Reasoning          string          `json:"reasoning,omitempty"`
	Correct            *bool           `json:"correct,omitempty"` // nil while pending or unverifiable
}

// Forecast statuses
const (
	StatusPending  = "pending"
	StatusVerified = "verified"
)

// Score is a final score with an optional half-time score
type Score struct {
	Home         int  `json:"home"`
	Away         int  `json:"away"`
	HalfTimeHome *int `json:"half_time_home,omitempty"`
	HalfTimeAway *int `json:"half_time_away,omitempty"`
}

// HasHalfTime reports whether the half-time score is known
func (s Score) HasHalfTime() bool {
	return s.HalfTimeHome != nil && s.HalfTimeAway != nil
}

// String formats the full-time score as "H-A"
func (s Score) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// Outcome returns home, draw or away for the full-time score
func (s Score) Outcome() string {
	return OutcomeOf(s.Home, s.Away)
}

// OutcomeOf maps a scoreline to home, draw or away
func OutcomeOf(home, away int) string {
	switch {
	case home > away:
		return PickHome
	case home < away:
		return PickAway
	default:
		return PickDraw
	}
}

// GoalLine is an over/under line with both sides' probabilities
type GoalLine struct {
	Line  float64 `json:"line"`
	Over  float64 `json:"over"`
	Under float64 `json:"under"`
}

// Scoreline is a single cell of the score table
type Scoreline struct {
	Home        int     `json:"home"`
	Away        int     `json:"away"`
	Probability float64 `json:"probability"`
}

// String formats the scoreline as "H-A"
func (s Scoreline) String() string {
	return fmt.Sprintf("%d-%d", s.Home, s.Away)
}

// PowerIndex is attack/defense/overall strength with 100 = league average
type PowerIndex struct {
	Attack  float64 `json:"attack"`
	Defense float64 `json:"defense"`
	Overall float64 `json:"overall"`
}

// PowerIndices holds both teams' power indices
type PowerIndices struct {
	Home PowerIndex `json:"home"`
	Away PowerIndex `json:"away"`
}

// ModelOutput is the raw output of the Poisson model
type ModelOutput struct {
	HomeExpectedGoals float64      `json:"home_expected_goals"`
	AwayExpectedGoals float64      `json:"away_expected_goals"`
	HomeWin           float64      `json:"home_win"`
	Draw              float64      `json:"draw"`
	AwayWin           float64      `json:"away_win"`
	BTTS              float64      `json:"btts"`
	HalfTimeHomeWin   float64      `json:"half_time_home_win"`
	HalfTimeDraw      float64      `json:"half_time_draw"`
	HalfTimeAwayWin   float64      `json:"half_time_away_win"`
	OverUnder         []GoalLine   `json:"over_under"`
	TopScores         []Scoreline  `json:"top_scores"`
	Power             PowerIndices `json:"power"`
}

// Forecast is a persisted prediction for one match
type Forecast struct {
	ID          string            `json:"id"`
	League      string            `json:"league"`
	HomeTeam    string            `json:"home_team"`
	AwayTeam    string            `json:"away_team"`
	MatchDate   time.Time         `json:"match_date"`
	Status      string            `json:"status"`
	Predictions []Prediction      `json:"predictions"`
	Features    FeatureVector     `json:"features"`
	Model       ModelOutput       `json:"model"`
	Similar     *SimilarityResult `json:"similar,omitempty"`
	AIEnhanced  bool              `json:"ai_enhanced"`
	CreatedAt   time.Time         `json:"created_at"`
	VerifiedAt  *time.Time        `json:"verified_at,omitempty"`
	Score       *Score            `json:"score,omitempty"`
	Result      string            `json:"result,omitempty"`
}

// Prediction returns the sub-prediction of type t, if any
func (f *Forecast) Prediction(t PredictionType) (*Prediction, bool) {
	for i := range f.Predictions {
		if f.Predictions[i].Type == t {
			return &f.Predictions[i], true
		}
	}
	return nil, false
}

// MatchRequest asks for a forecast of an upcoming fixture
type MatchRequest struct {
	League    string    `json:"league"`
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	MatchDate time.Time `json:"match_date"`
}

// Validate checks the request has everything the analyzer needs
func (r MatchRequest) Validate() error {
	if r.League == "" {
		return fmt.Errorf("league is required")
	}
	if r.HomeTeam == "" || r.AwayTeam == "" {
		return fmt.Errorf("both teams are required")
	}
	if r.MatchDate.IsZero() {
		return fmt.Errorf("match date is required")
	}
	return nil
}

// FinishedMatch is a provider match with its final score, if any
type FinishedMatch struct {
	ID       int64     `json:"id"`
	UTCDate  time.Time `json:"utc_date"`
	Status   string    `json:"status"`
	Matchday int       `json:"matchday"`
	HomeTeam string    `json:"home_team"`
	AwayTeam string    `json:"away_team"`
	Score    *Score    `json:"score,omitempty"`
}

// Opinion is the advisory model's view of one prediction type
type Opinion struct {
	Type       PredictionType `json:"type"`
	Label      string         `json:"label"`
	Confidence float64        `json:"confidence"` // 0-1
	Reasoning  string         `json:"reasoning"`
}

// Advice is the full set of advisory opinions for a fixture
type Advice struct {
	Provider string                     `json:"provider"`
	Opinions map[PredictionType]Opinion `json:"opinions"`
}

// Opinion returns the opinion for t, or nil when the advisor gave none
func (a *Advice) Opinion(t PredictionType) *Opinion {
	if a == nil {
		return nil
	}
	op, ok := a.Opinions[t]
	if !ok {
		return nil
	}
	return &op
}

// AccuracyStat is a running per-type accuracy counter
type AccuracyStat struct {
	Type    PredictionType `json:"type"`
	Total   int            `json:"total"`
	Correct int            `json:"correct"`
}

// Rate returns the share of correct predictions, 0 when nothing was verified yet
func (a AccuracyStat) Rate() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.Correct) / float64(a.Total)
}

// HistoricalFeatures is a stored feature vector; nil fields were not recorded
type HistoricalFeatures struct {
	PositionDiff     *float64    `json:"position_diff,omitempty"`
	HomeForm         *float64    `json:"home_form,omitempty"`
	AwayForm         *float64    `json:"away_form,omitempty"`
	HomeGoalsFor     *float64    `json:"home_goals_for,omitempty"`
	HomeGoalsAgainst *float64    `json:"home_goals_against,omitempty"`
	AwayGoalsFor     *float64    `json:"away_goals_for,omitempty"`
	AwayGoalsAgainst *float64    `json:"away_goals_against,omitempty"`
	HomeAdvantage    *float64    `json:"home_advantage,omitempty"`
	IsDerby          *bool       `json:"is_derby,omitempty"`
	Importance       *Importance `json:"importance,omitempty"`
}

// HistoricalFeaturesOf snapshots every field of fv
func HistoricalFeaturesOf(fv FeatureVector) HistoricalFeatures {
	f := func(v float64) *float64 { return &v }
	derby := fv.IsDerby
	imp := fv.Importance
	return HistoricalFeatures{
		PositionDiff:     f(float64(fv.PositionDiff)),
		HomeForm:         f(fv.HomeForm),
		AwayForm:         f(fv.AwayForm),
		HomeGoalsFor:     f(fv.HomeGoalsFor),
		HomeGoalsAgainst: f(fv.HomeGoalsAgainst),
		AwayGoalsFor:     f(fv.AwayGoalsFor),
		AwayGoalsAgainst: f(fv.AwayGoalsAgainst),
		HomeAdvantage:    f(fv.HomeAdvantage),
		IsDerby:          &derby,
		Importance:       &imp,
	}
}

// HistoricalMatchRecord is a finished match kept for similarity search
type HistoricalMatchRecord struct {
	ID        string             `json:"id"`
	League    string             `json:"league"`
	HomeTeam  string             `json:"home_team"`
	AwayTeam  string             `json:"away_team"`
	MatchDate time.Time          `json:"match_date"`
	Features  HistoricalFeatures `json:"features"`
	HomeGoals int                `json:"home_goals"`
	AwayGoals int                `json:"away_goals"`
}

// SimilarMatch is a historical match with its similarity to the query
type SimilarMatch struct {
	Record     HistoricalMatchRecord `json:"record"`
	Similarity float64               `json:"similarity"` // 0-100
}

// SimilarityStats aggregates outcomes of similar matches
type SimilarityStats struct {
	SampleSize   int     `json:"sample_size"`
	HomeWinRate  float64 `json:"home_win_rate"`
	DrawRate     float64 `json:"draw_rate"`
	AwayWinRate  float64 `json:"away_win_rate"`
	AvgGoals     float64 `json:"avg_goals"`
	Over25Rate   float64 `json:"over_2_5_rate"`
	BTTSRate     float64 `json:"btts_rate"`
	IsPopulation bool    `json:"is_population"` // true when defaults were used
}

// SimilarityResult is the ranked matches plus their aggregate
type SimilarityResult struct {
	Matches []SimilarMatch  `json:"matches"`
	Stats   SimilarityStats `json:"stats"`
}

// VerificationSummary is returned by every reconciliation batch
type VerificationSummary struct {
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	Processed    int       `json:"processed"`
	Verified     int       `json:"verified"`
	NotFound     int       `json:"not_found"`
	Skipped      int       `json:"skipped"`
	Pending      int       `json:"pending"`      // future fixtures left untouched
	Unverifiable int       `json:"unverifiable"` // sub-predictions left pending
	Unresolvable []string  `json:"unresolvable,omitempty"`
	Errors       []string  `json:"errors"`
}

// HasErrors reports whether the batch recorded any error
func (s VerificationSummary) HasErrors() bool {
	return len(s.Errors) > 0
}
