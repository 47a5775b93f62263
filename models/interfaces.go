package models

import "context"

// Advisor returns a secondary opinion per prediction type for a fixture
type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) (*Advice, error)
}

// AdviceRequest is what the advisor is shown about a fixture
type AdviceRequest struct {
	Features FeatureVector
	Model    ModelOutput
	Accuracy []AccuracyStat // optional per-type track record
}

// HistoryReader reads the similarity corpus
type HistoryReader interface {
	RecentHistorical(ctx context.Context, league string, limit int) ([]HistoricalMatchRecord, error)
}

// AccuracyReader reads running per-type accuracy counters
type AccuracyReader interface {
	AccuracyStats(ctx context.Context) ([]AccuracyStat, error)
}
