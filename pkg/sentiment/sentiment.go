// Package sentiment scores recent news coverage for a traded symbol.
// Strategies use the score as a veto input: a strongly negative read blocks
// new longs, a strongly positive one blocks new shorts.
package sentiment

import (
	"context"
	"time"
)

// Score aggregates classified headlines over a lookback window.
type Score struct {
	AverageScore  float64
	TotalAnalyzed int
	Positive      int
	Negative      int
	Neutral       int
}

// Scorer produces a Score for one symbol as of a point in time. asOf is the
// bar time driving the evaluation, not the wall clock, so backtests query
// historically consistent windows.
type Scorer interface {
	ScoreFor(ctx context.Context, symbol string, asOf time.Time, lookbackDays int) (Score, error)
}
