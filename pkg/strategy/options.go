package strategy

import (
	"time"

	"github.com/quantfwk/tradefwk/pkg/anomaly"
	"github.com/quantfwk/tradefwk/pkg/sentiment"
)

type Option func(*Manager)

func WithAnomalyDetector(detector anomaly.Detector) Option {
	return func(m *Manager) {
		m.detector = detector
	}
}

func WithSentimentScorer(scorer sentiment.Scorer) Option {
	return func(m *Manager) {
		m.scorer = scorer
	}
}

// WithSentimentThresholds sets the veto bands. A buy is vetoed when the
// average score is at or below negative; a sell when at or above positive.
func WithSentimentThresholds(negative, positive float64) Option {
	return func(m *Manager) {
		m.negativeThreshold = negative
		m.positiveThreshold = positive
	}
}

// WithMinArticles sets how many classified articles a score needs before it
// can veto anything.
func WithMinArticles(count int) Option {
	return func(m *Manager) {
		if count > 0 {
			m.minArticles = count
		}
	}
}

func WithSentimentCooldown(cooldown time.Duration) Option {
	return func(m *Manager) {
		if cooldown > 0 {
			m.sentimentCooldown = cooldown
		}
	}
}

func WithSentimentLookbackDays(days int) Option {
	return func(m *Manager) {
		if days > 0 {
			m.lookbackDays = days
		}
	}
}
