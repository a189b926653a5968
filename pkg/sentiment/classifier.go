package sentiment

import "strings"

// Classifier assigns a polarity in [-1, 1] to a single headline.
type Classifier interface {
	Classify(headline string) float64
}

var defaultPositiveTerms = []string{
	"rally", "surge", "gain", "beat", "upgrade", "growth", "bullish",
	"record", "strong", "optimism", "recovery", "rebound",
}

var defaultNegativeTerms = []string{
	"crash", "plunge", "fall", "miss", "downgrade", "recession", "bearish",
	"fear", "weak", "crisis", "selloff", "default", "slump",
}

// LexiconClassifier scores a headline by counting polarity terms. The result
// is the normalized difference of positive and negative hits.
type LexiconClassifier struct {
	positive []string
	negative []string
}

func NewLexiconClassifier() *LexiconClassifier {
	return &LexiconClassifier{
		positive: defaultPositiveTerms,
		negative: defaultNegativeTerms,
	}
}

func (c *LexiconClassifier) Classify(headline string) float64 {
	lowered := strings.ToLower(headline)

	hits := 0
	score := 0
	for _, term := range c.positive {
		if strings.Contains(lowered, term) {
			score++
			hits++
		}
	}
	for _, term := range c.negative {
		if strings.Contains(lowered, term) {
			score--
			hits++
		}
	}

	if hits == 0 {
		return 0
	}
	return float64(score) / float64(hits)
}
