package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	newsAPIEndpoint    = "https://newsapi.org/v2/everything"
	newsAPITimeFormat  = "2006-01-02T15:04:05"
	defaultPageSize    = 100
	polarityBand       = 0.05
	defaultHTTPTimeout = 10 * time.Second
)

type newsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

// NewsAPIScorer pulls headlines from newsapi.org and classifies each one
// locally. Symbols map to free-text queries, e.g. "EURUSD" -> "EUR USD forex".
type NewsAPIScorer struct {
	logger     *zap.Logger
	client     *http.Client
	classifier Classifier
	apiKey     string
	endpoint   string
	queries    map[string]string
}

func NewNewsAPIScorer(logger *zap.Logger, apiKey string, classifier Classifier) *NewsAPIScorer {
	return &NewsAPIScorer{
		logger:     logger,
		client:     &http.Client{Timeout: defaultHTTPTimeout},
		classifier: classifier,
		apiKey:     apiKey,
		queries:    make(map[string]string),
	}
}

// WithQuery registers the search query used for a symbol. Symbols without a
// registered query fall back to the symbol name itself.
func (s *NewsAPIScorer) WithQuery(symbol, query string) *NewsAPIScorer {
	s.queries[strings.ToUpper(symbol)] = query
	return s
}

// WithEndpoint overrides the service URL, used by tests.
func (s *NewsAPIScorer) WithEndpoint(endpoint string) *NewsAPIScorer {
	s.endpoint = endpoint
	return s
}

func (s *NewsAPIScorer) ScoreFor(ctx context.Context, symbol string, asOf time.Time, lookbackDays int) (Score, error) {
	if lookbackDays <= 0 {
		lookbackDays = 1
	}

	query, ok := s.queries[strings.ToUpper(symbol)]
	if !ok {
		query = symbol
	}

	endpoint := s.endpoint
	if endpoint == "" {
		endpoint = newsAPIEndpoint
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("from", asOf.UTC().AddDate(0, 0, -lookbackDays).Format(newsAPITimeFormat))
	values.Set("to", asOf.UTC().Format(newsAPITimeFormat))
	values.Set("language", "en")
	values.Set("sortBy", "publishedAt")
	values.Set("pageSize", fmt.Sprintf("%d", defaultPageSize))
	values.Set("apiKey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+values.Encode(), nil)
	if err != nil {
		return Score{}, fmt.Errorf("unable to create news request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return Score{}, fmt.Errorf("unable to fetch news: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return Score{}, fmt.Errorf("news service returned status %d", resp.StatusCode)
	}

	var payload newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Score{}, fmt.Errorf("unable to decode news response: %w", err)
	}
	if payload.Status != "ok" {
		return Score{}, fmt.Errorf("news service error: %s", payload.Message)
	}

	score := s.aggregate(payload.Articles)
	s.logger.Debug("news sentiment scored",
		zap.String("symbol", symbol),
		zap.Int("analyzed", score.TotalAnalyzed),
		zap.Float64("average", score.AverageScore))
	return score, nil
}

func (s *NewsAPIScorer) aggregate(articles []newsAPIArticle) Score {
	score := Score{}
	sum := 0.0

	for _, article := range articles {
		text := article.Title
		if article.Description != "" {
			text += " " + article.Description
		}
		polarity := s.classifier.Classify(text)
		sum += polarity
		score.TotalAnalyzed++

		switch {
		case polarity > polarityBand:
			score.Positive++
		case polarity < -polarityBand:
			score.Negative++
		default:
			score.Neutral++
		}
	}

	if score.TotalAnalyzed > 0 {
		score.AverageScore = sum / float64(score.TotalAnalyzed)
	}
	return score
}
