package strategy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantfwk/tradefwk/pkg/anomaly"
	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/portfolio"
	"github.com/quantfwk/tradefwk/pkg/sentiment"
	"github.com/quantfwk/tradefwk/pkg/utility"
	"go.uber.org/zap"
)

const managerComponentName = "strategy.manager"

// ErrNoSignal means the bar produced no actionable decision: the algorithm
// had no opinion, the window was short, or the book already holds the side.
var ErrNoSignal = errors.New("no signal")

// ErrVetoed means a filter blocked an otherwise valid signal.
var ErrVetoed = errors.New("signal vetoed")

// OppositeCloser flattens one side of the book for a symbol. The executor
// provides it; a reversal closes the opposing side before the new decision is
// queued.
type OppositeCloser interface {
	CloseAllLongBySymbol(ctx context.Context, symbol string) error
	CloseAllShortBySymbol(ctx context.Context, symbol string) error
}

type EventPoster interface {
	Post(id bus.EventId, data interface{}) error
}

type cachedScore struct {
	asOf  time.Time
	score sentiment.Score
}

// Manager drives one algorithm instance. On every closed bar it asks the
// algorithm for advice, reconciles it with the open book, runs the anomaly
// veto and then the sentiment veto, and posts the surviving decision.
type Manager struct {
	logger    *zap.Logger
	poster    EventPoster
	market    exchange.MarketData
	book      *portfolio.Portfolio
	closer    OppositeCloser
	algorithm Algorithm
	symbols   SymbolInfoProvider

	detector anomaly.Detector

	scorer            sentiment.Scorer
	sentimentCooldown time.Duration
	lookbackDays      int
	minArticles       int
	negativeThreshold float64
	positiveThreshold float64
	scoreCache        map[string]cachedScore
}

type SymbolInfoProvider interface {
	SymbolInfo(symbol string) (exchange.SymbolInfo, error)
}

func NewManager(logger *zap.Logger, poster EventPoster, market exchange.MarketData, symbols SymbolInfoProvider,
	book *portfolio.Portfolio, closer OppositeCloser, algorithm Algorithm, options ...Option) *Manager {
	m := &Manager{
		logger:            logger,
		poster:            poster,
		market:            market,
		book:              book,
		closer:            closer,
		algorithm:         algorithm,
		symbols:           symbols,
		sentimentCooldown: 30 * time.Minute,
		lookbackDays:      3,
		minArticles:       3,
		negativeThreshold: -0.2,
		positiveThreshold: 0.2,
		scoreCache:        make(map[string]cachedScore),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// OnBar is the data event handler. Evaluation outcomes that are part of
// normal operation (no signal, veto) log and return; real failures log at
// warn.
func (m *Manager) OnBar(ctx context.Context, bar common.Bar) {
	decision, err := m.Evaluate(ctx, bar)
	switch {
	case err == nil:
		if postErr := m.poster.Post(bus.DecisionEvent, decision); postErr != nil {
			m.logger.Warn("unable to post decision", zap.Error(postErr))
		}
	case errors.Is(err, ErrNoSignal):
		m.logger.Debug("no signal", zap.String("symbol", bar.Symbol))
	case errors.Is(err, ErrVetoed):
		m.logger.Info("signal vetoed", zap.String("symbol", bar.Symbol), zap.Error(err))
	default:
		m.logger.Warn("strategy evaluation failed", zap.String("symbol", bar.Symbol), zap.Error(err))
	}
}

// Evaluate runs the full decision flow for one closed bar and returns the
// decision that should be queued, ErrNoSignal, ErrVetoed, or a hard error.
func (m *Manager) Evaluate(ctx context.Context, bar common.Bar) (common.Decision, error) {
	lookback := m.algorithm.Lookback()
	if m.detector != nil && m.detector.WindowSize() > lookback {
		lookback = m.detector.WindowSize()
	}

	bars, err := m.market.LatestClosedBars(ctx, bar.Symbol, lookback)
	if errors.Is(err, exchange.ErrNoData) {
		return common.Decision{}, ErrNoSignal
	}
	if err != nil {
		return common.Decision{}, fmt.Errorf("unable to fetch bar window: %w", err)
	}
	if len(bars) < m.algorithm.Lookback() {
		return common.Decision{}, ErrNoSignal
	}

	tick, err := m.market.LatestTick(ctx, bar.Symbol)
	if err != nil {
		return common.Decision{}, fmt.Errorf("unable to fetch latest tick: %w", err)
	}

	info, err := m.symbols.SymbolInfo(bar.Symbol)
	if err != nil {
		return common.Decision{}, fmt.Errorf("unable to fetch symbol info: %w", err)
	}

	advice := m.algorithm.Evaluate(bars, tick, info)
	if !advice.Valid {
		return common.Decision{}, ErrNoSignal
	}

	if err := m.reconcileBook(ctx, bar.Symbol, advice.Direction); err != nil {
		return common.Decision{}, err
	}

	if m.detector != nil && m.detector.IsWindowAnomalous(bars) {
		return common.Decision{}, fmt.Errorf("%w: anomalous bar window", ErrVetoed)
	}

	if err := m.checkSentiment(ctx, bar, advice.Direction); err != nil {
		return common.Decision{}, err
	}

	return common.Decision{
		Direction:   advice.Direction,
		TargetOrder: common.OrderTypeMarket,
		Magic:       m.book.Magic(),
		StopLoss:    advice.StopLoss,
		TakeProfit:  advice.TakeProfit,
		Source:      managerComponentName + "." + m.algorithm.Name(),
		Symbol:      bar.Symbol,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   bar.TimeStamp,
	}, nil
}

// reconcileBook applies the reversal rules. Holding the advised side already
// suppresses the signal; holding the opposite side gets that side flattened
// before the decision proceeds; holding both sides suppresses and warns.
func (m *Manager) reconcileBook(ctx context.Context, symbol string, direction common.Direction) error {
	counts, err := m.book.CountBySymbol(ctx, symbol)
	if err != nil {
		return fmt.Errorf("unable to read open positions: %w", err)
	}

	if counts.Long > 0 && counts.Short > 0 {
		m.logger.Warn("book holds both sides, suppressing signal", zap.String("symbol", symbol))
		return ErrNoSignal
	}

	if direction == common.DirectionBuy {
		if counts.Long > 0 {
			return ErrNoSignal
		}
		if counts.Short > 0 {
			if err := m.closer.CloseAllShortBySymbol(ctx, symbol); err != nil {
				return fmt.Errorf("unable to close short positions on reversal: %w", err)
			}
		}
		return nil
	}

	if counts.Short > 0 {
		return ErrNoSignal
	}
	if counts.Long > 0 {
		if err := m.closer.CloseAllLongBySymbol(ctx, symbol); err != nil {
			return fmt.Errorf("unable to close long positions on reversal: %w", err)
		}
	}
	return nil
}

// checkSentiment vetoes a buy on strongly negative coverage and a sell on
// strongly positive coverage. Scores are cached per symbol and refreshed on
// bar time, not wall time, so backtests stay deterministic.
func (m *Manager) checkSentiment(ctx context.Context, bar common.Bar, direction common.Direction) error {
	if m.scorer == nil {
		return nil
	}

	score, err := m.scoreFor(ctx, bar)
	if err != nil {
		m.logger.Warn("sentiment unavailable, proceeding without it",
			zap.String("symbol", bar.Symbol), zap.Error(err))
		return nil
	}

	if score.TotalAnalyzed < m.minArticles {
		return nil
	}

	if direction == common.DirectionBuy && score.AverageScore <= m.negativeThreshold {
		return fmt.Errorf("%w: negative sentiment %.3f over %d articles",
			ErrVetoed, score.AverageScore, score.TotalAnalyzed)
	}
	if direction == common.DirectionSell && score.AverageScore >= m.positiveThreshold {
		return fmt.Errorf("%w: positive sentiment %.3f over %d articles",
			ErrVetoed, score.AverageScore, score.TotalAnalyzed)
	}
	return nil
}

func (m *Manager) scoreFor(ctx context.Context, bar common.Bar) (sentiment.Score, error) {
	cached, ok := m.scoreCache[bar.Symbol]
	if ok && bar.TimeStamp.Sub(cached.asOf) < m.sentimentCooldown {
		return cached.score, nil
	}

	score, err := m.scorer.ScoreFor(ctx, bar.Symbol, bar.TimeStamp, m.lookbackDays)
	if err != nil {
		return sentiment.Score{}, err
	}

	m.scoreCache[bar.Symbol] = cachedScore{asOf: bar.TimeStamp, score: score}
	return score, nil
}
