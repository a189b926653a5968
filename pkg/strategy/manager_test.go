package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/portfolio"
	"github.com/quantfwk/tradefwk/pkg/sentiment"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

type fakeMarket struct {
	bars []common.Bar
	tick common.Tick
}

func (f *fakeMarket) LatestClosedBars(_ context.Context, _ string, count int) ([]common.Bar, error) {
	if len(f.bars) == 0 {
		return nil, exchange.ErrNoData
	}
	if count > len(f.bars) {
		count = len(f.bars)
	}
	return f.bars[len(f.bars)-count:], nil
}

func (f *fakeMarket) LatestTick(_ context.Context, _ string) (common.Tick, error) {
	return f.tick, nil
}

type fakeSymbols struct{}

func (fakeSymbols) SymbolInfo(string) (exchange.SymbolInfo, error) {
	return eurusdInfo(), nil
}

type fakePoster struct {
	ids      []bus.EventId
	payloads []interface{}
}

func (f *fakePoster) Post(id bus.EventId, data interface{}) error {
	f.ids = append(f.ids, id)
	f.payloads = append(f.payloads, data)
	return nil
}

type fakePositions struct {
	positions []common.Position
}

func (f *fakePositions) OpenPositions(_ context.Context) ([]common.Position, error) {
	return f.positions, nil
}

type fakeCloser struct {
	longsClosed  int
	shortsClosed int
}

func (f *fakeCloser) CloseAllLongBySymbol(context.Context, string) error {
	f.longsClosed++
	return nil
}

func (f *fakeCloser) CloseAllShortBySymbol(context.Context, string) error {
	f.shortsClosed++
	return nil
}

type stubDetector struct {
	anomalous bool
}

func (stubDetector) WindowSize() int { return 3 }

func (d stubDetector) IsWindowAnomalous([]common.Bar) bool { return d.anomalous }

type stubScorer struct {
	score sentiment.Score
	err   error
	calls int
}

func (s *stubScorer) ScoreFor(context.Context, string, time.Time, int) (sentiment.Score, error) {
	s.calls++
	return s.score, s.err
}

const testMagic = int64(77)

func buyBar() common.Bar {
	return common.Bar{
		Symbol:    "EURUSD",
		TimeStamp: time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC),
	}
}

func newTestManager(t *testing.T, positions []common.Position, options ...Option) (*Manager, *fakePoster, *fakeCloser) {
	t.Helper()

	algo, err := NewMACrossover(2, 3, 0, 0)
	if err != nil {
		t.Fatalf("NewMACrossover failed: %v", err)
	}

	market := &fakeMarket{
		bars: barsWithCloses(1, 2, 3),
		tick: common.Tick{Ask: fixed.FromFloat64(3.0001), Bid: fixed.FromFloat64(3.0)},
	}
	poster := &fakePoster{}
	closer := &fakeCloser{}
	book := portfolio.NewPortfolio(zap.NewNop(), &fakePositions{positions: positions}, testMagic)

	m := NewManager(zap.NewNop(), poster, market, fakeSymbols{}, book, closer, algo, options...)
	return m, poster, closer
}

func longPosition() common.Position {
	return common.Position{Id: 1, Side: common.PositionSideLong, Symbol: "EURUSD", Magic: testMagic}
}

func shortPosition() common.Position {
	return common.Position{Id: 2, Side: common.PositionSideShort, Symbol: "EURUSD", Magic: testMagic}
}

func TestManager_PostsDecisionOnFlatBook(t *testing.T) {
	m, poster, _ := newTestManager(t, nil)

	m.OnBar(context.Background(), buyBar())

	if len(poster.ids) != 1 || poster.ids[0] != bus.DecisionEvent {
		t.Fatalf("Expected one decision event, got %v", poster.ids)
	}

	decision := poster.payloads[0].(common.Decision)
	if decision.Direction != common.DirectionBuy {
		t.Errorf("Expected BUY, got %s", decision.Direction.String())
	}
	if decision.Magic != testMagic {
		t.Errorf("Expected magic %d, got %d", testMagic, decision.Magic)
	}
	if decision.Symbol != "EURUSD" {
		t.Errorf("Expected symbol EURUSD, got %s", decision.Symbol)
	}
}

func TestManager_BuySuppressedWhenAlreadyLong(t *testing.T) {
	m, _, closer := newTestManager(t, []common.Position{longPosition()})

	_, err := m.Evaluate(context.Background(), buyBar())
	if !errors.Is(err, ErrNoSignal) {
		t.Errorf("Expected ErrNoSignal, got %v", err)
	}
	if closer.shortsClosed != 0 || closer.longsClosed != 0 {
		t.Error("Closer must not run when signal is suppressed")
	}
}

func TestManager_ReversalClosesOppositeSide(t *testing.T) {
	m, _, closer := newTestManager(t, []common.Position{shortPosition()})

	decision, err := m.Evaluate(context.Background(), buyBar())
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if closer.shortsClosed != 1 {
		t.Errorf("Expected one short flatten, got %d", closer.shortsClosed)
	}
	if decision.Direction != common.DirectionBuy {
		t.Errorf("Expected BUY, got %s", decision.Direction.String())
	}
}

func TestManager_BothSidesOpenSuppresses(t *testing.T) {
	m, _, closer := newTestManager(t, []common.Position{longPosition(), shortPosition()})

	_, err := m.Evaluate(context.Background(), buyBar())
	if !errors.Is(err, ErrNoSignal) {
		t.Errorf("Expected ErrNoSignal, got %v", err)
	}
	if closer.shortsClosed != 0 && closer.longsClosed != 0 {
		t.Error("Closer must not run on an inconsistent book")
	}
}

func TestManager_OtherMagicIgnored(t *testing.T) {
	foreign := longPosition()
	foreign.Magic = testMagic + 1
	m, poster, _ := newTestManager(t, []common.Position{foreign})

	m.OnBar(context.Background(), buyBar())
	if len(poster.ids) != 1 {
		t.Errorf("Expected foreign-magic position to be invisible, got %v", poster.ids)
	}
}

func TestManager_AnomalyVetoPrecedesSentiment(t *testing.T) {
	scorer := &stubScorer{score: sentiment.Score{AverageScore: -1, TotalAnalyzed: 10}}
	m, _, _ := newTestManager(t, nil,
		WithAnomalyDetector(stubDetector{anomalous: true}),
		WithSentimentScorer(scorer))

	_, err := m.Evaluate(context.Background(), buyBar())
	if !errors.Is(err, ErrVetoed) {
		t.Fatalf("Expected ErrVetoed, got %v", err)
	}
	if scorer.calls != 0 {
		t.Error("Sentiment must not be queried once the anomaly veto fires")
	}
}

func TestManager_SentimentVetoesBuyOnNegativeScore(t *testing.T) {
	scorer := &stubScorer{score: sentiment.Score{AverageScore: -0.5, TotalAnalyzed: 5}}
	m, _, _ := newTestManager(t, nil, WithSentimentScorer(scorer))

	_, err := m.Evaluate(context.Background(), buyBar())
	if !errors.Is(err, ErrVetoed) {
		t.Errorf("Expected ErrVetoed, got %v", err)
	}
}

func TestManager_SentimentBelowMinArticlesPasses(t *testing.T) {
	scorer := &stubScorer{score: sentiment.Score{AverageScore: -1, TotalAnalyzed: 2}}
	m, _, _ := newTestManager(t, nil, WithSentimentScorer(scorer))

	if _, err := m.Evaluate(context.Background(), buyBar()); err != nil {
		t.Errorf("Expected decision despite thin coverage, got %v", err)
	}
}

func TestManager_SentimentErrorDoesNotBlock(t *testing.T) {
	scorer := &stubScorer{err: errors.New("service down")}
	m, _, _ := newTestManager(t, nil, WithSentimentScorer(scorer))

	if _, err := m.Evaluate(context.Background(), buyBar()); err != nil {
		t.Errorf("Expected decision when sentiment is unavailable, got %v", err)
	}
}

func TestManager_SentimentCooldownUsesBarTime(t *testing.T) {
	scorer := &stubScorer{score: sentiment.Score{AverageScore: 0, TotalAnalyzed: 5}}
	m, _, _ := newTestManager(t, nil,
		WithSentimentScorer(scorer),
		WithSentimentCooldown(30*time.Minute))

	first := buyBar()
	second := buyBar()
	second.TimeStamp = first.TimeStamp.Add(time.Minute)
	third := buyBar()
	third.TimeStamp = first.TimeStamp.Add(31 * time.Minute)

	ctx := context.Background()
	if _, err := m.Evaluate(ctx, first); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if _, err := m.Evaluate(ctx, second); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if scorer.calls != 1 {
		t.Errorf("Expected cached score inside cooldown, calls=%d", scorer.calls)
	}

	if _, err := m.Evaluate(ctx, third); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if scorer.calls != 2 {
		t.Errorf("Expected refresh after cooldown, calls=%d", scorer.calls)
	}
}
