package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

func eurusdInfo() exchange.SymbolInfo {
	return exchange.SymbolInfo{
		SymbolName:    "EURUSD",
		Class:         exchange.Forex,
		QuoteCurrency: "USD",
		Digits:        5,
		PipSize:       fixed.FromFloat64(0.0001),
		TickSize:      fixed.FromFloat64(0.00001),
		ContractSize:  fixed.FromInt(100000, 0),
		VolumeMin:     fixed.FromFloat64(0.01),
		VolumeMax:     fixed.FromInt(100, 0),
		VolumeStep:    fixed.FromFloat64(0.01),
	}
}

func newTestSimulator() *Simulator {
	return NewSimulator(zap.NewNop(), "USD", fixed.FromInt(10000, 0),
		WithSymbol(eurusdInfo()))
}

func tickAt(bid, ask float64, at time.Time) common.Tick {
	return common.Tick{
		Symbol:    "EURUSD",
		Bid:       fixed.FromFloat64(bid),
		Ask:       fixed.FromFloat64(ask),
		TimeStamp: at,
	}
}

func buyRequest(volume float64) exchange.OrderRequest {
	return exchange.OrderRequest{
		Symbol:    "EURUSD",
		Direction: common.DirectionBuy,
		Type:      common.OrderTypeMarket,
		Volume:    fixed.FromFloat64(volume),
		Magic:     7,
	}
}

func TestSimulator_MarketOrderOpensPosition(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()
	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s.OnTick(ctx, tickAt(1.1000, 1.1001, start))

	result, err := s.SubmitMarketOrder(ctx, buyRequest(0.1))
	if err != nil {
		t.Fatalf("SubmitMarketOrder failed: %v", err)
	}
	if !result.Retcode.Success() {
		t.Fatalf("Expected success, got retcode %d (%s)", result.Retcode, result.Comment)
	}
	if !result.Price.Eq(fixed.FromFloat64(1.1001)) {
		t.Errorf("Expected fill at ask, got %s", result.Price.String())
	}

	positions, _ := s.OpenPositions(ctx)
	if len(positions) != 1 {
		t.Fatalf("Expected one open position, got %d", len(positions))
	}
	if positions[0].Side != common.PositionSideLong {
		t.Error("Expected long position")
	}

	deal, err := s.DealFor(ctx, result.OrderId)
	if err != nil {
		t.Fatalf("DealFor failed: %v", err)
	}
	if !deal.Price.Eq(result.Price) {
		t.Errorf("Deal price mismatch: %s vs %s", deal.Price.String(), result.Price.String())
	}
}

func TestSimulator_CloseRealizesProfit(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()
	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s.OnTick(ctx, tickAt(1.1000, 1.1001, start))
	result, _ := s.SubmitMarketOrder(ctx, buyRequest(0.1))
	if !result.Retcode.Success() {
		t.Fatal("Order rejected")
	}

	// Price moves up 100 pips.
	s.OnTick(ctx, tickAt(1.1101, 1.1102, start.Add(time.Minute)))

	positions, _ := s.OpenPositions(ctx)
	closeResult, err := s.ClosePosition(ctx, positions[0].Id)
	if err != nil {
		t.Fatalf("ClosePosition failed: %v", err)
	}
	if !closeResult.Retcode.Success() {
		t.Fatal("Close rejected")
	}

	// Bought 0.1 lots at 1.1001, sold at bid 1.1101: 0.0100 x 10000 = 100 USD.
	account, _ := s.Account(ctx)
	if !account.Balance.Eq(fixed.FromInt(10100, 0)) {
		t.Errorf("Expected balance 10100, got %s", account.Balance.String())
	}

	trades := s.Trades()
	if len(trades) != 1 {
		t.Fatalf("Expected one trade, got %d", len(trades))
	}
	if !trades[0].Profit.Eq(fixed.FromInt(100, 0)) {
		t.Errorf("Expected profit 100, got %s", trades[0].Profit.String())
	}
}

func TestSimulator_EquityMarksToMarket(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()
	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s.OnTick(ctx, tickAt(1.1000, 1.1001, start))
	_, _ = s.SubmitMarketOrder(ctx, buyRequest(0.1))

	s.OnTick(ctx, tickAt(1.0901, 1.0902, start.Add(time.Minute)))

	// Unrealized: (1.0901 - 1.1001) x 10000 = -100.
	account, _ := s.Account(ctx)
	if !account.Equity.Eq(fixed.FromInt(9900, 0)) {
		t.Errorf("Expected equity 9900, got %s", account.Equity.String())
	}
	if !account.Balance.Eq(fixed.FromInt(10000, 0)) {
		t.Errorf("Expected balance untouched, got %s", account.Balance.String())
	}
}

func TestSimulator_StopLossEnforced(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()
	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s.OnTick(ctx, tickAt(1.1000, 1.1001, start))

	req := buyRequest(0.1)
	req.StopLoss = fixed.FromFloat64(1.0950)
	if result, _ := s.SubmitMarketOrder(ctx, req); !result.Retcode.Success() {
		t.Fatal("Order rejected")
	}

	// Bid trades through the stop.
	s.OnTick(ctx, tickAt(1.0949, 1.0950, start.Add(time.Minute)))

	positions, _ := s.OpenPositions(ctx)
	if len(positions) != 0 {
		t.Fatalf("Expected stop loss to flatten the position, %d still open", len(positions))
	}
	if len(s.Trades()) != 1 {
		t.Error("Expected the stop-out in the trade log")
	}
}

func TestSimulator_PendingLimitTriggers(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()
	start := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	s.OnTick(ctx, tickAt(1.1000, 1.1001, start))

	req := buyRequest(0.1)
	req.Type = common.OrderTypeLimit
	req.Price = fixed.FromFloat64(1.0950)
	result, err := s.SubmitPendingOrder(ctx, req)
	if err != nil || !result.Retcode.Success() {
		t.Fatalf("SubmitPendingOrder failed: %v (%s)", err, result.Comment)
	}

	positions, _ := s.OpenPositions(ctx)
	if len(positions) != 0 {
		t.Fatal("Pending order must not open a position before its trigger")
	}

	// Ask drops to the limit price.
	s.OnTick(ctx, tickAt(1.0949, 1.0950, start.Add(time.Minute)))

	positions, _ = s.OpenPositions(ctx)
	if len(positions) != 1 {
		t.Fatalf("Expected limit order to fill, got %d positions", len(positions))
	}
	if !positions[0].OpenPrice.Eq(fixed.FromFloat64(1.0950)) {
		t.Errorf("Expected fill at limit price, got %s", positions[0].OpenPrice.String())
	}
}

func TestSimulator_CancelPendingOrder(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()

	s.OnTick(ctx, tickAt(1.1000, 1.1001, time.Now()))

	req := buyRequest(0.1)
	req.Type = common.OrderTypeStop
	req.Price = fixed.FromFloat64(1.1100)
	result, _ := s.SubmitPendingOrder(ctx, req)

	cancel, err := s.CancelPendingOrder(ctx, result.OrderId)
	if err != nil || !cancel.Retcode.Success() {
		t.Fatalf("CancelPendingOrder failed: %v (%s)", err, cancel.Comment)
	}

	if cancelAgain, _ := s.CancelPendingOrder(ctx, result.OrderId); cancelAgain.Retcode.Success() {
		t.Error("Expected second cancel to be rejected")
	}
}

func TestSimulator_BarFeedsHistoryAndQuote(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()
	open := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s.OnBar(ctx, common.Bar{
			Symbol:    "EURUSD",
			Period:    common.BarPeriodM1,
			OpenTime:  open.Add(time.Duration(i) * time.Minute),
			TimeStamp: open.Add(time.Duration(i+1) * time.Minute),
			Open:      fixed.FromFloat64(1.1),
			High:      fixed.FromFloat64(1.101),
			Low:       fixed.FromFloat64(1.099),
			Close:     fixed.FromFloat64(1.1005),
			Spread:    fixed.FromInt(20, 0),
		})
	}

	bars, err := s.LatestClosedBars(ctx, "EURUSD", 2)
	if err != nil {
		t.Fatalf("LatestClosedBars failed: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("Expected 2 bars, got %d", len(bars))
	}

	tick, err := s.LatestTick(ctx, "EURUSD")
	if err != nil {
		t.Fatalf("LatestTick failed: %v", err)
	}
	// Half spread is 20 x 0.00001 / 2 = 0.0001 around the close.
	if !tick.Ask.Eq(fixed.FromFloat64(1.1006)) || !tick.Bid.Eq(fixed.FromFloat64(1.1004)) {
		t.Errorf("Synthesized quote wrong: bid %s ask %s", tick.Bid.String(), tick.Ask.String())
	}
}

func TestSimulator_NoDataErrors(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()

	if _, err := s.LatestTick(ctx, "EURUSD"); !errors.Is(err, exchange.ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
	if _, err := s.LatestClosedBars(ctx, "EURUSD", 5); !errors.Is(err, exchange.ErrNoData) {
		t.Errorf("Expected ErrNoData, got %v", err)
	}
	if _, err := s.SymbolInfo("GBPUSD"); !errors.Is(err, exchange.ErrUnknownSymbol) {
		t.Errorf("Expected ErrUnknownSymbol, got %v", err)
	}
}

func TestSimulator_CloseAllOpenPositions(t *testing.T) {
	s := newTestSimulator()
	ctx := context.Background()

	s.OnTick(ctx, tickAt(1.1000, 1.1001, time.Now()))
	_, _ = s.SubmitMarketOrder(ctx, buyRequest(0.1))
	_, _ = s.SubmitMarketOrder(ctx, buyRequest(0.2))

	s.CloseAllOpenPositions(ctx)

	positions, _ := s.OpenPositions(ctx)
	if len(positions) != 0 {
		t.Errorf("Expected flat book, %d still open", len(positions))
	}
	if len(s.Trades()) != 2 {
		t.Errorf("Expected 2 trades, got %d", len(s.Trades()))
	}
}
