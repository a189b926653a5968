package sandbox

import (
	"context"
	"strings"
	"time"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

const simulatorComponentName = "exchange.sandbox.simulator"

const defaultHistoryLimit = 512

type pendingOrder struct {
	orderId int64
	req     exchange.OrderRequest
}

// Simulator is an in-process broker and market-data surface. The backtest
// feeds it closed bars, the live paper mode feeds it raw ticks. It owns the
// authoritative position state, balance, equity and the trade log; the
// pipeline only ever reads them through the exchange interfaces.
type Simulator struct {
	logger *zap.Logger

	accountCurrency string
	slippage        fixed.Point
	symbolsMap      map[string]exchange.SymbolInfo
	historyLimit    int

	balance fixed.Point
	equity  fixed.Point

	simulationTime time.Time
	lastTickMap    map[string]common.Tick
	history        map[string][]common.Bar

	positionIdCounter common.PositionId
	orderIdCounter    int64
	dealIdCounter     int64

	openPositions []*common.Position
	pendingOrders []*pendingOrder
	deals         map[int64]exchange.Deal

	trades []common.Trade

	maxEquity   fixed.Point
	maxDrawdown fixed.Point
}

func NewSimulator(logger *zap.Logger, accountCurrency string, startBalance fixed.Point, options ...Option) *Simulator {
	s := &Simulator{
		logger:          logger,
		accountCurrency: strings.ToUpper(accountCurrency),
		slippage:        fixed.Zero,
		symbolsMap:      make(map[string]exchange.SymbolInfo),
		historyLimit:    defaultHistoryLimit,
		balance:         startBalance,
		equity:          startBalance,
		lastTickMap:     make(map[string]common.Tick),
		history:         make(map[string][]common.Bar),
		deals:           make(map[int64]exchange.Deal),
		maxEquity:       startBalance,
		maxDrawdown:     fixed.Zero,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// OnBar advances the simulation by one closed bar. A tick is synthesized
// from the close and the bar spread so tick-consuming stages keep working in
// the bar-driven backtest.
func (s *Simulator) OnBar(ctx context.Context, bar common.Bar) {
	symbol := strings.ToUpper(bar.Symbol)
	info, ok := s.symbolsMap[symbol]
	if !ok {
		s.logger.Warn("symbol info is not present, dropping bar", zap.String("symbol", bar.Symbol))
		return
	}

	s.RecordBar(bar)

	halfSpread := bar.Spread.Mul(info.TickSize).DivInt(2)
	tick := common.Tick{
		Bid:         bar.Close.Sub(halfSpread),
		Ask:         bar.Close.Add(halfSpread),
		Source:      simulatorComponentName,
		Symbol:      bar.Symbol,
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   bar.TimeStamp,
	}
	s.OnTick(ctx, tick)
}

// RecordBar appends one closed bar to the history serving LatestClosedBars.
// Live paper sessions use it as the bar builder sink, the quote state there
// comes from real ticks.
func (s *Simulator) RecordBar(bar common.Bar) {
	symbol := strings.ToUpper(bar.Symbol)
	bars := append(s.history[symbol], bar)
	if len(bars) > s.historyLimit {
		bars = bars[len(bars)-s.historyLimit:]
	}
	s.history[symbol] = bars
}

// OnTick updates the quote state, triggers pending orders, enforces stop
// loss and take profit levels and marks equity to market.
func (s *Simulator) OnTick(ctx context.Context, tick common.Tick) {
	symbol := strings.ToUpper(tick.Symbol)
	if _, ok := s.symbolsMap[symbol]; !ok {
		s.logger.Warn("symbol info is not present, dropping tick", zap.String("symbol", tick.Symbol))
		return
	}

	s.simulationTime = tick.TimeStamp
	s.lastTickMap[symbol] = tick

	s.triggerPendingOrders(ctx, tick)
	s.enforceProtectiveLevels(ctx, tick)
	s.markToMarket(ctx)
}

func (s *Simulator) Trades() []common.Trade {
	out := make([]common.Trade, len(s.trades))
	copy(out, s.trades)
	return out
}

func (s *Simulator) SimulationTime() time.Time {
	return s.simulationTime
}

// CloseAllOpenPositions settles every open position at the last known quote.
// Called once at the end of a backtest so the report covers the full run.
func (s *Simulator) CloseAllOpenPositions(ctx context.Context) {
	for len(s.openPositions) > 0 {
		position := s.openPositions[0]
		result, err := s.ClosePosition(ctx, position.Id)
		if err != nil || !result.Retcode.Success() {
			s.logger.Warn("unable to close position at end of run",
				zap.Int64("ticket", position.Id),
				zap.String("comment", result.Comment),
				zap.Error(err))
			s.openPositions = s.openPositions[1:]
		}
	}
}

func (s *Simulator) triggerPendingOrders(ctx context.Context, tick common.Tick) {
	remaining := s.pendingOrders[:0]
	for _, pending := range s.pendingOrders {
		if !strings.EqualFold(pending.req.Symbol, tick.Symbol) || !s.shouldTrigger(pending.req, tick) {
			remaining = append(remaining, pending)
			continue
		}
		s.openPosition(pending.req, pending.req.Price, tick.TimeStamp, pending.orderId)
		s.logger.Info("pending order triggered",
			zap.String("symbol", pending.req.Symbol),
			zap.String("direction", pending.req.Direction.String()),
			zap.String("price", pending.req.Price.String()))
	}
	s.pendingOrders = remaining
	_ = ctx
}

func (s *Simulator) shouldTrigger(req exchange.OrderRequest, tick common.Tick) bool {
	if req.Direction == common.DirectionBuy {
		if req.Type == common.OrderTypeLimit {
			return tick.Ask.Lte(req.Price)
		}
		return tick.Ask.Gte(req.Price)
	}
	if req.Type == common.OrderTypeLimit {
		return tick.Bid.Gte(req.Price)
	}
	return tick.Bid.Lte(req.Price)
}

func (s *Simulator) enforceProtectiveLevels(ctx context.Context, tick common.Tick) {
	for _, position := range s.snapshotPositions() {
		if !strings.EqualFold(position.Symbol, tick.Symbol) {
			continue
		}
		if s.shouldClose(position, tick) {
			if _, err := s.ClosePosition(ctx, position.Id); err != nil {
				s.logger.Warn("unable to close position on protective level",
					zap.Int64("ticket", position.Id), zap.Error(err))
			}
		}
	}
}

func (s *Simulator) shouldClose(position common.Position, tick common.Tick) bool {
	if position.Side == common.PositionSideLong {
		if position.StopLoss.IsPositive() && tick.Bid.Lte(position.StopLoss) {
			return true
		}
		if position.TakeProfit.IsPositive() && tick.Bid.Gte(position.TakeProfit) {
			return true
		}
		return false
	}
	if position.StopLoss.IsPositive() && tick.Ask.Gte(position.StopLoss) {
		return true
	}
	if position.TakeProfit.IsPositive() && tick.Ask.Lte(position.TakeProfit) {
		return true
	}
	return false
}

func (s *Simulator) markToMarket(ctx context.Context) {
	equity := s.balance
	for _, position := range s.openPositions {
		profit, err := s.unrealizedProfit(ctx, *position)
		if err != nil {
			continue
		}
		equity = equity.Add(profit)
	}
	s.equity = equity

	if s.equity.Gt(s.maxEquity) {
		s.maxEquity = s.equity
	}
	drawdown := s.maxEquity.Sub(s.equity)
	if drawdown.Gt(s.maxDrawdown) {
		s.maxDrawdown = drawdown
	}
}

func (s *Simulator) unrealizedProfit(ctx context.Context, position common.Position) (fixed.Point, error) {
	tick, ok := s.lastTickMap[strings.ToUpper(position.Symbol)]
	if !ok {
		return fixed.Zero, exchange.ErrNoData
	}
	exitPrice := tick.Bid
	if position.Side == common.PositionSideShort {
		exitPrice = tick.Ask
	}
	return s.profit(ctx, position, exitPrice)
}

func (s *Simulator) profit(ctx context.Context, position common.Position, exitPrice fixed.Point) (fixed.Point, error) {
	info := s.symbolsMap[strings.ToUpper(position.Symbol)]

	diff := exitPrice.Sub(position.OpenPrice)
	if position.Side == common.PositionSideShort {
		diff = diff.Neg()
	}
	quoteProfit := diff.Mul(position.Volume).Mul(info.ContractSize)

	return exchange.ConvertAmount(ctx, s, quoteProfit, info.QuoteCurrency, s.accountCurrency)
}

func (s *Simulator) snapshotPositions() []common.Position {
	out := make([]common.Position, 0, len(s.openPositions))
	for _, position := range s.openPositions {
		out = append(out, *position)
	}
	return out
}

func (s *Simulator) openPosition(req exchange.OrderRequest, price fixed.Point, at time.Time, orderId int64) common.PositionId {
	s.positionIdCounter++

	side := common.PositionSideLong
	if req.Direction == common.DirectionSell {
		side = common.PositionSideShort
	}

	position := &common.Position{
		Id:          s.positionIdCounter,
		Side:        side,
		Volume:      req.Volume,
		OpenPrice:   price,
		OpenTime:    at,
		StopLoss:    req.StopLoss,
		TakeProfit:  req.TakeProfit,
		Magic:       req.Magic,
		Source:      simulatorComponentName,
		Symbol:      strings.ToUpper(req.Symbol),
		ExecutionId: utility.GetExecutionID(),
		TraceID:     utility.CreateTraceID(),
		TimeStamp:   at,
	}
	s.openPositions = append(s.openPositions, position)

	s.dealIdCounter++
	s.deals[orderId] = exchange.Deal{
		Ticket:   s.dealIdCounter,
		OrderId:  orderId,
		Position: position.Id,
		Price:    price,
		Volume:   req.Volume,
		Time:     at,
	}

	return position.Id
}
