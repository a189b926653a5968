// Package strategy turns closed bars into trade decisions. An Algorithm reads
// the bar window and proposes a direction; the Manager wraps it with position
// awareness and the anomaly and sentiment vetoes before anything reaches the
// queue.
package strategy

import (
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

// Advice is an algorithm's raw proposal. Valid is false when the window gives
// no actionable read. StopLoss and TakeProfit are absolute prices, zero when
// the algorithm does not place protective levels.
type Advice struct {
	Valid      bool
	Direction  common.Direction
	StopLoss   fixed.Point
	TakeProfit fixed.Point
}

// Algorithm evaluates one bar window. Lookback is the minimum number of
// closed bars Evaluate needs; callers never hand it fewer.
type Algorithm interface {
	Name() string
	Lookback() int
	Evaluate(bars []common.Bar, tick common.Tick, info exchange.SymbolInfo) Advice
}

func closesOf(bars []common.Bar) []fixed.Point {
	closes := make([]fixed.Point, len(bars))
	for idx, bar := range bars {
		closes[idx] = bar.Close
	}
	return closes
}

func protectiveLevels(direction common.Direction, tick common.Tick, info exchange.SymbolInfo, stopPoints, profitPoints int) (stopLoss, takeProfit fixed.Point) {
	stopDistance := info.PipSize.MulInt(stopPoints)
	profitDistance := info.PipSize.MulInt(profitPoints)

	if direction == common.DirectionBuy {
		if stopPoints > 0 {
			stopLoss = tick.Ask.Sub(stopDistance)
		}
		if profitPoints > 0 {
			takeProfit = tick.Ask.Add(profitDistance)
		}
		return stopLoss, takeProfit
	}

	if stopPoints > 0 {
		stopLoss = tick.Bid.Add(stopDistance)
	}
	if profitPoints > 0 {
		takeProfit = tick.Bid.Sub(profitDistance)
	}
	return stopLoss, takeProfit
}
