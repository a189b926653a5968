package strategy

import (
	"errors"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

const (
	minFastPeriod = 2
	minSlowPeriod = 3
)

// MACrossover goes long while the fast moving average sits above the slow one
// and short while it sits below. Equal averages carry no information and yield
// no advice; position-aware filtering upstream keeps it from churning.
type MACrossover struct {
	fast         int
	slow         int
	stopPoints   int
	profitPoints int
}

// NewMACrossover validates and clamps the periods. Fast is raised to 2 and
// slow to 3 when given smaller; fast must stay strictly below slow.
func NewMACrossover(fast, slow, stopPoints, profitPoints int) (*MACrossover, error) {
	if fast < minFastPeriod {
		fast = minFastPeriod
	}
	if slow < minSlowPeriod {
		slow = minSlowPeriod
	}
	if fast >= slow {
		return nil, errors.New("fast period must be smaller than slow period")
	}
	return &MACrossover{
		fast:         fast,
		slow:         slow,
		stopPoints:   stopPoints,
		profitPoints: profitPoints,
	}, nil
}

func (a *MACrossover) Name() string {
	return "ma_crossover"
}

func (a *MACrossover) Lookback() int {
	return a.slow
}

func (a *MACrossover) Evaluate(bars []common.Bar, tick common.Tick, info exchange.SymbolInfo) Advice {
	if len(bars) < a.slow {
		return Advice{}
	}

	closes := closesOf(bars[len(bars)-a.slow:])
	slowMA := fixed.Mean(closes)
	fastMA := fixed.Mean(closes[len(closes)-a.fast:])

	if fastMA.Eq(slowMA) {
		return Advice{}
	}

	direction := common.DirectionSell
	if fastMA.Gt(slowMA) {
		direction = common.DirectionBuy
	}

	stopLoss, takeProfit := protectiveLevels(direction, tick, info, a.stopPoints, a.profitPoints)
	return Advice{
		Valid:      true,
		Direction:  direction,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}
}
