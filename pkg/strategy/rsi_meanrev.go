package strategy

import (
	"errors"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

var hundred = fixed.FromInt(100, 0)

// RSIMeanReversion fades extremes: buy when the relative strength index drops
// below the lower band, sell when it rises above the upper band, stand aside
// in between.
type RSIMeanReversion struct {
	period       int
	upper        fixed.Point
	lower        fixed.Point
	stopPoints   int
	profitPoints int
}

func NewRSIMeanReversion(period, upper, lower, stopPoints, profitPoints int) (*RSIMeanReversion, error) {
	if period < 2 {
		return nil, errors.New("rsi period must be at least 2")
	}
	if lower <= 0 || upper >= 100 || lower >= upper {
		return nil, errors.New("rsi bands must satisfy 0 < lower < upper < 100")
	}
	return &RSIMeanReversion{
		period:       period,
		upper:        fixed.FromInt(upper, 0),
		lower:        fixed.FromInt(lower, 0),
		stopPoints:   stopPoints,
		profitPoints: profitPoints,
	}, nil
}

func (a *RSIMeanReversion) Name() string {
	return "rsi_mean_reversion"
}

// Lookback is period+1 closes, the index needs period deltas.
func (a *RSIMeanReversion) Lookback() int {
	return a.period + 1
}

func (a *RSIMeanReversion) Evaluate(bars []common.Bar, tick common.Tick, info exchange.SymbolInfo) Advice {
	if len(bars) < a.Lookback() {
		return Advice{}
	}

	index := a.index(closesOf(bars[len(bars)-a.Lookback():]))

	var direction common.Direction
	switch {
	case index.Lt(a.lower):
		direction = common.DirectionBuy
	case index.Gt(a.upper):
		direction = common.DirectionSell
	default:
		return Advice{}
	}

	stopLoss, takeProfit := protectiveLevels(direction, tick, info, a.stopPoints, a.profitPoints)
	return Advice{
		Valid:      true,
		Direction:  direction,
		StopLoss:   stopLoss,
		TakeProfit: takeProfit,
	}
}

func (a *RSIMeanReversion) index(closes []fixed.Point) fixed.Point {
	gains := fixed.Zero
	losses := fixed.Zero
	for idx := 1; idx < len(closes); idx++ {
		delta := closes[idx].Sub(closes[idx-1])
		if delta.IsPositive() {
			gains = gains.Add(delta)
		} else {
			losses = losses.Add(delta.Abs())
		}
	}

	if losses.IsZero() {
		if gains.IsZero() {
			return fixed.FromInt(50, 0)
		}
		return hundred
	}

	rs := gains.Div(losses)
	return hundred.Sub(hundred.Div(fixed.One.Add(rs)))
}
