package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

var forexCrosses = []string{
	"AUDCAD", "AUDCHF", "AUDJPY", "AUDNZD", "AUDUSD", "CADCHF", "CADJPY", "CHFJPY",
	"EURCAD", "EURCHF", "EURGBP", "EURJPY", "EURNZD", "EURUSD", "GBPCAD", "GBPCHF",
	"GBPJPY", "GBPNZD", "GBPUSD", "NZDCAD", "NZDCHF", "NZDJPY", "NZDUSD", "USDCAD",
	"USDCHF", "USDJPY",
}

// ConvertAmount translates an amount quoted in one currency into another via
// the matching forex cross, using its latest bid.
func ConvertAmount(ctx context.Context, md MarketData, amount fixed.Point, from, to string) (fixed.Point, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	if from == to {
		return amount, nil
	}

	cross := ""
	for _, symbol := range forexCrosses {
		if strings.Contains(symbol, from) && strings.Contains(symbol, to) {
			cross = symbol
			break
		}
	}
	if cross == "" {
		return fixed.Zero, fmt.Errorf("no conversion pair for %s/%s: %w", from, to, ErrUnknownSymbol)
	}

	tick, err := md.LatestTick(ctx, cross)
	if err != nil {
		return fixed.Zero, fmt.Errorf("conversion tick for %s: %w", cross, err)
	}

	if cross[:3] == to {
		return amount.Div(tick.Bid), nil
	}
	return amount.Mul(tick.Bid), nil
}
