package sandbox

import (
	"context"
	"strings"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
)

func (s *Simulator) LatestClosedBars(_ context.Context, symbol string, count int) ([]common.Bar, error) {
	bars := s.history[strings.ToUpper(symbol)]
	if len(bars) == 0 {
		return nil, exchange.ErrNoData
	}
	if count <= 0 {
		count = 1
	}
	if count > len(bars) {
		count = len(bars)
	}
	out := make([]common.Bar, count)
	copy(out, bars[len(bars)-count:])
	return out, nil
}

func (s *Simulator) LatestTick(_ context.Context, symbol string) (common.Tick, error) {
	tick, ok := s.lastTickMap[strings.ToUpper(symbol)]
	if !ok {
		return common.Tick{}, exchange.ErrNoData
	}
	return tick, nil
}
