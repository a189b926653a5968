package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"go.uber.org/zap"
)

// Poller posts a data event whenever a watched symbol has a closed bar newer
// than the last one seen. Live sessions call Poll from the drain-loop
// callback between queue drains.
type Poller struct {
	logger  *zap.Logger
	poster  *bus.Router
	market  exchange.MarketData
	symbols []string

	lastBarTime map[string]time.Time
}

func NewPoller(logger *zap.Logger, poster *bus.Router, market exchange.MarketData, symbols ...string) *Poller {
	return &Poller{
		logger:      logger,
		poster:      poster,
		market:      market,
		symbols:     symbols,
		lastBarTime: make(map[string]time.Time),
	}
}

func (p *Poller) Poll(ctx context.Context) error {
	for _, symbol := range p.symbols {
		bars, err := p.market.LatestClosedBars(ctx, symbol, 1)
		if err != nil {
			if errors.Is(err, exchange.ErrNoData) {
				continue
			}
			return fmt.Errorf("unable to poll bars for %s: %w", symbol, err)
		}

		latest := bars[len(bars)-1]
		if !latest.OpenTime.After(p.lastBarTime[symbol]) {
			continue
		}
		p.lastBarTime[symbol] = latest.OpenTime

		if err := p.poster.Post(bus.DataEvent, latest); err != nil {
			p.logger.Warn("unable to post polled bar",
				zap.String("symbol", symbol), zap.Error(err))
		}
	}
	return nil
}
