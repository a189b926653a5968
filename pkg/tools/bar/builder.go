// Package bar aggregates ticks into fixed-period OHLC bars. The builder is
// sink-driven: each completed bar is handed to a callback, whether that is a
// queue post or the simulator's bar intake.
package bar

import (
	"context"
	"time"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

const builderComponentName = "bar-builder"

type PriceMode int

const (
	PriceModeAsk PriceMode = iota
	PriceModeBid
	PriceModeMid
)

// Sink receives every completed bar in tick order.
type Sink func(ctx context.Context, bar common.Bar)

type config struct {
	symbol   string
	period   common.BarPeriod
	mode     PriceMode
	tickSize fixed.Point
}

type construction struct {
	bar       common.Bar
	spreadSum fixed.Point
	tickCount int64
}

type Option func(*Builder)

// With registers one symbol/period aggregation. tickSize expresses the bar
// spread in ticks; pass zero to skip spread tracking. Registering the same
// symbol and period twice is a programming error.
func With(symbol string, period common.BarPeriod, mode PriceMode, tickSize fixed.Point) Option {
	return func(b *Builder) {
		for _, c := range b.configs {
			if c.symbol == symbol && c.period == period {
				panic("bar config already exists")
			}
		}
		b.configs = append(b.configs, config{symbol, period, mode, tickSize})
	}
}

type Builder struct {
	logger *zap.Logger
	sink   Sink

	configs        []config
	inConstruction []construction
}

func NewBuilder(logger *zap.Logger, sink Sink, options ...Option) *Builder {
	b := &Builder{
		logger: logger,
		sink:   sink,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

func (b *Builder) OnTick(ctx context.Context, tick common.Tick) {
	for _, c := range b.configs {
		if c.symbol == tick.Symbol {
			b.construct(ctx, c, tick)
		}
	}
}

// Flush completes every bar still in construction. Called at the end of a
// tick replay so the trailing partial bars are not lost.
func (b *Builder) Flush(ctx context.Context) {
	for _, cons := range b.inConstruction {
		b.sink(ctx, cons.finalized())
	}
	b.inConstruction = nil
}

func (b *Builder) construct(ctx context.Context, c config, tick common.Tick) {
	// A tick past the bar's period boundary closes the bar before the tick
	// is applied.
	for i, cons := range b.inConstruction {
		if cons.bar.Symbol == c.symbol && cons.bar.Period == c.period {
			boundary := cons.bar.OpenTime.Add(time.Duration(c.period))
			if !tick.TimeStamp.Before(boundary) {
				completed := cons.finalized()
				b.logger.Debug("bar completed",
					zap.String("symbol", completed.Symbol),
					zap.Time("open_time", completed.OpenTime))
				b.sink(ctx, completed)
				b.inConstruction = append(b.inConstruction[:i], b.inConstruction[i+1:]...)
			}
			break
		}
	}

	price := priceOf(tick, c.mode)
	spread := fixed.Zero
	if c.tickSize.IsPositive() {
		spread = tick.Ask.Sub(tick.Bid).Div(c.tickSize)
	}

	for i := range b.inConstruction {
		cons := &b.inConstruction[i]
		if cons.bar.Symbol != c.symbol || cons.bar.Period != c.period {
			continue
		}

		if price.Gt(cons.bar.High) {
			cons.bar.High = price
		}
		if price.Lt(cons.bar.Low) {
			cons.bar.Low = price
		}
		cons.bar.Close = price
		cons.bar.TimeStamp = tick.TimeStamp
		cons.spreadSum = cons.spreadSum.Add(spread)
		cons.tickCount++
		return
	}

	b.inConstruction = append(b.inConstruction, construction{
		bar: common.Bar{
			Source:      builderComponentName,
			Symbol:      c.symbol,
			ExecutionId: utility.GetExecutionID(),
			TraceID:     utility.CreateTraceID(),
			TimeStamp:   tick.TimeStamp,
			OpenTime:    tick.TimeStamp.Truncate(time.Duration(c.period)),
			Period:      c.period,
			Open:        price,
			High:        price,
			Low:         price,
			Close:       price,
		},
		spreadSum: spread,
		tickCount: 1,
	})
}

func (c construction) finalized() common.Bar {
	bar := c.bar
	bar.TickVolume = fixed.FromInt64(c.tickCount, 0)
	if c.tickCount > 0 {
		bar.Spread = c.spreadSum.DivInt64(c.tickCount)
	}
	return bar
}

func priceOf(tick common.Tick, mode PriceMode) fixed.Point {
	switch mode {
	case PriceModeAsk:
		return tick.Ask
	case PriceModeBid:
		return tick.Bid
	case PriceModeMid:
		return tick.Ask.Add(tick.Bid).DivInt(2)
	default:
		panic("invalid price mode")
	}
}
