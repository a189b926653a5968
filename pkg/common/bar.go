package common

import (
	"time"

	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type BarPeriod time.Duration

const (
	BarPeriodM1  = BarPeriod(time.Minute)
	BarPeriodM5  = BarPeriod(5 * time.Minute)
	BarPeriodM15 = BarPeriod(15 * time.Minute)
	BarPeriodM30 = BarPeriod(30 * time.Minute)
	BarPeriodH1  = BarPeriod(time.Hour)
	BarPeriodH4  = BarPeriod(4 * time.Hour)
	BarPeriodD1  = BarPeriod(24 * time.Hour)
)

// Bar is one closed OHLCV record. Its TimeStamp doubles as the logical clock
// for sentiment cooldown windows, so backtests stay reproducible.
type Bar struct {
	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
	OpenTime    time.Time           `json:"open_time"`
	Period      BarPeriod           `json:"period"`
	Open        fixed.Point         `json:"open"`
	High        fixed.Point         `json:"high"`
	Low         fixed.Point         `json:"low"`
	Close       fixed.Point         `json:"close"`
	TickVolume  fixed.Point         `json:"tick_volume"`
	Volume      fixed.Point         `json:"volume"`
	Spread      fixed.Point         `json:"spread"`
}
