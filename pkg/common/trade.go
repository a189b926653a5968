package common

import (
	"time"

	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

// Trade is one closed round trip in the backtest trade log.
type Trade struct {
	Symbol     string       `json:"symbol"`
	Side       PositionSide `json:"side"`
	Volume     fixed.Point  `json:"volume"`
	EntryPrice fixed.Point  `json:"entry_price"`
	ExitPrice  fixed.Point  `json:"exit_price"`
	EntryTime  time.Time    `json:"entry_time"`
	ExitTime   time.Time    `json:"exit_time"`
	Profit     fixed.Point  `json:"profit"`
}
