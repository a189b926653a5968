package common

import (
	"time"

	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type PositionSide int
type PositionId = int64

const (
	PositionSideLong PositionSide = iota
	PositionSideShort
)

func (s PositionSide) String() string {
	if s == PositionSideLong {
		return "LONG"
	}
	return "SHORT"
}

// Position is owned by the broker. The core only ever sees a live view
// fetched fresh on every query and never mutates it.
type Position struct {
	Id         PositionId   `json:"id"`
	Side       PositionSide `json:"side"`
	Volume     fixed.Point  `json:"volume"`
	OpenPrice  fixed.Point  `json:"open_price"`
	OpenTime   time.Time    `json:"open_time"`
	StopLoss   fixed.Point  `json:"stop_loss"`
	TakeProfit fixed.Point  `json:"take_profit"`
	Magic      int64        `json:"magic"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
