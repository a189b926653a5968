package common

import (
	"time"

	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type Direction int
type OrderType int

const (
	DirectionBuy Direction = iota
	DirectionSell
)

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
)

func (d Direction) String() string {
	if d == DirectionBuy {
		return "BUY"
	}
	return "SELL"
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "MARKET"
	case OrderTypeLimit:
		return "LIMIT"
	default:
		return "STOP"
	}
}

// Decision is the strategy stage output. From here on every payload carries
// the originating symbol and the magic number scoping it to one strategy
// instance. There is no per-decision id threading the stages, stages re-read
// live position state instead of trusting counts captured earlier.
type Decision struct {
	Direction   Direction   `json:"direction"`
	TargetOrder OrderType   `json:"target_order"`
	TargetPrice fixed.Point `json:"target_price"`
	Magic       int64       `json:"magic"`
	StopLoss    fixed.Point `json:"stop_loss"`
	TakeProfit  fixed.Point `json:"take_profit"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// Sizing is a Decision with the resolved volume.
type Sizing struct {
	Direction   Direction   `json:"direction"`
	TargetOrder OrderType   `json:"target_order"`
	TargetPrice fixed.Point `json:"target_price"`
	Magic       int64       `json:"magic"`
	StopLoss    fixed.Point `json:"stop_loss"`
	TakeProfit  fixed.Point `json:"take_profit"`
	Volume      fixed.Point `json:"volume"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// Order has the same shape as Sizing. The distinction is pipeline position,
// an Order has passed the risk assessment.
type Order struct {
	Direction   Direction   `json:"direction"`
	TargetOrder OrderType   `json:"target_order"`
	TargetPrice fixed.Point `json:"target_price"`
	Magic       int64       `json:"magic"`
	StopLoss    fixed.Point `json:"stop_loss"`
	TakeProfit  fixed.Point `json:"take_profit"`
	Volume      fixed.Point `json:"volume"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// Execution confirms a filled market order or a position close.
type Execution struct {
	Direction Direction   `json:"direction"`
	FillPrice fixed.Point `json:"fill_price"`
	FillTime  time.Time   `json:"fill_time"`
	Volume    fixed.Point `json:"volume"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}

// PendingOrder denotes a resting limit or stop order the broker accepted but
// has not filled yet.
type PendingOrder struct {
	Direction   Direction   `json:"direction"`
	TargetOrder OrderType   `json:"target_order"`
	TargetPrice fixed.Point `json:"target_price"`
	Magic       int64       `json:"magic"`
	StopLoss    fixed.Point `json:"stop_loss"`
	TakeProfit  fixed.Point `json:"take_profit"`
	Volume      fixed.Point `json:"volume"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
