package common

import (
	"time"

	"github.com/quantfwk/tradefwk/pkg/utility"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type Tick struct {
	Ask fixed.Point `json:"ask"`
	Bid fixed.Point `json:"bid"`

	Source      string              `json:"src,omitempty"`
	Symbol      string              `json:"symbol,omitempty"`
	ExecutionId utility.ExecutionID `json:"eid,omitempty"`
	TraceID     utility.TraceID     `json:"tid,omitempty"`
	TimeStamp   time.Time           `json:"ts"`
}
