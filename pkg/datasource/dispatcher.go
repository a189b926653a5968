// Package datasource feeds the event queue: a dispatcher replays stored bars
// for backtests, a poller watches a market-data surface for freshly closed
// bars in live sessions.
package datasource

import (
	"errors"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
)

// ErrEndOfData terminates a replay once the source is exhausted.
var ErrEndOfData = errors.New("end of data")

type BarSource interface {
	Next() (common.Bar, error)
}

// CreateBarDispatcher returns the drain-loop callback for a bar replay. Each
// invocation advances the source by exactly one bar, hands it to the
// observers (the simulator feed, typically) and posts the data event.
func CreateBarDispatcher(r *bus.Router, ds BarSource, observers ...func(common.Bar)) func() error {
	return func() error {
		bar, err := ds.Next()
		if err != nil {
			return err
		}
		for _, observer := range observers {
			observer(bar)
		}
		return r.Post(bus.DataEvent, bar)
	}
}
