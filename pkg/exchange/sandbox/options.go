package sandbox

import (
	"strings"

	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type Option func(*Simulator)

func WithSymbol(info exchange.SymbolInfo) Option {
	return func(s *Simulator) {
		s.symbolsMap[strings.ToUpper(info.SymbolName)] = info
	}
}

func WithSlippage(slippage fixed.Point) Option {
	return func(s *Simulator) {
		s.slippage = slippage
	}
}

// WithBarHistoryLimit bounds the per-symbol closed-bar history kept for
// LatestClosedBars queries.
func WithBarHistoryLimit(limit int) Option {
	return func(s *Simulator) {
		if limit > 0 {
			s.historyLimit = limit
		}
	}
}
