package exchange

import (
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

type SymbolClass string

const (
	Forex SymbolClass = "forex"
)

type SymbolInfo struct {
	SymbolName    string
	Class         SymbolClass
	QuoteCurrency string
	Digits        int
	PipSize       fixed.Point
	TickSize      fixed.Point
	ContractSize  fixed.Point
	VolumeMin     fixed.Point
	VolumeMax     fixed.Point
	VolumeStep    fixed.Point
}
