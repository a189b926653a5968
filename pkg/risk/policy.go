// Package risk gates sized orders against account-level limits. Policies see
// the signed exposure before and after the proposed order and the current
// account state; any policy rejection drops the order.
package risk

import (
	"errors"
	"fmt"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

// ErrNonPositiveEquity is a hard rejection: with no equity there is nothing
// to lever.
var ErrNonPositiveEquity = errors.New("account equity is not positive")

type Policy interface {
	Name() string
	Approve(account common.Account, exposureBefore, exposureAfter fixed.Point) error
}

// MaxLeverage caps |net exposure| / equity at a fixed factor.
type MaxLeverage struct {
	factor fixed.Point
}

func NewMaxLeverage(factor fixed.Point) *MaxLeverage {
	return &MaxLeverage{factor: factor}
}

func (p *MaxLeverage) Name() string { return "max_leverage" }

func (p *MaxLeverage) Approve(account common.Account, _, exposureAfter fixed.Point) error {
	if !account.Equity.IsPositive() {
		return ErrNonPositiveEquity
	}

	leverage := exposureAfter.Abs().Div(account.Equity)
	if leverage.Gt(p.factor) {
		return fmt.Errorf("leverage %s exceeds limit %s",
			leverage.Rescale(2).String(), p.factor.String())
	}
	return nil
}
