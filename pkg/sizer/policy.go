// Package sizer resolves a decision into a broker-valid volume. A Policy
// proposes the raw volume, the Sizer normalizes it against the symbol's
// volume constraints.
package sizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

// ErrInvalidRisk rejects risk input the policy cannot size from: a risk
// percent outside (0, 100] or a decision without a positive stop loss.
var ErrInvalidRisk = errors.New("invalid risk input")

// ErrDegenerateStop rejects risk-based sizing when the stop loss sits on the
// entry price, making the loss per lot zero.
var ErrDegenerateStop = errors.New("degenerate stop loss distance")

type Policy interface {
	Name() string
	Volume(ctx context.Context, decision common.Decision, info exchange.SymbolInfo) (fixed.Point, error)
}

// Fixed sizes every decision at the same volume.
type Fixed struct {
	volume fixed.Point
}

func NewFixed(volume fixed.Point) *Fixed {
	return &Fixed{volume: volume}
}

func (p *Fixed) Name() string { return "fixed" }

func (p *Fixed) Volume(_ context.Context, _ common.Decision, _ exchange.SymbolInfo) (fixed.Point, error) {
	return p.volume, nil
}

// Minimum sizes every decision at the symbol's smallest tradable volume.
type Minimum struct{}

func NewMinimum() *Minimum { return &Minimum{} }

func (p *Minimum) Name() string { return "minimum" }

func (p *Minimum) Volume(_ context.Context, _ common.Decision, info exchange.SymbolInfo) (fixed.Point, error) {
	return info.VolumeMin, nil
}

type accountReader interface {
	Account(ctx context.Context) (common.Account, error)
}

// RiskPercent risks a fixed share of account equity per trade. The volume is
// the risk amount divided by the loss a one-lot position takes when price
// travels from entry to the stop loss, converted to the account currency.
type RiskPercent struct {
	account     accountReader
	market      exchange.MarketData
	riskPercent fixed.Point
}

func NewRiskPercent(account accountReader, market exchange.MarketData, riskPercent fixed.Point) *RiskPercent {
	return &RiskPercent{
		account:     account,
		market:      market,
		riskPercent: riskPercent,
	}
}

func (p *RiskPercent) Name() string { return "risk_percent" }

func (p *RiskPercent) Volume(ctx context.Context, decision common.Decision, info exchange.SymbolInfo) (fixed.Point, error) {
	if !p.riskPercent.IsPositive() || p.riskPercent.Gt(fixed.FromInt(100, 0)) {
		return fixed.Zero, ErrInvalidRisk
	}

	tick, err := p.market.LatestTick(ctx, decision.Symbol)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to fetch latest tick: %w", err)
	}

	entry := tick.Ask
	if decision.Direction == common.DirectionSell {
		entry = tick.Bid
	}

	if !decision.StopLoss.IsPositive() {
		return fixed.Zero, ErrInvalidRisk
	}
	stopDistance := entry.Sub(decision.StopLoss).Abs()
	if !stopDistance.IsPositive() {
		return fixed.Zero, ErrDegenerateStop
	}

	account, err := p.account.Account(ctx)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to fetch account state: %w", err)
	}

	// Loss per lot for the full stop distance, in quote currency.
	lossPerLotQuote := stopDistance.Mul(info.ContractSize)
	lossPerLot, err := exchange.ConvertAmount(ctx, p.market, lossPerLotQuote, info.QuoteCurrency, account.Currency)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to convert loss per lot: %w", err)
	}
	if !lossPerLot.IsPositive() {
		return fixed.Zero, ErrDegenerateStop
	}

	riskAmount := account.Equity.Mul(p.riskPercent).DivInt(100)
	return riskAmount.Div(lossPerLot), nil
}
