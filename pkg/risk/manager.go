package risk

import (
	"context"
	"fmt"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/portfolio"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

const riskComponentName = "risk.manager"

type EventPoster interface {
	Post(id bus.EventId, data interface{}) error
}

type SymbolInfoProvider interface {
	SymbolInfo(symbol string) (exchange.SymbolInfo, error)
}

type accountReader interface {
	Account(ctx context.Context) (common.Account, error)
}

// Manager turns sizings into orders when every policy approves. Exposure is
// the signed sum of position notionals in the account currency, longs
// positive, shorts negative; the proposed order is added on top.
type Manager struct {
	logger   *zap.Logger
	poster   EventPoster
	market   exchange.MarketData
	symbols  SymbolInfoProvider
	account  accountReader
	book     *portfolio.Portfolio
	policies []Policy
}

func NewManager(logger *zap.Logger, poster EventPoster, market exchange.MarketData, symbols SymbolInfoProvider,
	account accountReader, book *portfolio.Portfolio, policies ...Policy) *Manager {
	return &Manager{
		logger:   logger,
		poster:   poster,
		market:   market,
		symbols:  symbols,
		account:  account,
		book:     book,
		policies: policies,
	}
}

// OnSizing assesses the sizing and posts the order event. A policy rejection
// drops the sizing with a log line.
func (m *Manager) OnSizing(ctx context.Context, sizing common.Sizing) {
	order, err := m.Assess(ctx, sizing)
	if err != nil {
		m.logger.Warn("sizing rejected by risk assessment",
			zap.String("symbol", sizing.Symbol),
			zap.Error(err))
		return
	}
	if err := m.poster.Post(bus.OrderEvent, order); err != nil {
		m.logger.Warn("unable to post order", zap.Error(err))
	}
}

func (m *Manager) Assess(ctx context.Context, sizing common.Sizing) (common.Order, error) {
	account, err := m.account.Account(ctx)
	if err != nil {
		return common.Order{}, fmt.Errorf("unable to fetch account state: %w", err)
	}

	exposureBefore, err := m.openExposure(ctx)
	if err != nil {
		return common.Order{}, err
	}

	proposed, err := m.proposedExposure(ctx, sizing)
	if err != nil {
		return common.Order{}, err
	}
	exposureAfter := exposureBefore.Add(proposed)

	for _, policy := range m.policies {
		if err := policy.Approve(account, exposureBefore, exposureAfter); err != nil {
			return common.Order{}, fmt.Errorf("policy %s: %w", policy.Name(), err)
		}
	}

	return common.Order{
		Direction:   sizing.Direction,
		TargetOrder: sizing.TargetOrder,
		TargetPrice: sizing.TargetPrice,
		Magic:       sizing.Magic,
		StopLoss:    sizing.StopLoss,
		TakeProfit:  sizing.TakeProfit,
		Volume:      sizing.Volume,
		Source:      riskComponentName,
		Symbol:      sizing.Symbol,
		ExecutionId: sizing.ExecutionId,
		TraceID:     sizing.TraceID,
		TimeStamp:   sizing.TimeStamp,
	}, nil
}

func (m *Manager) openExposure(ctx context.Context) (fixed.Point, error) {
	positions, err := m.book.OpenPositions(ctx)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to read open positions: %w", err)
	}

	total := fixed.Zero
	for _, position := range positions {
		signed := position.Volume
		if position.Side == common.PositionSideShort {
			signed = signed.Neg()
		}
		notional, err := m.notional(ctx, position.Symbol, signed)
		if err != nil {
			return fixed.Zero, err
		}
		total = total.Add(notional)
	}
	return total, nil
}

func (m *Manager) proposedExposure(ctx context.Context, sizing common.Sizing) (fixed.Point, error) {
	signed := sizing.Volume
	if sizing.Direction == common.DirectionSell {
		signed = signed.Neg()
	}
	return m.notional(ctx, sizing.Symbol, signed)
}

// notional is signedVolume x contract size x bid, converted to the account
// currency.
func (m *Manager) notional(ctx context.Context, symbol string, signedVolume fixed.Point) (fixed.Point, error) {
	info, err := m.symbols.SymbolInfo(symbol)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to fetch symbol info: %w", err)
	}
	tick, err := m.market.LatestTick(ctx, symbol)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to fetch latest tick: %w", err)
	}
	account, err := m.account.Account(ctx)
	if err != nil {
		return fixed.Zero, fmt.Errorf("unable to fetch account state: %w", err)
	}

	quoteNotional := signedVolume.Mul(info.ContractSize).Mul(tick.Bid)
	return exchange.ConvertAmount(ctx, m.market, quoteNotional, info.QuoteCurrency, account.Currency)
}
