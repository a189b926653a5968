package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

var (
	ErrNoData        = errors.New("no data available")
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrDealNotFound  = errors.New("deal not found")
)

// MarketData is the narrow quote surface every pipeline stage reads from.
type MarketData interface {
	// LatestClosedBars returns the newest count closed bars in chronological
	// order. ErrNoData when the symbol yields nothing.
	LatestClosedBars(ctx context.Context, symbol string, count int) ([]common.Bar, error)
	LatestTick(ctx context.Context, symbol string) (common.Tick, error)
}

// Broker is the execution and bookkeeping surface. Position state is
// authoritative here, the core only holds live views.
type Broker interface {
	SymbolInfo(symbol string) (SymbolInfo, error)
	Account(ctx context.Context) (common.Account, error)
	OpenPositions(ctx context.Context) ([]common.Position, error)

	SubmitMarketOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	SubmitPendingOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	CancelPendingOrder(ctx context.Context, ticket int64) (OrderResult, error)
	ClosePosition(ctx context.Context, ticket common.PositionId) (OrderResult, error)

	// DealFor looks up the fill generated by a previously submitted order.
	// ErrDealNotFound until the broker has journaled it.
	DealFor(ctx context.Context, orderId int64) (Deal, error)
}

type Retcode int

const (
	RetcodeDone Retcode = iota
	RetcodeDonePartial
	RetcodeRejected
	RetcodeInvalidRequest
	RetcodeNoMoney
)

func (c Retcode) Success() bool {
	return c == RetcodeDone || c == RetcodeDonePartial
}

type OrderRequest struct {
	Symbol     string
	Direction  common.Direction
	Type       common.OrderType
	Volume     fixed.Point
	Price      fixed.Point
	StopLoss   fixed.Point
	TakeProfit fixed.Point
	Magic      int64
	Comment    string
}

type OrderResult struct {
	Retcode Retcode
	OrderId int64
	Price   fixed.Point
	Volume  fixed.Point
	Comment string
}

type Deal struct {
	Ticket   int64
	OrderId  int64
	Position common.PositionId
	Price    fixed.Point
	Volume   fixed.Point
	Time     time.Time
}
