// Package executor is the pipeline's only writer to the broker. It submits
// approved orders, confirms fills against the deal history and emits the
// resulting execution or pending-order events.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/portfolio"
	"go.uber.org/zap"
)

const executorComponentName = "executor"

const (
	defaultConfirmAttempts = 5
	defaultConfirmBackoff  = 500 * time.Millisecond
)

type EventPoster interface {
	Post(id bus.EventId, data interface{}) error
}

type Executor struct {
	logger *zap.Logger
	poster EventPoster
	broker exchange.Broker
	book   *portfolio.Portfolio

	confirmAttempts int
	confirmBackoff  time.Duration
}

type Option func(*Executor)

// WithConfirmation tunes the deal-confirmation polling.
func WithConfirmation(attempts int, backoff time.Duration) Option {
	return func(e *Executor) {
		if attempts > 0 {
			e.confirmAttempts = attempts
		}
		if backoff >= 0 {
			e.confirmBackoff = backoff
		}
	}
}

func NewExecutor(logger *zap.Logger, poster EventPoster, broker exchange.Broker, book *portfolio.Portfolio, options ...Option) *Executor {
	e := &Executor{
		logger:          logger,
		poster:          poster,
		broker:          broker,
		book:            book,
		confirmAttempts: defaultConfirmAttempts,
		confirmBackoff:  defaultConfirmBackoff,
	}
	for _, option := range options {
		option(e)
	}
	return e
}

// OnOrder executes the order. Broker rejections drop the order with a log
// line; the queue keeps moving.
func (e *Executor) OnOrder(ctx context.Context, order common.Order) {
	if err := e.Execute(ctx, order); err != nil {
		e.logger.Warn("order execution failed",
			zap.String("symbol", order.Symbol),
			zap.String("direction", order.Direction.String()),
			zap.Error(err))
	}
}

// Execute routes a market order through submission and fill confirmation, and
// a limit or stop order through pending placement. The corresponding event is
// posted on success.
func (e *Executor) Execute(ctx context.Context, order common.Order) error {
	req := exchange.OrderRequest{
		Symbol:     order.Symbol,
		Direction:  order.Direction,
		Type:       order.TargetOrder,
		Volume:     order.Volume,
		Price:      order.TargetPrice,
		StopLoss:   order.StopLoss,
		TakeProfit: order.TakeProfit,
		Magic:      order.Magic,
		Comment:    order.Source,
	}

	if order.TargetOrder == common.OrderTypeMarket {
		return e.executeMarket(ctx, order, req)
	}
	return e.executePending(ctx, order, req)
}

func (e *Executor) executeMarket(ctx context.Context, order common.Order, req exchange.OrderRequest) error {
	result, err := e.broker.SubmitMarketOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("unable to submit market order: %w", err)
	}
	if !result.Retcode.Success() {
		return fmt.Errorf("market order rejected: retcode %d, %s", result.Retcode, result.Comment)
	}

	execution := common.Execution{
		Direction:   order.Direction,
		FillPrice:   result.Price,
		FillTime:    order.TimeStamp,
		Volume:      result.Volume,
		Source:      executorComponentName,
		Symbol:      order.Symbol,
		ExecutionId: order.ExecutionId,
		TraceID:     order.TraceID,
		TimeStamp:   order.TimeStamp,
	}

	if deal, err := e.confirmDeal(ctx, result.OrderId); err != nil {
		e.logger.Warn("fill not confirmed, falling back to submission price",
			zap.Int64("order_id", result.OrderId),
			zap.Error(err))
	} else {
		execution.FillPrice = deal.Price
		execution.FillTime = deal.Time
		execution.Volume = deal.Volume
	}

	e.logger.Info("order filled",
		zap.String("symbol", order.Symbol),
		zap.String("direction", order.Direction.String()),
		zap.String("price", execution.FillPrice.String()),
		zap.String("volume", execution.Volume.String()))

	if err := e.poster.Post(bus.ExecutionEvent, execution); err != nil {
		e.logger.Warn("unable to post execution", zap.Error(err))
	}
	return nil
}

func (e *Executor) executePending(ctx context.Context, order common.Order, req exchange.OrderRequest) error {
	result, err := e.broker.SubmitPendingOrder(ctx, req)
	if err != nil {
		return fmt.Errorf("unable to submit pending order: %w", err)
	}
	if !result.Retcode.Success() {
		return fmt.Errorf("pending order rejected: retcode %d, %s", result.Retcode, result.Comment)
	}

	pending := common.PendingOrder{
		Direction:   order.Direction,
		TargetOrder: order.TargetOrder,
		TargetPrice: result.Price,
		Magic:       order.Magic,
		StopLoss:    order.StopLoss,
		TakeProfit:  order.TakeProfit,
		Volume:      result.Volume,
		Source:      executorComponentName,
		Symbol:      order.Symbol,
		ExecutionId: order.ExecutionId,
		TraceID:     order.TraceID,
		TimeStamp:   order.TimeStamp,
	}

	e.logger.Info("pending order placed",
		zap.String("symbol", order.Symbol),
		zap.String("type", order.TargetOrder.String()),
		zap.Int64("order_id", result.OrderId))

	if err := e.poster.Post(bus.PendingOrderEvent, pending); err != nil {
		e.logger.Warn("unable to post pending order event", zap.Error(err))
	}
	return nil
}

// confirmDeal polls the deal history for the submitted order. The first check
// runs immediately, the backoff applies between attempts.
func (e *Executor) confirmDeal(ctx context.Context, orderId int64) (exchange.Deal, error) {
	for attempt := 0; attempt < e.confirmAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return exchange.Deal{}, ctx.Err()
			case <-time.After(e.confirmBackoff):
			}
		}

		deal, err := e.broker.DealFor(ctx, orderId)
		if err == nil {
			return deal, nil
		}
		if !errors.Is(err, exchange.ErrDealNotFound) {
			return exchange.Deal{}, err
		}
	}
	return exchange.Deal{}, exchange.ErrDealNotFound
}

// ClosePositionByTicket closes one position and emits the closing fill as an
// execution event.
func (e *Executor) ClosePositionByTicket(ctx context.Context, ticket common.PositionId) error {
	positions, err := e.book.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("unable to read open positions: %w", err)
	}
	for _, position := range positions {
		if position.Id == ticket {
			return e.closePosition(ctx, position)
		}
	}
	return fmt.Errorf("position %d not found in portfolio scope", ticket)
}

func (e *Executor) closePosition(ctx context.Context, position common.Position) error {
	result, err := e.broker.ClosePosition(ctx, position.Id)
	if err != nil {
		return fmt.Errorf("unable to close position %d: %w", position.Id, err)
	}
	if !result.Retcode.Success() {
		return fmt.Errorf("close of position %d rejected: retcode %d, %s", position.Id, result.Retcode, result.Comment)
	}

	direction := common.DirectionSell
	if position.Side == common.PositionSideShort {
		direction = common.DirectionBuy
	}

	execution := common.Execution{
		Direction:   direction,
		FillPrice:   result.Price,
		FillTime:    time.Now(),
		Volume:      result.Volume,
		Source:      executorComponentName,
		Symbol:      position.Symbol,
		ExecutionId: position.ExecutionId,
		TraceID:     position.TraceID,
		TimeStamp:   time.Now(),
	}

	if deal, err := e.confirmDeal(ctx, result.OrderId); err != nil {
		e.logger.Warn("closing fill not confirmed, falling back to close result",
			zap.Int64("order_id", result.OrderId),
			zap.Error(err))
	} else {
		execution.FillPrice = deal.Price
		execution.FillTime = deal.Time
		execution.Volume = deal.Volume
	}

	if err := e.poster.Post(bus.ExecutionEvent, execution); err != nil {
		e.logger.Warn("unable to post closing execution", zap.Error(err))
	}
	return nil
}

// CloseAllLongBySymbol flattens every long position for the symbol within the
// portfolio scope.
func (e *Executor) CloseAllLongBySymbol(ctx context.Context, symbol string) error {
	return e.closeAllBySide(ctx, symbol, common.PositionSideLong)
}

// CloseAllShortBySymbol flattens every short position for the symbol within
// the portfolio scope.
func (e *Executor) CloseAllShortBySymbol(ctx context.Context, symbol string) error {
	return e.closeAllBySide(ctx, symbol, common.PositionSideShort)
}

func (e *Executor) closeAllBySide(ctx context.Context, symbol string, side common.PositionSide) error {
	positions, err := e.book.OpenPositions(ctx)
	if err != nil {
		return fmt.Errorf("unable to read open positions: %w", err)
	}

	matched := 0
	var errs []error
	for _, position := range positions {
		if position.Side != side || !strings.EqualFold(position.Symbol, symbol) {
			continue
		}
		matched++
		if err := e.closePosition(ctx, position); err != nil {
			errs = append(errs, err)
			continue
		}
		e.logger.Info("position flattened",
			zap.Int64("ticket", position.Id),
			zap.String("symbol", position.Symbol),
			zap.String("side", position.Side.String()))
	}
	if matched == 0 {
		e.logger.Debug("no positions to flatten",
			zap.String("symbol", symbol),
			zap.String("side", side.String()))
	}
	return errors.Join(errs...)
}

func (e *Executor) CancelPendingOrder(ctx context.Context, ticket int64) error {
	result, err := e.broker.CancelPendingOrder(ctx, ticket)
	if err != nil {
		return fmt.Errorf("unable to cancel pending order %d: %w", ticket, err)
	}
	if !result.Retcode.Success() {
		return fmt.Errorf("cancel of pending order %d rejected: retcode %d, %s", ticket, result.Retcode, result.Comment)
	}
	return nil
}
