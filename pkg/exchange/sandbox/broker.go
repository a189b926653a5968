package sandbox

import (
	"context"
	"strings"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"go.uber.org/zap"
)

func (s *Simulator) SymbolInfo(symbol string) (exchange.SymbolInfo, error) {
	info, ok := s.symbolsMap[strings.ToUpper(symbol)]
	if !ok {
		return exchange.SymbolInfo{}, exchange.ErrUnknownSymbol
	}
	return info, nil
}

func (s *Simulator) Account(_ context.Context) (common.Account, error) {
	return common.Account{
		Currency: s.accountCurrency,
		Balance:  s.balance,
		Equity:   s.equity,
	}, nil
}

func (s *Simulator) OpenPositions(_ context.Context) ([]common.Position, error) {
	return s.snapshotPositions(), nil
}

func (s *Simulator) SubmitMarketOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	if _, ok := s.symbolsMap[symbol]; !ok {
		return exchange.OrderResult{Retcode: exchange.RetcodeInvalidRequest, Comment: "unknown symbol"}, nil
	}
	tick, ok := s.lastTickMap[symbol]
	if !ok {
		return exchange.OrderResult{Retcode: exchange.RetcodeRejected, Comment: "no quote"}, nil
	}
	if !req.Volume.IsPositive() {
		return exchange.OrderResult{Retcode: exchange.RetcodeInvalidRequest, Comment: "non-positive volume"}, nil
	}

	fillPrice := tick.Ask.Add(s.slippage)
	if req.Direction == common.DirectionSell {
		fillPrice = tick.Bid.Sub(s.slippage)
	}

	s.orderIdCounter++
	orderId := s.orderIdCounter
	s.openPosition(req, fillPrice, s.simulationTime, orderId)
	s.markToMarket(ctx)

	return exchange.OrderResult{
		Retcode: exchange.RetcodeDone,
		OrderId: orderId,
		Price:   fillPrice,
		Volume:  req.Volume,
	}, nil
}

func (s *Simulator) SubmitPendingOrder(_ context.Context, req exchange.OrderRequest) (exchange.OrderResult, error) {
	symbol := strings.ToUpper(req.Symbol)
	if _, ok := s.symbolsMap[symbol]; !ok {
		return exchange.OrderResult{Retcode: exchange.RetcodeInvalidRequest, Comment: "unknown symbol"}, nil
	}
	if req.Type == common.OrderTypeMarket {
		return exchange.OrderResult{Retcode: exchange.RetcodeInvalidRequest, Comment: "market order on pending path"}, nil
	}
	if !req.Volume.IsPositive() || !req.Price.IsPositive() {
		return exchange.OrderResult{Retcode: exchange.RetcodeInvalidRequest, Comment: "invalid volume or price"}, nil
	}

	s.orderIdCounter++
	s.pendingOrders = append(s.pendingOrders, &pendingOrder{orderId: s.orderIdCounter, req: req})

	return exchange.OrderResult{
		Retcode: exchange.RetcodeDone,
		OrderId: s.orderIdCounter,
		Price:   req.Price,
		Volume:  req.Volume,
	}, nil
}

func (s *Simulator) CancelPendingOrder(_ context.Context, ticket int64) (exchange.OrderResult, error) {
	for idx, pending := range s.pendingOrders {
		if pending.orderId == ticket {
			s.pendingOrders = append(s.pendingOrders[:idx], s.pendingOrders[idx+1:]...)
			return exchange.OrderResult{Retcode: exchange.RetcodeDone, OrderId: ticket}, nil
		}
	}
	return exchange.OrderResult{Retcode: exchange.RetcodeRejected, Comment: "pending order not found"}, nil
}

// ClosePosition settles one position at the current opposite quote, updates
// balance and equity and appends the round trip to the trade log.
func (s *Simulator) ClosePosition(ctx context.Context, ticket common.PositionId) (exchange.OrderResult, error) {
	for idx, position := range s.openPositions {
		if position.Id != ticket {
			continue
		}

		tick, ok := s.lastTickMap[strings.ToUpper(position.Symbol)]
		if !ok {
			return exchange.OrderResult{Retcode: exchange.RetcodeRejected, Comment: "no quote"}, nil
		}

		exitPrice := tick.Bid
		if position.Side == common.PositionSideShort {
			exitPrice = tick.Ask
		}

		profit, err := s.profit(ctx, *position, exitPrice)
		if err != nil {
			return exchange.OrderResult{}, err
		}

		s.balance = s.balance.Add(profit)
		s.trades = append(s.trades, common.Trade{
			Symbol:     position.Symbol,
			Side:       position.Side,
			Volume:     position.Volume,
			EntryPrice: position.OpenPrice,
			ExitPrice:  exitPrice,
			EntryTime:  position.OpenTime,
			ExitTime:   s.simulationTime,
			Profit:     profit,
		})

		s.openPositions = append(s.openPositions[:idx], s.openPositions[idx+1:]...)
		s.markToMarket(ctx)

		s.orderIdCounter++
		s.dealIdCounter++
		s.deals[s.orderIdCounter] = exchange.Deal{
			Ticket:   s.dealIdCounter,
			OrderId:  s.orderIdCounter,
			Position: ticket,
			Price:    exitPrice,
			Volume:   position.Volume,
			Time:     s.simulationTime,
		}

		s.logger.Info("position closed",
			zap.Int64("ticket", ticket),
			zap.String("symbol", position.Symbol),
			zap.String("profit", profit.Rescale(2).String()))

		return exchange.OrderResult{
			Retcode: exchange.RetcodeDone,
			OrderId: s.orderIdCounter,
			Price:   exitPrice,
			Volume:  position.Volume,
		}, nil
	}
	return exchange.OrderResult{Retcode: exchange.RetcodeRejected, Comment: "position not found"}, nil
}

func (s *Simulator) DealFor(_ context.Context, orderId int64) (exchange.Deal, error) {
	deal, ok := s.deals[orderId]
	if !ok {
		return exchange.Deal{}, exchange.ErrDealNotFound
	}
	return deal, nil
}
