// Package notification pushes trade confirmations to external channels.
package notification

import (
	"context"
	"fmt"

	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

// Channel delivers one message to one destination.
type Channel interface {
	Name() string
	Send(ctx context.Context, title, message string) error
}

// Service formats pipeline terminal events and fans them out to every
// configured channel. Delivery failures are logged, never propagated, a down
// notifier must not stall trading.
type Service struct {
	logger   *zap.Logger
	channels []Channel
}

func NewService(logger *zap.Logger, channels ...Channel) *Service {
	return &Service{
		logger:   logger,
		channels: channels,
	}
}

func (s *Service) OnExecution(ctx context.Context, execution common.Execution) {
	s.broadcast(ctx, "Order filled", fmt.Sprintf("%s %s %s filled at %s (%s)",
		execution.Direction.String(),
		execution.Volume.String(),
		execution.Symbol,
		execution.FillPrice.String(),
		execution.FillTime.UTC().Format("2006-01-02 15:04:05")))
}

func (s *Service) OnPendingOrder(ctx context.Context, pending common.PendingOrder) {
	s.broadcast(ctx, "Pending order placed", fmt.Sprintf("%s %s %s %s resting at %s",
		pending.TargetOrder.String(),
		pending.Direction.String(),
		pending.Volume.String(),
		pending.Symbol,
		pending.TargetPrice.String()))
}

func (s *Service) broadcast(ctx context.Context, title, message string) {
	for _, channel := range s.channels {
		if err := channel.Send(ctx, title, message); err != nil {
			s.logger.Warn("notification delivery failed",
				zap.String("channel", channel.Name()),
				zap.Error(err))
		}
	}
}
