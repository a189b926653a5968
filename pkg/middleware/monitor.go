package middleware

import (
	"context"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

type MonitorFlags uint16

//goland:noinspection GoUnusedConst
const (
	MonitorNone MonitorFlags = 1 << iota
	MonitorAll
	MonitorBars
	MonitorDecisions
	MonitorSizings
	MonitorOrders
	MonitorExecutions
	MonitorPendingOrders
)

// Monitor logs the events it is wired around, gated by flags so a backtest
// can run quiet and a live session verbose without rewiring.
type Monitor struct {
	logger *zap.Logger
	flags  MonitorFlags
}

func NewMonitor(logger *zap.Logger, flags MonitorFlags) *Monitor {
	return &Monitor{
		logger: logger,
		flags:  flags,
	}
}

func (m *Monitor) enabled(flag MonitorFlags) bool {
	return m.flags&flag != 0 || m.flags&MonitorAll != 0
}

func (m *Monitor) WithData(handler bus.DataEventHandler) bus.DataEventHandler {
	return func(ctx context.Context, bar common.Bar) {
		if m.enabled(MonitorBars) {
			m.logger.Info("event", zap.Any("bar", bar))
		}
		handler(ctx, bar)
	}
}

func (m *Monitor) WithDecision(handler bus.DecisionEventHandler) bus.DecisionEventHandler {
	return func(ctx context.Context, decision common.Decision) {
		if m.enabled(MonitorDecisions) {
			m.logger.Info("event", zap.Any("decision", decision))
		}
		handler(ctx, decision)
	}
}

func (m *Monitor) WithSizing(handler bus.SizingEventHandler) bus.SizingEventHandler {
	return func(ctx context.Context, sizing common.Sizing) {
		if m.enabled(MonitorSizings) {
			m.logger.Info("event", zap.Any("sizing", sizing))
		}
		handler(ctx, sizing)
	}
}

func (m *Monitor) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, order common.Order) {
		if m.enabled(MonitorOrders) {
			m.logger.Info("event", zap.Any("order", order))
		}
		handler(ctx, order)
	}
}

func (m *Monitor) WithExecution(handler bus.ExecutionEventHandler) bus.ExecutionEventHandler {
	return func(ctx context.Context, execution common.Execution) {
		if m.enabled(MonitorExecutions) {
			m.logger.Info("event", zap.Any("execution", execution))
		}
		handler(ctx, execution)
	}
}

func (m *Monitor) WithPendingOrder(handler bus.PendingOrderEventHandler) bus.PendingOrderEventHandler {
	return func(ctx context.Context, pending common.PendingOrder) {
		if m.enabled(MonitorPendingOrders) {
			m.logger.Info("event", zap.Any("pending_order", pending))
		}
		handler(ctx, pending)
	}
}
