package middleware

import (
	"context"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

type Telemetry struct {
	logger *zap.Logger

	dataEventCounter         int64
	decisionEventCounter     int64
	sizingEventCounter       int64
	orderEventCounter        int64
	executionEventCounter    int64
	pendingOrderEventCounter int64
}

func NewTelemetry(logger *zap.Logger) *Telemetry {
	return &Telemetry{
		logger: logger,
	}
}

func (t *Telemetry) WithData(handler bus.DataEventHandler) bus.DataEventHandler {
	return func(ctx context.Context, bar common.Bar) {
		t.dataEventCounter++
		handler(ctx, bar)
	}
}

func (t *Telemetry) WithDecision(handler bus.DecisionEventHandler) bus.DecisionEventHandler {
	return func(ctx context.Context, decision common.Decision) {
		t.decisionEventCounter++
		handler(ctx, decision)
	}
}

func (t *Telemetry) WithSizing(handler bus.SizingEventHandler) bus.SizingEventHandler {
	return func(ctx context.Context, sizing common.Sizing) {
		t.sizingEventCounter++
		handler(ctx, sizing)
	}
}

func (t *Telemetry) WithOrder(handler bus.OrderEventHandler) bus.OrderEventHandler {
	return func(ctx context.Context, order common.Order) {
		t.orderEventCounter++
		handler(ctx, order)
	}
}

func (t *Telemetry) WithExecution(handler bus.ExecutionEventHandler) bus.ExecutionEventHandler {
	return func(ctx context.Context, execution common.Execution) {
		t.executionEventCounter++
		handler(ctx, execution)
	}
}

func (t *Telemetry) WithPendingOrder(handler bus.PendingOrderEventHandler) bus.PendingOrderEventHandler {
	return func(ctx context.Context, pending common.PendingOrder) {
		t.pendingOrderEventCounter++
		handler(ctx, pending)
	}
}

func (t *Telemetry) PrintStatistics() {
	t.logger.Info("event statistics",
		zap.Int64("data_events", t.dataEventCounter),
		zap.Int64("decision_events", t.decisionEventCounter),
		zap.Int64("sizing_events", t.sizingEventCounter),
		zap.Int64("order_events", t.orderEventCounter),
		zap.Int64("execution_events", t.executionEventCounter),
		zap.Int64("pending_order_events", t.pendingOrderEventCounter))
}
