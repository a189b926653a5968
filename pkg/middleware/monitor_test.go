package middleware

import (
	"context"
	"testing"

	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

func TestMonitor_InvokesWrappedHandler(t *testing.T) {
	monitor := NewMonitor(zap.NewNop(), MonitorAll)
	ctx := context.Background()

	called := 0
	monitor.WithData(func(context.Context, common.Bar) { called++ })(ctx, common.Bar{})
	monitor.WithDecision(func(context.Context, common.Decision) { called++ })(ctx, common.Decision{})
	monitor.WithSizing(func(context.Context, common.Sizing) { called++ })(ctx, common.Sizing{})
	monitor.WithOrder(func(context.Context, common.Order) { called++ })(ctx, common.Order{})
	monitor.WithExecution(func(context.Context, common.Execution) { called++ })(ctx, common.Execution{})
	monitor.WithPendingOrder(func(context.Context, common.PendingOrder) { called++ })(ctx, common.PendingOrder{})

	if called != 6 {
		t.Errorf("Expected every wrapper to invoke its handler, got %d of 6", called)
	}
}

func TestMonitor_QuietFlagsStillDispatch(t *testing.T) {
	monitor := NewMonitor(zap.NewNop(), MonitorNone)
	ctx := context.Background()

	called := false
	monitor.WithOrder(func(context.Context, common.Order) { called = true })(ctx, common.Order{})

	if !called {
		t.Error("Disabled logging must not swallow the event")
	}
}

func TestTelemetry_CountsThroughNoopHandlers(t *testing.T) {
	telemetry := NewTelemetry(zap.NewNop())
	ctx := context.Background()

	telemetry.WithData(NoopDataHdl)(ctx, common.Bar{})
	telemetry.WithDecision(NoopDecisionHdl)(ctx, common.Decision{})
	telemetry.WithSizing(NoopSizingHdl)(ctx, common.Sizing{})
	telemetry.WithOrder(NoopOrderHdl)(ctx, common.Order{})
	telemetry.WithExecution(NoopExecutionHdl)(ctx, common.Execution{})
	telemetry.WithPendingOrder(NoopPendingOrderHdl)(ctx, common.PendingOrder{})
	telemetry.WithData(NoopDataHdl)(ctx, common.Bar{})

	if telemetry.dataEventCounter != 2 {
		t.Errorf("Expected 2 data events, got %d", telemetry.dataEventCounter)
	}
	for name, counter := range map[string]int64{
		"decision":      telemetry.decisionEventCounter,
		"sizing":        telemetry.sizingEventCounter,
		"order":         telemetry.orderEventCounter,
		"execution":     telemetry.executionEventCounter,
		"pending_order": telemetry.pendingOrderEventCounter,
	} {
		if counter != 1 {
			t.Errorf("Expected 1 %s event, got %d", name, counter)
		}
	}
}
