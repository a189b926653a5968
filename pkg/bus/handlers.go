package bus

import (
	"context"

	"github.com/quantfwk/tradefwk/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type DataEventHandler EventHandler[common.Bar]
type DecisionEventHandler EventHandler[common.Decision]
type SizingEventHandler EventHandler[common.Sizing]
type OrderEventHandler EventHandler[common.Order]
type ExecutionEventHandler EventHandler[common.Execution]
type PendingOrderEventHandler EventHandler[common.PendingOrder]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
