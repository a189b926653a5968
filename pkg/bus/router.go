package bus

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

type event struct {
	id   EventId
	data interface{}
}

// Router owns the event queue and the dispatch table. It is the single
// consumer of the queue: one event is fully processed, including every queue
// insertion its handler triggers, before the next already-queued event is
// popped. That gives a deterministic, replayable ordering of effects for a
// given input sequence, which backtests rely on.
type Router struct {
	logger *zap.Logger

	done   chan error
	events chan event

	OnData         DataEventHandler
	OnDecision     DecisionEventHandler
	OnSizing       SizingEventHandler
	OnOrder        OrderEventHandler
	OnExecution    ExecutionEventHandler
	OnPendingOrder PendingOrderEventHandler

	runStart      time.Time
	runTime       atomic.Int64
	postCount     atomic.Uint64
	postFails     atomic.Uint64
	dispatchCount atomic.Uint64
	dispatchFails atomic.Uint64
}

func NewRouter(logger *zap.Logger, eventCapacity int) *Router {
	return &Router{
		logger: logger,
		done:   make(chan error, 1),
		events: make(chan event, eventCapacity),
	}
}

func (r *Router) Post(id EventId, data interface{}) error {
	select {
	case r.events <- event{id, data}:
		r.postCount.Add(1)
		return nil
	default:
		r.postFails.Add(1)
		return errors.New("event capacity reached")
	}
}

// Stop posts the stop sentinel. The loop terminates once the sentinel is
// reached, events queued before it are still dispatched.
func (r *Router) Stop() error {
	return r.Post(StopEvent, nil)
}

// Exec drains the queue until the context is cancelled or the stop sentinel
// is dispatched. Use it when events are fed from the outside, e.g. a
// websocket stream posting into the queue.
func (r *Router) Exec(ctx context.Context) <-chan error {
	r.resetStatistics()

	go func() {
		defer r.accumulateRunTime()
		for {
			select {
			case <-ctx.Done():
				r.done <- ctx.Err()
				return
			case ev := <-r.events:
				if ev.id == StopEvent {
					r.done <- nil
					return
				}
				r.dispatch(ctx, ev)
			}
		}
	}()

	return r.done
}

// ExecLoop drains the queue and, whenever it is empty, invokes doOnceCb. The
// live variant polls the data source and sleeps inside the callback; the
// backtest variant advances the historical cursor by exactly one bar and
// returns immediately. A callback error terminates the loop and is delivered
// on the returned channel.
func (r *Router) ExecLoop(ctx context.Context, doOnceCb func() error) <-chan error {
	r.resetStatistics()

	go func() {
		defer r.accumulateRunTime()
		for {
			select {
			case <-ctx.Done():
				r.done <- ctx.Err()
				return
			case ev := <-r.events:
				if ev.id == StopEvent {
					r.done <- nil
					return
				}
				r.dispatch(ctx, ev)
			default:
				if err := doOnceCb(); err != nil {
					r.done <- err
					return
				}
			}
		}
	}()

	return r.done
}

func (r *Router) Statistics() Statistics {
	runTime := time.Duration(r.runTime.Load())
	throughput := 0.0
	if runTime > 0 {
		throughput = float64(r.postCount.Load()) / runTime.Seconds()
	}
	return Statistics{
		RunTime:       runTime,
		PostCount:     r.postCount.Load(),
		PostFails:     r.postFails.Load(),
		DispatchCount: r.dispatchCount.Load(),
		DispatchFails: r.dispatchFails.Load(),
		Throughput:    throughput,
	}
}

func (r *Router) PrintStatistics() {
	r.Statistics().Print(r.logger)
}

func (r *Router) resetStatistics() {
	r.runStart = time.Now()
	r.runTime.Store(0)
	r.postCount.Store(0)
	r.postFails.Store(0)
	r.dispatchCount.Store(0)
	r.dispatchFails.Store(0)
}

func (r *Router) accumulateRunTime() {
	r.runTime.Add(int64(time.Since(r.runStart)))
}

// dispatch is an exhaustive switch over the closed event set. A handler
// panic, a type-assertion failure or an unknown tag is counted and logged,
// the loop keeps running so one bad event cannot kill the pipeline.
func (r *Router) dispatch(ctx context.Context, ev event) {
	r.dispatchCount.Add(1)

	defer func() {
		if rec := recover(); rec != nil {
			r.dispatchFails.Add(1)
			r.logger.Error("handler panic",
				zap.String("event", ev.id.String()),
				zap.Any("panic", rec))
		}
	}()

	if err := r.route(ctx, ev); err != nil {
		r.dispatchFails.Add(1)
		r.logger.Warn("dispatch failed", zap.Error(err), zap.String("event", ev.id.String()))
	}
}

func (r *Router) route(ctx context.Context, ev event) error {
	switch ev.id {
	case DataEvent:
		bar, ok := ev.data.(common.Bar)
		if !ok {
			return errors.New("invalid type assertion for data event")
		}
		if r.OnData != nil {
			r.OnData(ctx, bar)
		}
	case DecisionEvent:
		decision, ok := ev.data.(common.Decision)
		if !ok {
			return errors.New("invalid type assertion for decision event")
		}
		if r.OnDecision != nil {
			r.OnDecision(ctx, decision)
		}
	case SizingEvent:
		sizing, ok := ev.data.(common.Sizing)
		if !ok {
			return errors.New("invalid type assertion for sizing event")
		}
		if r.OnSizing != nil {
			r.OnSizing(ctx, sizing)
		}
	case OrderEvent:
		order, ok := ev.data.(common.Order)
		if !ok {
			return errors.New("invalid type assertion for order event")
		}
		if r.OnOrder != nil {
			r.OnOrder(ctx, order)
		}
	case ExecutionEvent:
		execution, ok := ev.data.(common.Execution)
		if !ok {
			return errors.New("invalid type assertion for execution event")
		}
		if r.OnExecution != nil {
			r.OnExecution(ctx, execution)
		}
	case PendingOrderEvent:
		pending, ok := ev.data.(common.PendingOrder)
		if !ok {
			return errors.New("invalid type assertion for pending order event")
		}
		if r.OnPendingOrder != nil {
			r.OnPendingOrder(ctx, pending)
		}
	default:
		return fmt.Errorf("unsupported event id: %v", ev.id)
	}
	return nil
}
