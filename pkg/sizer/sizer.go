package sizer

import (
	"context"
	"fmt"

	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

const sizerComponentName = "sizer"

type EventPoster interface {
	Post(id bus.EventId, data interface{}) error
}

type SymbolInfoProvider interface {
	SymbolInfo(symbol string) (exchange.SymbolInfo, error)
}

type Sizer struct {
	logger  *zap.Logger
	poster  EventPoster
	symbols SymbolInfoProvider
	policy  Policy
}

func NewSizer(logger *zap.Logger, poster EventPoster, symbols SymbolInfoProvider, policy Policy) *Sizer {
	return &Sizer{
		logger:  logger,
		poster:  poster,
		symbols: symbols,
		policy:  policy,
	}
}

// OnDecision sizes the decision and posts the sizing event. A policy
// rejection drops the decision with a log line; the pipeline carries on.
func (s *Sizer) OnDecision(ctx context.Context, decision common.Decision) {
	sizing, err := s.Size(ctx, decision)
	if err != nil {
		s.logger.Warn("decision rejected by sizing",
			zap.String("symbol", decision.Symbol),
			zap.String("policy", s.policy.Name()),
			zap.Error(err))
		return
	}
	if err := s.poster.Post(bus.SizingEvent, sizing); err != nil {
		s.logger.Warn("unable to post sizing", zap.Error(err))
	}
}

// Size resolves the volume through the policy, rounds it down to a step
// multiple and clamps it into the symbol's tradable range. Normalizing an
// already normalized volume is a no-op.
func (s *Sizer) Size(ctx context.Context, decision common.Decision) (common.Sizing, error) {
	info, err := s.symbols.SymbolInfo(decision.Symbol)
	if err != nil {
		return common.Sizing{}, fmt.Errorf("unable to fetch symbol info: %w", err)
	}

	volume, err := s.policy.Volume(ctx, decision, info)
	if err != nil {
		return common.Sizing{}, err
	}
	if !volume.IsPositive() {
		return common.Sizing{}, fmt.Errorf("policy %s produced non-positive volume", s.policy.Name())
	}

	volume = normalizeVolume(volume, info)

	return common.Sizing{
		Direction:   decision.Direction,
		TargetOrder: decision.TargetOrder,
		TargetPrice: decision.TargetPrice,
		Magic:       decision.Magic,
		StopLoss:    decision.StopLoss,
		TakeProfit:  decision.TakeProfit,
		Volume:      volume,
		Source:      sizerComponentName + "." + s.policy.Name(),
		Symbol:      decision.Symbol,
		ExecutionId: decision.ExecutionId,
		TraceID:     decision.TraceID,
		TimeStamp:   decision.TimeStamp,
	}, nil
}

func normalizeVolume(volume fixed.Point, info exchange.SymbolInfo) fixed.Point {
	if info.VolumeStep.IsPositive() {
		steps := volume.Div(info.VolumeStep).Floor()
		volume = steps.Mul(info.VolumeStep)
	}
	return fixed.Clamp(volume, info.VolumeMin, info.VolumeMax)
}
