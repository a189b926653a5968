// Package portfolio scopes broker position state to a single strategy
// instance. Every position opened by the pipeline carries a magic number;
// the portfolio filters the broker's open positions down to that number so
// multiple strategies can share one account without seeing each other.
package portfolio

import (
	"context"
	"strings"

	"github.com/quantfwk/tradefwk/pkg/common"
	"go.uber.org/zap"
)

type PositionReader interface {
	OpenPositions(ctx context.Context) ([]common.Position, error)
}

// Counts summarizes open positions for one symbol within the portfolio scope.
type Counts struct {
	Long  int
	Short int
	Total int
}

type Portfolio struct {
	logger *zap.Logger
	reader PositionReader
	magic  int64
}

func NewPortfolio(logger *zap.Logger, reader PositionReader, magic int64) *Portfolio {
	return &Portfolio{
		logger: logger,
		reader: reader,
		magic:  magic,
	}
}

func (p *Portfolio) Magic() int64 {
	return p.magic
}

// OpenPositions returns the broker's open positions restricted to this
// portfolio's magic number.
func (p *Portfolio) OpenPositions(ctx context.Context) ([]common.Position, error) {
	positions, err := p.reader.OpenPositions(ctx)
	if err != nil {
		return nil, err
	}

	scoped := make([]common.Position, 0, len(positions))
	for _, position := range positions {
		if position.Magic == p.magic {
			scoped = append(scoped, position)
		}
	}
	return scoped, nil
}

func (p *Portfolio) CountBySymbol(ctx context.Context, symbol string) (Counts, error) {
	positions, err := p.OpenPositions(ctx)
	if err != nil {
		return Counts{}, err
	}

	var counts Counts
	for _, position := range positions {
		if !strings.EqualFold(position.Symbol, symbol) {
			continue
		}
		counts.Total++
		if position.Side == common.PositionSideLong {
			counts.Long++
		} else {
			counts.Short++
		}
	}
	return counts, nil
}
