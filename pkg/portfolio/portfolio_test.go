package portfolio

import (
	"context"
	"testing"

	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

type fakeReader struct {
	positions []common.Position
}

func (f *fakeReader) OpenPositions(context.Context) ([]common.Position, error) {
	return f.positions, nil
}

func testPositions() []common.Position {
	return []common.Position{
		{Id: 1, Side: common.PositionSideLong, Symbol: "EURUSD", Magic: 7, Volume: fixed.FromFloat64(0.1)},
		{Id: 2, Side: common.PositionSideShort, Symbol: "EURUSD", Magic: 7, Volume: fixed.FromFloat64(0.2)},
		{Id: 3, Side: common.PositionSideLong, Symbol: "GBPUSD", Magic: 7, Volume: fixed.FromFloat64(0.3)},
		{Id: 4, Side: common.PositionSideLong, Symbol: "EURUSD", Magic: 9, Volume: fixed.FromFloat64(0.4)},
	}
}

func TestPortfolio_OpenPositionsScopedByMagic(t *testing.T) {
	p := NewPortfolio(zap.NewNop(), &fakeReader{positions: testPositions()}, 7)

	positions, err := p.OpenPositions(context.Background())
	if err != nil {
		t.Fatalf("OpenPositions failed: %v", err)
	}
	if len(positions) != 3 {
		t.Fatalf("Expected 3 scoped positions, got %d", len(positions))
	}
	for _, position := range positions {
		if position.Magic != 7 {
			t.Errorf("Foreign magic %d leaked through", position.Magic)
		}
	}
}

func TestPortfolio_CountBySymbol(t *testing.T) {
	p := NewPortfolio(zap.NewNop(), &fakeReader{positions: testPositions()}, 7)

	counts, err := p.CountBySymbol(context.Background(), "EURUSD")
	if err != nil {
		t.Fatalf("CountBySymbol failed: %v", err)
	}
	if counts.Long != 1 || counts.Short != 1 || counts.Total != 2 {
		t.Errorf("Expected 1 long / 1 short / 2 total, got %+v", counts)
	}
}

func TestPortfolio_Magic(t *testing.T) {
	p := NewPortfolio(zap.NewNop(), &fakeReader{}, 42)
	if p.Magic() != 42 {
		t.Errorf("Expected magic 42, got %d", p.Magic())
	}
}
