package anomaly

import (
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
)

const minRangeWindow = 3

// RangeZScore flags a window when the latest bar's high-low range deviates
// from the window mean by more than threshold standard deviations. A flat
// window (zero deviation) is never anomalous.
type RangeZScore struct {
	window    int
	threshold fixed.Point
}

func NewRangeZScore(window int, threshold fixed.Point) *RangeZScore {
	if window < minRangeWindow {
		window = minRangeWindow
	}
	return &RangeZScore{window: window, threshold: threshold}
}

func (d *RangeZScore) WindowSize() int {
	return d.window
}

func (d *RangeZScore) IsWindowAnomalous(bars []common.Bar) bool {
	if len(bars) < d.window {
		return false
	}
	bars = bars[len(bars)-d.window:]

	ranges := make([]fixed.Point, len(bars))
	for idx, bar := range bars {
		ranges[idx] = bar.High.Sub(bar.Low)
	}

	mean := fixed.Mean(ranges)
	deviation := fixed.StdDev(ranges, mean)
	if deviation.IsZero() {
		return false
	}

	latest := ranges[len(ranges)-1]
	score := latest.Sub(mean).Div(deviation).Abs()
	return score.Gt(d.threshold)
}
