// Package anomaly flags bar windows whose latest price action is statistically
// out of line with the recent past. Strategies consult a Detector before
// acting on a signal and stand aside when the window looks abnormal.
package anomaly

import "github.com/quantfwk/tradefwk/pkg/common"

// Detector inspects a window of closed bars. WindowSize reports how many bars
// IsWindowAnomalous needs; callers must hand it at least that many.
type Detector interface {
	WindowSize() int
	IsWindowAnomalous(bars []common.Bar) bool
}
