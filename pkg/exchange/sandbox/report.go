package sandbox

import (
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

// PrintReport summarizes the run: trade count, hit rate, net profit and the
// worst equity drawdown observed.
func (s *Simulator) PrintReport() {
	wins := 0
	netProfit := fixed.Zero
	for _, trade := range s.trades {
		if trade.Profit.IsPositive() {
			wins++
		}
		netProfit = netProfit.Add(trade.Profit)
	}

	winRate := 0.0
	if len(s.trades) > 0 {
		winRate = float64(wins) / float64(len(s.trades))
	}

	s.logger.Info("simulation report",
		zap.Int("trades", len(s.trades)),
		zap.Int("wins", wins),
		zap.Float64("win_rate", winRate),
		zap.String("net_profit", netProfit.Rescale(2).String()),
		zap.String("final_balance", s.balance.Rescale(2).String()),
		zap.String("final_equity", s.equity.Rescale(2).String()),
		zap.String("max_drawdown", s.maxDrawdown.Rescale(2).String()))
}
