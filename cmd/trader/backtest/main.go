package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantfwk/tradefwk/cmd/trader"
	"github.com/quantfwk/tradefwk/internal/dbg"
	"github.com/quantfwk/tradefwk/pkg/anomaly"
	"github.com/quantfwk/tradefwk/pkg/bus"
	"github.com/quantfwk/tradefwk/pkg/common"
	"github.com/quantfwk/tradefwk/pkg/datasource"
	"github.com/quantfwk/tradefwk/pkg/datasource/duckdb"
	"github.com/quantfwk/tradefwk/pkg/exchange"
	"github.com/quantfwk/tradefwk/pkg/exchange/sandbox"
	"github.com/quantfwk/tradefwk/pkg/executor"
	"github.com/quantfwk/tradefwk/pkg/middleware"
	"github.com/quantfwk/tradefwk/pkg/notification"
	"github.com/quantfwk/tradefwk/pkg/portfolio"
	"github.com/quantfwk/tradefwk/pkg/risk"
	"github.com/quantfwk/tradefwk/pkg/sentiment"
	"github.com/quantfwk/tradefwk/pkg/sizer"
	"github.com/quantfwk/tradefwk/pkg/strategy"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "backtest.yaml", "path to the backtest configuration")
	flag.Parse()

	logger := dbg.NewDevLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info(fmt.Sprintf("trader backtest %s", trader.Version))
	defer logger.Info("done")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("unable to load configuration", zap.Error(err))
	}

	period, err := time.ParseDuration(cfg.Data.Period)
	if err != nil {
		logger.Fatal("unable to parse bar period", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reader := duckdb.NewReader(cfg.Data.Source)
	if err := reader.Connect(); err != nil {
		logger.Fatal("unable to connect to bar source", zap.Error(err))
	}
	defer reader.Close()

	if err := reader.Preload(ctx, cfg.Symbol.Name, common.BarPeriod(period), cfg.Data.From, cfg.Data.To); err != nil {
		logger.Fatal("unable to preload bars", zap.Error(err))
	}
	logger.Info("bars preloaded", zap.Int("count", reader.Len()))

	// Create
	router := bus.NewRouter(logger, cfg.EventCapacity)
	monitor := middleware.NewMonitor(logger, middleware.MonitorExecutions|middleware.MonitorPendingOrders)
	telemetry := middleware.NewTelemetry(logger)

	sim := sandbox.NewSimulator(logger, cfg.Account.Currency, fixed.FromFloat64(cfg.Account.StartBalance),
		sandbox.WithSymbol(symbolInfo(cfg.Symbol)))

	book := portfolio.NewPortfolio(logger, sim, cfg.Strategy.Magic)
	exec := executor.NewExecutor(logger, router, sim, book,
		executor.WithConfirmation(1, 0))

	manager, err := buildStrategy(logger, cfg, router, sim, book, exec)
	if err != nil {
		logger.Fatal("unable to build strategy", zap.Error(err))
	}

	sizing := sizer.NewSizer(logger, router, sim, sizingPolicy(cfg, sim))
	assessor := risk.NewManager(logger, router, sim, sim, sim, book,
		risk.NewMaxLeverage(fixed.FromFloat64(cfg.Risk.MaxLeverage)))
	notifier := notification.NewService(logger, notificationChannels(cfg)...)

	// Initialize
	router.OnData = middleware.Chain(telemetry.WithData, monitor.WithData)(manager.OnBar)
	router.OnDecision = middleware.Chain(telemetry.WithDecision, monitor.WithDecision)(sizing.OnDecision)
	router.OnSizing = middleware.Chain(telemetry.WithSizing, monitor.WithSizing)(assessor.OnSizing)
	router.OnOrder = middleware.Chain(telemetry.WithOrder, monitor.WithOrder)(exec.OnOrder)
	router.OnExecution = middleware.Chain(telemetry.WithExecution, monitor.WithExecution)(notifier.OnExecution)
	router.OnPendingOrder = middleware.Chain(telemetry.WithPendingOrder, monitor.WithPendingOrder)(notifier.OnPendingOrder)

	// Replay
	doOnce := datasource.CreateBarDispatcher(router, reader, func(bar common.Bar) {
		sim.OnBar(ctx, bar)
	})
	done := router.ExecLoop(ctx, doOnce)

	defer router.PrintStatistics()
	defer telemetry.PrintStatistics()

	if err := <-done; err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, datasource.ErrEndOfData) {
			logger.Error("error during simulation", zap.Error(err))
		}
	}

	sim.CloseAllOpenPositions(context.Background())
	sim.PrintReport()
}

func symbolInfo(cfg SymbolConfig) exchange.SymbolInfo {
	class := exchange.SymbolClass(cfg.Class)
	if class == "" {
		class = exchange.Forex
	}
	return exchange.SymbolInfo{
		SymbolName:    cfg.Name,
		Class:         class,
		QuoteCurrency: cfg.QuoteCurrency,
		Digits:        cfg.Digits,
		PipSize:       fixed.FromFloat64(cfg.PipSize),
		TickSize:      fixed.FromFloat64(cfg.TickSize),
		ContractSize:  fixed.FromFloat64(cfg.ContractSize),
		VolumeMin:     fixed.FromFloat64(cfg.VolumeMin),
		VolumeMax:     fixed.FromFloat64(cfg.VolumeMax),
		VolumeStep:    fixed.FromFloat64(cfg.VolumeStep),
	}
}

func buildAlgorithm(cfg StrategyConfig) (strategy.Algorithm, error) {
	switch cfg.Algorithm {
	case "ma_crossover":
		return strategy.NewMACrossover(cfg.FastPeriod, cfg.SlowPeriod, cfg.StopPoints, cfg.ProfitPoints)
	case "rsi_mean_reversion":
		return strategy.NewRSIMeanReversion(cfg.RsiPeriod, cfg.RsiUpper, cfg.RsiLower, cfg.StopPoints, cfg.ProfitPoints)
	default:
		return nil, fmt.Errorf("unknown algorithm: %s", cfg.Algorithm)
	}
}

func buildStrategy(logger *zap.Logger, cfg *Config, router *bus.Router, sim *sandbox.Simulator,
	book *portfolio.Portfolio, exec *executor.Executor) (*strategy.Manager, error) {
	algorithm, err := buildAlgorithm(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	var options []strategy.Option
	if cfg.Strategy.Anomaly.Enabled {
		options = append(options, strategy.WithAnomalyDetector(
			anomaly.NewRangeZScore(cfg.Strategy.Anomaly.Window, fixed.FromFloat64(cfg.Strategy.Anomaly.Threshold))))
	}
	if cfg.Strategy.Sentiment.Enabled {
		scorer := sentiment.NewNewsAPIScorer(logger, cfg.Strategy.Sentiment.ApiKey, sentiment.NewLexiconClassifier())
		if cfg.Strategy.Sentiment.Query != "" {
			scorer.WithQuery(cfg.Symbol.Name, cfg.Strategy.Sentiment.Query)
		}
		options = append(options, strategy.WithSentimentScorer(scorer))
		if cfg.Strategy.Sentiment.CooldownMinutes > 0 {
			options = append(options, strategy.WithSentimentCooldown(
				time.Duration(cfg.Strategy.Sentiment.CooldownMinutes)*time.Minute))
		}
		if cfg.Strategy.Sentiment.LookbackDays > 0 {
			options = append(options, strategy.WithSentimentLookbackDays(cfg.Strategy.Sentiment.LookbackDays))
		}
		if cfg.Strategy.Sentiment.MinArticles > 0 {
			options = append(options, strategy.WithMinArticles(cfg.Strategy.Sentiment.MinArticles))
		}
		if cfg.Strategy.Sentiment.NegativeThreshold != 0 || cfg.Strategy.Sentiment.PositiveThreshold != 0 {
			options = append(options, strategy.WithSentimentThresholds(
				cfg.Strategy.Sentiment.NegativeThreshold, cfg.Strategy.Sentiment.PositiveThreshold))
		}
	}

	return strategy.NewManager(logger, router, sim, sim, book, exec, algorithm, options...), nil
}

func sizingPolicy(cfg *Config, sim *sandbox.Simulator) sizer.Policy {
	switch cfg.Sizing.Policy {
	case "fixed":
		return sizer.NewFixed(fixed.FromFloat64(cfg.Sizing.Volume))
	case "risk_percent":
		return sizer.NewRiskPercent(sim, sim, fixed.FromFloat64(cfg.Sizing.RiskPercent))
	default:
		return sizer.NewMinimum()
	}
}

func notificationChannels(cfg *Config) []notification.Channel {
	var channels []notification.Channel
	if cfg.Telegram.Enabled {
		channels = append(channels, notification.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatId))
	}
	return channels
}
