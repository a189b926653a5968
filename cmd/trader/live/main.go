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
	"github.com/quantfwk/tradefwk/pkg/datasource/stream"
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
	"github.com/quantfwk/tradefwk/pkg/tools/bar"
	"github.com/quantfwk/tradefwk/pkg/utility/fixed"
	"go.uber.org/zap"
)

const tickBufferSize = 4096

func main() {
	configPath := flag.String("config", "live.yaml", "path to the live configuration")
	flag.Parse()

	logger := dbg.NewProdLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	logger.Info(fmt.Sprintf("trader live %s", trader.Version))
	defer logger.Info("done")

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logger.Fatal("unable to load configuration", zap.Error(err))
	}

	period, err := time.ParseDuration(cfg.Stream.BarPeriod)
	if err != nil {
		logger.Fatal("unable to parse bar period", zap.Error(err))
	}
	pollInterval := time.Duration(cfg.Stream.PollIntervalMsec) * time.Millisecond

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Create
	router := bus.NewRouter(logger, cfg.EventCapacity)
	monitor := middleware.NewMonitor(logger, middleware.MonitorExecutions|middleware.MonitorPendingOrders|middleware.MonitorDecisions)
	telemetry := middleware.NewTelemetry(logger)

	info := symbolInfo(cfg.Symbol)
	sim := sandbox.NewSimulator(logger, cfg.Account.Currency, fixed.FromFloat64(cfg.Account.StartBalance),
		sandbox.WithSymbol(info))

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

	// The websocket goroutine only feeds the tick channel. The drain loop
	// below applies ticks, so all simulator state stays on one goroutine.
	tickCh := make(chan common.Tick, tickBufferSize)
	client := stream.NewClient(logger, cfg.Stream.Url, func(_ context.Context, tick common.Tick) {
		select {
		case tickCh <- tick:
		default:
			logger.Warn("tick buffer full, dropping tick", zap.String("symbol", tick.Symbol))
		}
	})
	go func() {
		if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("tick stream terminated", zap.Error(err))
		}
	}()

	builder := bar.NewBuilder(logger, func(_ context.Context, b common.Bar) {
		sim.RecordBar(b)
	}, bar.With(cfg.Symbol.Name, common.BarPeriod(period), bar.PriceModeMid, info.TickSize))

	poller := datasource.NewPoller(logger, router, sim, cfg.Symbol.Name)

	doOnce := func() error {
		applied := 0
		for {
			select {
			case tick := <-tickCh:
				sim.OnTick(ctx, tick)
				builder.OnTick(ctx, tick)
				applied++
				continue
			default:
			}
			break
		}

		if err := poller.Poll(ctx); err != nil {
			return err
		}

		if applied == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pollInterval):
			}
		}
		return nil
	}

	done := router.ExecLoop(ctx, doOnce)

	defer router.PrintStatistics()
	defer telemetry.PrintStatistics()
	defer sim.PrintReport()

	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("error during live session", zap.Error(err))
	}
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
