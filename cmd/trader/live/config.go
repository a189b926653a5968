package main

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type SymbolConfig struct {
	Name          string  `yaml:"name" validate:"required"`
	Class         string  `yaml:"class"`
	QuoteCurrency string  `yaml:"quote_currency" validate:"required,len=3"`
	Digits        int     `yaml:"digits" validate:"gte=0"`
	PipSize       float64 `yaml:"pip_size" validate:"gt=0"`
	TickSize      float64 `yaml:"tick_size" validate:"gt=0"`
	ContractSize  float64 `yaml:"contract_size" validate:"gt=0"`
	VolumeMin     float64 `yaml:"volume_min" validate:"gt=0"`
	VolumeMax     float64 `yaml:"volume_max" validate:"gt=0"`
	VolumeStep    float64 `yaml:"volume_step" validate:"gt=0"`
}

type AccountConfig struct {
	Currency     string  `yaml:"currency" validate:"required,len=3"`
	StartBalance float64 `yaml:"start_balance" validate:"gt=0"`
}

type StreamConfig struct {
	Url              string `yaml:"url" validate:"required,uri"`
	BarPeriod        string `yaml:"bar_period" validate:"required"`
	PollIntervalMsec int    `yaml:"poll_interval_msec" validate:"gt=0"`
}

type AnomalyConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Window    int     `yaml:"window" validate:"required_if=Enabled true,omitempty,gte=3"`
	Threshold float64 `yaml:"threshold" validate:"required_if=Enabled true,omitempty,gt=0"`
}

type SentimentConfig struct {
	Enabled           bool    `yaml:"enabled"`
	ApiKey            string  `yaml:"api_key" validate:"required_if=Enabled true"`
	Query             string  `yaml:"query"`
	CooldownMinutes   int     `yaml:"cooldown_minutes" validate:"omitempty,gt=0"`
	LookbackDays      int     `yaml:"lookback_days" validate:"omitempty,gt=0"`
	MinArticles       int     `yaml:"min_articles" validate:"omitempty,gt=0"`
	NegativeThreshold float64 `yaml:"negative_threshold"`
	PositiveThreshold float64 `yaml:"positive_threshold"`
}

type StrategyConfig struct {
	Algorithm    string          `yaml:"algorithm" validate:"required,oneof=ma_crossover rsi_mean_reversion"`
	Magic        int64           `yaml:"magic" validate:"required"`
	FastPeriod   int             `yaml:"fast_period"`
	SlowPeriod   int             `yaml:"slow_period"`
	RsiPeriod    int             `yaml:"rsi_period"`
	RsiUpper     int             `yaml:"rsi_upper"`
	RsiLower     int             `yaml:"rsi_lower"`
	StopPoints   int             `yaml:"stop_points" validate:"gte=0"`
	ProfitPoints int             `yaml:"profit_points" validate:"gte=0"`
	Anomaly      AnomalyConfig   `yaml:"anomaly"`
	Sentiment    SentimentConfig `yaml:"sentiment"`
}

type SizingConfig struct {
	Policy      string  `yaml:"policy" validate:"required,oneof=fixed minimum risk_percent"`
	Volume      float64 `yaml:"volume" validate:"required_if=Policy fixed,omitempty,gt=0"`
	RiskPercent float64 `yaml:"risk_percent" validate:"required_if=Policy risk_percent,omitempty,gt=0,lte=100"`
}

type RiskConfig struct {
	MaxLeverage float64 `yaml:"max_leverage" validate:"gt=0"`
}

type TelegramConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token" validate:"required_if=Enabled true"`
	ChatId  string `yaml:"chat_id" validate:"required_if=Enabled true"`
}

type Config struct {
	EventCapacity int            `yaml:"event_capacity" validate:"gt=0"`
	Account       AccountConfig  `yaml:"account" validate:"required"`
	Symbol        SymbolConfig   `yaml:"symbol" validate:"required"`
	Stream        StreamConfig   `yaml:"stream" validate:"required"`
	Strategy      StrategyConfig `yaml:"strategy" validate:"required"`
	Sizing        SizingConfig   `yaml:"sizing" validate:"required"`
	Risk          RiskConfig     `yaml:"risk" validate:"required"`
	Telegram      TelegramConfig `yaml:"telegram"`
}

func loadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config: %w", err)
	}

	cfg := &Config{
		EventCapacity: 1000,
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unable to parse config: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
