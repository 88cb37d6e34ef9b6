// Package config loads and validates scanner configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"market-scanner/internal/conflict"
	"market-scanner/internal/filter"
	"market-scanner/internal/health"
	"market-scanner/internal/lifecycle"
	"market-scanner/internal/models"
	"market-scanner/internal/regime"
	"market-scanner/internal/strategy"
)

// Config holds all scanner configuration. Validation failures are
// fatal at startup; nothing re-reads configuration mid-stream.
type Config struct {
	Scanner       ScannerConfig             `mapstructure:"scanner"`
	Regime        RegimeConfig              `mapstructure:"regime"`
	Filter        FilterConfig              `mapstructure:"filter"`
	Conflict      ConflictConfig            `mapstructure:"conflict"`
	Lifecycle     LifecycleConfig           `mapstructure:"lifecycle"`
	Health        HealthConfig              `mapstructure:"health"`
	Strategies    map[string]StrategyConfig `mapstructure:"strategies"`
	Notifications NotificationConfig        `mapstructure:"notifications"`
	Store         StoreConfig               `mapstructure:"store"`
}

// ScannerConfig holds the evaluation schedule.
type ScannerConfig struct {
	Symbols    []string `mapstructure:"symbols"`
	Timeframes []string `mapstructure:"timeframes"`
	// PollSeconds is the evaluation cadence per symbol/timeframe.
	PollSeconds int `mapstructure:"poll_seconds"`
}

// RegimeConfig holds the classifier thresholds.
type RegimeConfig struct {
	StrongTrend  float64 `mapstructure:"strong_trend"`
	WeakTrend    float64 `mapstructure:"weak_trend"`
	HighVolRatio float64 `mapstructure:"high_vol_ratio"`
	LowVolRatio  float64 `mapstructure:"low_vol_ratio"`
}

// FilterConfig holds the quality filter thresholds.
type FilterConfig struct {
	MinConfluence          int     `mapstructure:"min_confluence"`
	MinRiskReward          float64 `mapstructure:"min_risk_reward"`
	GoodRiskReward         float64 `mapstructure:"good_risk_reward"`
	HighRiskReward         float64 `mapstructure:"high_risk_reward"`
	DuplicateWindowMinutes int     `mapstructure:"duplicate_window_minutes"`
	TolerancePct           float64 `mapstructure:"tolerance_pct"`
	OverrideMovePct        float64 `mapstructure:"override_move_pct"`
	IntradayRetentionHours int     `mapstructure:"intraday_retention_hours"`
	DailyRetentionHours    int     `mapstructure:"daily_retention_hours"`
}

// ConflictConfig holds the conflict resolver settings.
type ConflictConfig struct {
	ValidityBars int `mapstructure:"validity_bars"`
}

// LifecycleConfig holds the trade exit-timing settings.
type LifecycleConfig struct {
	GraceIntradayMinutes int     `mapstructure:"grace_intraday_minutes"`
	GraceDailyMinutes    int     `mapstructure:"grace_daily_minutes"`
	BreakevenFraction    float64 `mapstructure:"breakeven_fraction"`
	MinCurrentPct        float64 `mapstructure:"min_current_pct"`
	MinPeakPct           float64 `mapstructure:"min_peak_pct"`
	MaxGiveback          float64 `mapstructure:"max_giveback"`
	ExitCooldownMinutes  int     `mapstructure:"exit_cooldown_minutes"`
}

// HealthConfig holds the health guard settings.
type HealthConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
}

// StrategyConfig holds per-strategy overrides. Zero values fall back
// to the built-in defaults.
type StrategyConfig struct {
	Enabled            *bool   `mapstructure:"enabled"`
	MinConfluence      int     `mapstructure:"min_confluence"`
	StopATR            float64 `mapstructure:"stop_atr"`
	TargetATR          float64 `mapstructure:"target_atr"`
	VolumeMultiple     float64 `mapstructure:"volume_multiple"`
	DeviationATR       float64 `mapstructure:"deviation_atr"`
	LevelTolerancePct  float64 `mapstructure:"level_tolerance_pct"`
	MinLevelTouches    int     `mapstructure:"min_level_touches"`
	StrongLevelTouches int     `mapstructure:"strong_level_touches"`
	RangeLookback      int     `mapstructure:"range_lookback"`
}

// NotificationConfig holds alerting configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, signals_only, health_only
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// WebhookConfig holds webhook channel configuration.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// TelegramConfig holds Telegram channel configuration.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/market-scanner"
	}
	return filepath.Join(home, ".config", "market-scanner")
}

// Load loads configuration from the specified directory. If configDir
// is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, createTemplateConfig(configDir)
		}
		return nil, fmt.Errorf("reading config.toml: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	applyEnvOverrides(cfg)

	// An explicit empty path in the file means "use the default".
	if cfg.Store.Path == "" {
		cfg.Store.Path = filepath.Join(configDir, "scanner.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scanner.symbols", []string{})
	v.SetDefault("scanner.timeframes", []string{"15minute", "60minute"})
	v.SetDefault("scanner.poll_seconds", 60)

	v.SetDefault("regime.strong_trend", 25.0)
	v.SetDefault("regime.weak_trend", 20.0)
	v.SetDefault("regime.high_vol_ratio", 1.5)
	v.SetDefault("regime.low_vol_ratio", 0.7)

	v.SetDefault("filter.min_confluence", 4)
	v.SetDefault("filter.min_risk_reward", 1.2)
	v.SetDefault("filter.good_risk_reward", 1.5)
	v.SetDefault("filter.high_risk_reward", 2.5)
	v.SetDefault("filter.duplicate_window_minutes", 60)
	v.SetDefault("filter.tolerance_pct", 0.5)
	v.SetDefault("filter.override_move_pct", 1.5)
	v.SetDefault("filter.intraday_retention_hours", 4)
	v.SetDefault("filter.daily_retention_hours", 24)

	v.SetDefault("conflict.validity_bars", 6)

	v.SetDefault("lifecycle.grace_intraday_minutes", 15)
	v.SetDefault("lifecycle.grace_daily_minutes", 45)
	v.SetDefault("lifecycle.breakeven_fraction", 0.5)
	v.SetDefault("lifecycle.min_current_pct", 0.3)
	v.SetDefault("lifecycle.min_peak_pct", 1.0)
	v.SetDefault("lifecycle.max_giveback", 0.4)
	v.SetDefault("lifecycle.exit_cooldown_minutes", 10)

	v.SetDefault("health.failure_threshold", 3)

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.path", filepath.Join(DefaultConfigDir(), "scanner.db"))
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCANNER_TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("SCANNER_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notifications.Telegram.ChatID = v
	}
	if v := os.Getenv("SCANNER_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Webhook.URL = v
	}
	if v := os.Getenv("SCANNER_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
}

// Validate checks the whole configuration tree. Any failure is fatal
// at startup.
func (c *Config) Validate() error {
	if c.Scanner.PollSeconds < 1 {
		return fmt.Errorf("scanner.poll_seconds must be at least 1")
	}
	for _, tf := range c.Scanner.Timeframes {
		if !models.Timeframe(tf).Valid() {
			return fmt.Errorf("scanner.timeframes: unknown timeframe %q", tf)
		}
	}

	if err := c.RegimeThresholds().Validate(); err != nil {
		return fmt.Errorf("regime: %w", err)
	}
	if err := c.FilterConfig().Validate(); err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	if c.Filter.IntradayRetentionHours < 1 || c.Filter.DailyRetentionHours < c.Filter.IntradayRetentionHours {
		return fmt.Errorf("filter: retention hours must satisfy daily >= intraday >= 1")
	}
	if err := c.ConflictConfig().Validate(); err != nil {
		return fmt.Errorf("conflict: %w", err)
	}
	if err := c.LifecycleConfig().Validate(); err != nil {
		return fmt.Errorf("lifecycle: %w", err)
	}
	if err := c.HealthConfig().Validate(); err != nil {
		return fmt.Errorf("health: %w", err)
	}

	for name, sc := range c.Strategies {
		p := sc.Apply(strategy.DefaultParams())
		if err := p.Validate(); err != nil {
			return fmt.Errorf("strategies.%s: %w", name, err)
		}
	}

	switch c.Notifications.Level {
	case "", "all", "signals_only", "health_only":
	default:
		return fmt.Errorf("notifications.level: unknown level %q", c.Notifications.Level)
	}

	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("store.path required when store is enabled")
	}
	return nil
}

// RegimeThresholds converts to the classifier's thresholds.
func (c *Config) RegimeThresholds() regime.Thresholds {
	return regime.Thresholds{
		StrongTrend:  c.Regime.StrongTrend,
		WeakTrend:    c.Regime.WeakTrend,
		HighVolRatio: c.Regime.HighVolRatio,
		LowVolRatio:  c.Regime.LowVolRatio,
	}
}

// FilterConfig converts to the quality filter's config.
func (c *Config) FilterConfig() filter.Config {
	return filter.Config{
		MinConfluence:   c.Filter.MinConfluence,
		MinRR:           c.Filter.MinRiskReward,
		GoodRR:          c.Filter.GoodRiskReward,
		HighRR:          c.Filter.HighRiskReward,
		DuplicateWindow: time.Duration(c.Filter.DuplicateWindowMinutes) * time.Minute,
		TolerancePct:    c.Filter.TolerancePct,
		OverrideMovePct: c.Filter.OverrideMovePct,
	}
}

// ConflictConfig converts to the resolver's config.
func (c *Config) ConflictConfig() conflict.Config {
	return conflict.Config{ValidityBars: c.Conflict.ValidityBars}
}

// LifecycleConfig converts to the tracker's config.
func (c *Config) LifecycleConfig() lifecycle.Config {
	return lifecycle.Config{
		GraceIntraday:     time.Duration(c.Lifecycle.GraceIntradayMinutes) * time.Minute,
		GraceDaily:        time.Duration(c.Lifecycle.GraceDailyMinutes) * time.Minute,
		BreakevenFraction: c.Lifecycle.BreakevenFraction,
		MinCurrentPct:     c.Lifecycle.MinCurrentPct,
		MinPeakPct:        c.Lifecycle.MinPeakPct,
		MaxGiveback:       c.Lifecycle.MaxGiveback,
		ExitCooldown:      time.Duration(c.Lifecycle.ExitCooldownMinutes) * time.Minute,
	}
}

// HealthConfig converts to the guard's config.
func (c *Config) HealthConfig() health.Config {
	return health.Config{FailureThreshold: c.Health.FailureThreshold}
}

// Apply overlays the explicitly set (non-zero) override fields onto
// base. Invalid values are carried through untouched so that
// Params.Validate rejects them at load instead of silently reverting
// to the built-in defaults.
func (sc StrategyConfig) Apply(base strategy.Params) strategy.Params {
	p := base
	if sc.MinConfluence != 0 {
		p.MinConfluence = sc.MinConfluence
	}
	if sc.StopATR != 0 {
		p.StopATR = sc.StopATR
	}
	if sc.TargetATR != 0 {
		p.TargetATR = sc.TargetATR
	}
	if sc.VolumeMultiple != 0 {
		p.VolumeMultiple = sc.VolumeMultiple
	}
	if sc.DeviationATR != 0 {
		p.DeviationATR = sc.DeviationATR
	}
	if sc.LevelTolerancePct != 0 {
		p.LevelTolerancePct = sc.LevelTolerancePct
	}
	if sc.MinLevelTouches != 0 {
		p.MinLevelTouches = sc.MinLevelTouches
	}
	if sc.StrongLevelTouches != 0 {
		p.StrongLevelTouches = sc.StrongLevelTouches
	}
	if sc.RangeLookback != 0 {
		p.RangeLookback = sc.RangeLookback
	}
	return p
}

// HistoryRetention returns the filter history retention windows.
func (c *Config) HistoryRetention() (intraday, daily time.Duration) {
	return time.Duration(c.Filter.IntradayRetentionHours) * time.Hour,
		time.Duration(c.Filter.DailyRetentionHours) * time.Hour
}
