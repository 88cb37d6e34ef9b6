package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Market Scanner Configuration

[scanner]
# Symbols to evaluate
symbols = ["RELIANCE", "HDFCBANK", "INFY"]
# Timeframes evaluated per symbol
timeframes = ["15minute", "60minute"]
# Evaluation cadence in seconds
poll_seconds = 60

[regime]
# ADX at or above this value classifies as trending
strong_trend = 25.0
# ADX below this value classifies as ranging
weak_trend = 20.0
# ATR / ATR-average ratio at or above this is high volatility
high_vol_ratio = 1.5
# Ratio at or below this is low volatility
low_vol_ratio = 0.7

[filter]
# Minimum satisfied confluence factors
min_confluence = 4
# Risk-reward below this rejects outright
min_risk_reward = 1.2
# Risk-reward below this (but above minimum) drops confidence one point
good_risk_reward = 1.5
# Risk-reward at or above this adds one point
high_risk_reward = 2.5
# Duplicate suppression window
duplicate_window_minutes = 60
# Entry-price proximity that counts as a duplicate
tolerance_pct = 0.5
# Price move that lifts the suppression early
override_move_pct = 1.5
# Signal history retention
intraday_retention_hours = 4
daily_retention_hours = 24

[conflict]
# How many bars of its own timeframe a signal stays active
validity_bars = 6

[lifecycle]
# No exit evaluation during the grace period after entry
grace_intraday_minutes = 15
grace_daily_minutes = 45
# Fraction of target distance at which the stop moves to breakeven
breakeven_fraction = 0.5
# Giveback exit thresholds
min_current_pct = 0.3
min_peak_pct = 1.0
max_giveback = 0.4
# Suppress repeat exit signals for the same trade
exit_cooldown_minutes = 10

[health]
# Consecutive failures before a symbol is paused
failure_threshold = 3

# Per-strategy overrides; omitted fields use built-in defaults.
# [strategies.breakout]
# enabled = true
# range_lookback = 20
# volume_multiple = 1.5

[notifications]
enabled = false
# Notification level: all, signals_only, health_only
level = "all"

[notifications.webhook]
enabled = false
url = ""

[notifications.telegram]
enabled = false
bot_token = ""
chat_id = ""

[store]
enabled = true
# Defaults to <config dir>/scanner.db when empty
path = ""
`

func createTemplateConfig(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}
