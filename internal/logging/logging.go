// Package logging provides structured logging functionality.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"market-scanner/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "market-scanner", "logs", "scanner.log"),
		MaxSize:    100,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLogger creates a new logger with default configuration.
func NewLogger() zerolog.Logger {
	return NewLoggerWithConfig(DefaultLogConfig())
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File {
		logDir := filepath.Dir(cfg.FilePath)
		if err := os.MkdirAll(logDir, 0755); err == nil {
			fileWriter := &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			}
			writers = append(writers, fileWriter)
		}
	}

	var writer io.Writer
	if len(writers) == 0 {
		writer = os.Stdout
	} else if len(writers) == 1 {
		writer = writers[0]
	} else {
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Logger()
}

// SetDebugLevel lowers the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithSymbol adds a symbol to the logger context.
func WithSymbol(logger zerolog.Logger, symbol string) zerolog.Logger {
	return logger.With().Str("symbol", symbol).Logger()
}

// WithTimeframe adds a timeframe to the logger context.
func WithTimeframe(logger zerolog.Logger, tf models.Timeframe) zerolog.Logger {
	return logger.With().Str("timeframe", string(tf)).Logger()
}

// WithRegime adds the prevailing regime to the logger context.
func WithRegime(logger zerolog.Logger, label models.RegimeLabel) zerolog.Logger {
	return logger.With().Str("regime", string(label)).Logger()
}

// LogSignal logs a confirmed signal.
func LogSignal(logger zerolog.Logger, sig *models.ConfirmedSignal) {
	factors := make([]string, 0, sig.Factors.Count())
	for _, f := range sig.Factors.Sorted() {
		factors = append(factors, string(f))
	}
	logger.Info().
		Str("event", "signal").
		Str("symbol", sig.Symbol).
		Str("timeframe", string(sig.Timeframe)).
		Str("strategy", sig.Strategy).
		Str("direction", string(sig.Direction)).
		Float64("entry", sig.Entry).
		Float64("stop", sig.Stop).
		Float64("target", sig.Target).
		Int("confidence", sig.Confidence).
		Float64("risk_reward", sig.RR).
		Strs("factors", factors).
		Str("dedup_key", sig.DedupKey()).
		Msg("Signal confirmed")
}

// LogRejection logs a signal rejection with its machine-readable reason.
func LogRejection(logger zerolog.Logger, c *models.CandidateSignal, rej *models.Rejection) {
	logger.Info().
		Str("event", "rejection").
		Str("symbol", c.Symbol).
		Str("timeframe", string(c.Timeframe)).
		Str("strategy", c.Strategy).
		Str("direction", string(c.Direction)).
		Str("reason", string(rej.Reason)).
		Str("detail", rej.Detail).
		Msg("Signal rejected")
}

// LogExit logs an exit signal from the lifecycle tracker.
func LogExit(logger zerolog.Logger, exit *models.ExitSignal) {
	logger.Info().
		Str("event", "exit").
		Str("symbol", exit.Symbol).
		Str("direction", string(exit.Direction)).
		Str("reason", string(exit.Reason)).
		Float64("price", exit.Price).
		Float64("profit_pct", exit.ProfitPct).
		Float64("peak_pct", exit.PeakPct).
		Float64("giveback", exit.Giveback).
		Msg("Exit signal")
}

// LogPause logs a health-guard pause event.
func LogPause(logger zerolog.Logger, symbol string, failures int, reason string) {
	logger.Warn().
		Str("event", "pause").
		Str("symbol", symbol).
		Int("consecutive_failures", failures).
		Str("reason", reason).
		Msg("Symbol paused")
}

// LogResume logs a health-guard resume event.
func LogResume(logger zerolog.Logger, symbol string) {
	logger.Info().
		Str("event", "resume").
		Str("symbol", symbol).
		Msg("Symbol resumed")
}
