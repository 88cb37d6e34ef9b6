// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInvalidSnapshot     = errors.New("invalid snapshot")
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrMissingIndicator    = errors.New("missing indicator")
	ErrSymbolPaused        = errors.New("symbol paused")
	ErrTradeExists         = errors.New("trade already open for symbol")
	ErrTradeNotFound       = errors.New("no open trade for symbol")
	ErrStrategyUnknown     = errors.New("unknown strategy")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrStoreClosed         = errors.New("store closed")
)

// DataError represents a data-quality problem with a snapshot. Data
// errors never halt the pipeline; they count as failure outcomes for
// the health guard.
type DataError struct {
	Symbol    string
	Timeframe string
	Message   string
	Err       error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data error [%s %s]: %s: %v", e.Symbol, e.Timeframe, e.Message, e.Err)
	}
	return fmt.Sprintf("data error [%s %s]: %s", e.Symbol, e.Timeframe, e.Message)
}

func (e *DataError) Unwrap() error {
	return e.Err
}

// NewDataError creates a new DataError.
func NewDataError(symbol, timeframe, message string, err error) *DataError {
	return &DataError{
		Symbol:    symbol,
		Timeframe: timeframe,
		Message:   message,
		Err:       err,
	}
}

// StrategyError represents a failure inside a single detector. The
// orchestrator logs it and proceeds to the next detector.
type StrategyError struct {
	Strategy string
	Symbol   string
	Err      error
}

func (e *StrategyError) Error() string {
	return fmt.Sprintf("strategy error [%s] %s: %v", e.Strategy, e.Symbol, e.Err)
}

func (e *StrategyError) Unwrap() error {
	return e.Err
}

// NewStrategyError creates a new StrategyError.
func NewStrategyError(strategy, symbol string, err error) *StrategyError {
	return &StrategyError{
		Strategy: strategy,
		Symbol:   symbol,
		Err:      err,
	}
}

// ValidationError represents a configuration validation error. These
// are fatal at startup only.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s (%v): %s", e.Field, e.Value, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
