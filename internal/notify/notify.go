// Package notify delivers scanner events to external channels.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"market-scanner/internal/health"
	"market-scanner/internal/models"
)

// Notifier is the alerting surface the scanner emits into. Every event
// carries enough structured data for the consumer to format a message
// without re-deriving anything.
type Notifier interface {
	SignalConfirmed(ctx context.Context, sig *models.ConfirmedSignal) error
	TradeExit(ctx context.Context, exit *models.ExitSignal) error
	HealthChanged(ctx context.Context, event health.Event) error
}

// Channel is one delivery transport.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification is the channel-agnostic message envelope.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType tags the event class for level filtering.
type NotificationType string

const (
	NotificationSignal NotificationType = "signal"
	NotificationExit   NotificationType = "exit"
	NotificationHealth NotificationType = "health"
)

// Level filters which event classes are delivered.
type Level string

const (
	LevelAll         Level = "all"
	LevelSignalsOnly Level = "signals_only"
	LevelHealthOnly  Level = "health_only"
)

// MultiNotifier fans notifications out to the enabled channels.
type MultiNotifier struct {
	mu       sync.RWMutex
	channels []Channel
	level    Level
}

// NewMultiNotifier creates a notifier with the given level filter.
func NewMultiNotifier(level Level) *MultiNotifier {
	if level == "" {
		level = LevelAll
	}
	return &MultiNotifier{level: level}
}

// AddChannel registers a delivery channel.
func (mn *MultiNotifier) AddChannel(ch Channel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

func (mn *MultiNotifier) shouldSend(t NotificationType) bool {
	switch mn.level {
	case LevelSignalsOnly:
		return t == NotificationSignal || t == NotificationExit
	case LevelHealthOnly:
		return t == NotificationHealth
	default:
		return true
	}
}

func (mn *MultiNotifier) send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SignalConfirmed delivers a confirmed-signal alert.
func (mn *MultiNotifier) SignalConfirmed(ctx context.Context, sig *models.ConfirmedSignal) error {
	factors := make([]string, 0, sig.Factors.Count())
	for _, f := range sig.Factors.Sorted() {
		factors = append(factors, string(f))
	}

	title := fmt.Sprintf("📊 %s %s (%s)", sig.Direction, sig.Symbol, sig.Timeframe)
	message := fmt.Sprintf(
		"Strategy: %s\nConfidence: %d/5\nEntry: %.2f\nStop: %.2f\nTarget: %.2f\nR:R: %.2f\nFactors: %s",
		sig.Strategy, sig.Confidence, sig.Entry, sig.Stop, sig.Target, sig.RR,
		strings.Join(factors, ", "),
	)

	return mn.send(ctx, Notification{
		Type:    NotificationSignal,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":     sig.Symbol,
			"timeframe":  string(sig.Timeframe),
			"strategy":   sig.Strategy,
			"direction":  string(sig.Direction),
			"confidence": sig.Confidence,
			"entry":      sig.Entry,
			"stop":       sig.Stop,
			"target":     sig.Target,
			"rr":         sig.RR,
			"factors":    factors,
		},
	})
}

// TradeExit delivers an exit-signal alert.
func (mn *MultiNotifier) TradeExit(ctx context.Context, exit *models.ExitSignal) error {
	title := fmt.Sprintf("🚪 Exit %s %s", exit.Direction, exit.Symbol)
	message := fmt.Sprintf(
		"Reason: %s\nPrice: %.2f\nProfit: %.2f%%\nPeak: %.2f%%\nGiveback: %.0f%%",
		exit.Reason, exit.Price, exit.ProfitPct, exit.PeakPct, exit.Giveback*100,
	)

	return mn.send(ctx, Notification{
		Type:    NotificationExit,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":     exit.Symbol,
			"direction":  string(exit.Direction),
			"reason":     string(exit.Reason),
			"price":      exit.Price,
			"profit_pct": exit.ProfitPct,
			"peak_pct":   exit.PeakPct,
			"giveback":   exit.Giveback,
		},
	})
}

// HealthChanged delivers a pause or resume alert.
func (mn *MultiNotifier) HealthChanged(ctx context.Context, event health.Event) error {
	var title, message string
	if event.Paused {
		title = fmt.Sprintf("⏸️ Paused: %s", event.Symbol)
		message = fmt.Sprintf("Consecutive failures: %d\nLast reason: %s", event.Failures, event.Reason)
	} else {
		title = fmt.Sprintf("▶️ Resumed: %s", event.Symbol)
		message = "Symbol resumed by operator"
	}

	return mn.send(ctx, Notification{
		Type:    NotificationHealth,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"symbol":   event.Symbol,
			"paused":   event.Paused,
			"failures": event.Failures,
			"reason":   event.Reason,
		},
	})
}

// NoOpNotifier discards every event.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a notifier that does nothing.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

func (n *NoOpNotifier) SignalConfirmed(ctx context.Context, sig *models.ConfirmedSignal) error {
	return nil
}

func (n *NoOpNotifier) TradeExit(ctx context.Context, exit *models.ExitSignal) error {
	return nil
}

func (n *NoOpNotifier) HealthChanged(ctx context.Context, event health.Event) error {
	return nil
}
