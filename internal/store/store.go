// Package store persists confirmed signals, rejections, closed trades
// and health events for reporting.
package store

import (
	"context"
	"time"

	"market-scanner/internal/models"
)

// Store is the persistence surface the scanner writes through. All
// writes happen after signal computation completes; nothing in the
// evaluation path blocks on the store.
type Store interface {
	SaveSignal(ctx context.Context, sig *models.ConfirmedSignal) error
	SaveRejection(ctx context.Context, symbol string, tf models.Timeframe, strategy string, rej *models.Rejection, at time.Time) error
	SaveClosedTrade(ctx context.Context, trade *models.ActiveTrade) error
	SaveHealthEvent(ctx context.Context, symbol string, paused bool, failures int, reason string, at time.Time) error

	// RecentSignals returns confirmed signals for the symbol newer
	// than since, oldest first, for seeding signal history on restart.
	RecentSignals(ctx context.Context, symbol string, since time.Time) ([]SignalRecord, error)

	Close() error
}

// SignalRecord is the persisted shape of a confirmed signal.
type SignalRecord struct {
	Symbol     string
	Timeframe  models.Timeframe
	Strategy   string
	Direction  models.Direction
	Entry      float64
	Stop       float64
	Target     float64
	Confidence int
	RR         float64
	Factors    []string
	CreatedAt  time.Time
}

// NopStore discards all writes. Used when persistence is disabled.
type NopStore struct{}

// NewNopStore creates a store that does nothing.
func NewNopStore() *NopStore {
	return &NopStore{}
}

func (n *NopStore) SaveSignal(ctx context.Context, sig *models.ConfirmedSignal) error {
	return nil
}

func (n *NopStore) SaveRejection(ctx context.Context, symbol string, tf models.Timeframe, strategy string, rej *models.Rejection, at time.Time) error {
	return nil
}

func (n *NopStore) SaveClosedTrade(ctx context.Context, trade *models.ActiveTrade) error {
	return nil
}

func (n *NopStore) SaveHealthEvent(ctx context.Context, symbol string, paused bool, failures int, reason string, at time.Time) error {
	return nil
}

func (n *NopStore) RecentSignals(ctx context.Context, symbol string, since time.Time) ([]SignalRecord, error) {
	return nil, nil
}

func (n *NopStore) Close() error {
	return nil
}
