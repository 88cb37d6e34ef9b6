package filter

import (
	"sync"
	"time"

	"market-scanner/internal/models"
)

// maxEntriesPerSymbol bounds each symbol's history independent of the
// time-based retention.
const maxEntriesPerSymbol = 64

// Entry is one record in a symbol's signal history. Rejected
// duplicates are recorded too so operations can see suppression
// churn, but duplicate matching only considers confirmed entries.
type Entry struct {
	Symbol    string
	Timeframe models.Timeframe
	Direction models.Direction
	Entry     float64
	Strategy  string
	CreatedAt time.Time
	Duplicate bool
}

// History is a per-symbol, time-ordered record of recent signals used
// for duplicate and multi-timeframe checks. Each symbol's slice is
// independent; the mutex only guards the outer map and the slice
// headers, so cross-symbol contention stays negligible.
type History struct {
	mu        sync.Mutex
	bySymbol  map[string][]Entry
	retention map[bool]time.Duration // keyed by Timeframe.IsIntraday()
}

// NewHistory creates a history with the given retention windows.
// Intraday entries expire after intradayRetention, higher-timeframe
// entries after dailyRetention.
func NewHistory(intradayRetention, dailyRetention time.Duration) *History {
	return &History{
		bySymbol: make(map[string][]Entry),
		retention: map[bool]time.Duration{
			true:  intradayRetention,
			false: dailyRetention,
		},
	}
}

// Record appends an entry to the symbol's history, pruning expired
// entries first.
func (h *History) Record(e Entry, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.pruneLocked(e.Symbol, now)
	entries = append(entries, e)
	if len(entries) > maxEntriesPerSymbol {
		entries = entries[len(entries)-maxEntriesPerSymbol:]
	}
	h.bySymbol[e.Symbol] = entries
}

// RecentMatch returns the most recent confirmed entry for the symbol
// and direction within the window, or false when none exists.
func (h *History) RecentMatch(symbol string, dir models.Direction, window time.Duration, now time.Time) (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := h.pruneLocked(symbol, now)
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Duplicate || e.Direction != dir {
			continue
		}
		if now.Sub(e.CreatedAt) <= window {
			return e, true
		}
		break
	}
	return Entry{}, false
}

// HasAgreement reports whether an unexpired confirmed entry exists for
// the symbol and direction on a timeframe other than tf.
func (h *History) HasAgreement(symbol string, dir models.Direction, tf models.Timeframe, now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, e := range h.pruneLocked(symbol, now) {
		if !e.Duplicate && e.Direction == dir && e.Timeframe != tf {
			return true
		}
	}
	return false
}

// Len returns the number of live entries for the symbol.
func (h *History) Len(symbol string, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.pruneLocked(symbol, now))
}

func (h *History) pruneLocked(symbol string, now time.Time) []Entry {
	entries := h.bySymbol[symbol]
	keep := entries[:0]
	for _, e := range entries {
		if now.Sub(e.CreatedAt) <= h.retention[e.Timeframe.IsIntraday()] {
			keep = append(keep, e)
		}
	}
	if len(keep) == 0 {
		delete(h.bySymbol, symbol)
		return nil
	}
	h.bySymbol[symbol] = keep
	return keep
}
