package filter

import (
	"fmt"
	"testing"
	"time"

	"market-scanner/internal/models"
)

func longEntry(tf models.Timeframe, entry float64, at time.Time) Entry {
	return Entry{
		Symbol:    "RELIANCE",
		Timeframe: tf,
		Direction: models.DirectionLong,
		Entry:     entry,
		Strategy:  "trend_alignment",
		CreatedAt: at,
	}
}

func TestHistoryRetention(t *testing.T) {
	h := NewHistory(4*time.Hour, 7*24*time.Hour)
	now := filterNow

	h.Record(longEntry(models.Timeframe15Min, 100, now.Add(-5*time.Hour)), now)
	h.Record(longEntry(models.Timeframe1Day, 100, now.Add(-5*time.Hour)), now)
	h.Record(longEntry(models.Timeframe15Min, 101, now.Add(-1*time.Hour)), now)

	// The stale intraday entry is pruned, the daily one survives its
	// longer retention.
	if got := h.Len("RELIANCE", now); got != 2 {
		t.Errorf("live entries = %d, want 2", got)
	}

	if got := h.Len("RELIANCE", now.Add(8*24*time.Hour)); got != 0 {
		t.Errorf("all entries should expire eventually, got %d", got)
	}
}

func TestHistoryRecentMatchSkipsDuplicates(t *testing.T) {
	h := NewHistory(4*time.Hour, 7*24*time.Hour)
	now := filterNow

	h.Record(longEntry(models.Timeframe15Min, 100, now.Add(-30*time.Minute)), now)
	dup := longEntry(models.Timeframe15Min, 100.4, now.Add(-10*time.Minute))
	dup.Duplicate = true
	h.Record(dup, now)

	e, ok := h.RecentMatch("RELIANCE", models.DirectionLong, time.Hour, now)
	if !ok {
		t.Fatal("expected a confirmed match")
	}
	if e.Entry != 100 {
		t.Errorf("match entry = %v, want the confirmed 100, not the rejected duplicate", e.Entry)
	}
}

func TestHistoryRecentMatchDirection(t *testing.T) {
	h := NewHistory(4*time.Hour, 7*24*time.Hour)
	now := filterNow

	h.Record(longEntry(models.Timeframe15Min, 100, now.Add(-10*time.Minute)), now)

	if _, ok := h.RecentMatch("RELIANCE", models.DirectionShort, time.Hour, now); ok {
		t.Error("opposite direction must not match")
	}
	if _, ok := h.RecentMatch("TCS", models.DirectionLong, time.Hour, now); ok {
		t.Error("other symbols must not match")
	}
}

func TestHistoryAgreementNeedsOtherTimeframe(t *testing.T) {
	h := NewHistory(4*time.Hour, 7*24*time.Hour)
	now := filterNow

	h.Record(longEntry(models.Timeframe15Min, 100, now.Add(-10*time.Minute)), now)

	if h.HasAgreement("RELIANCE", models.DirectionLong, models.Timeframe15Min, now) {
		t.Error("same timeframe is not multi-timeframe agreement")
	}
	if !h.HasAgreement("RELIANCE", models.DirectionLong, models.Timeframe1Hour, now) {
		t.Error("a confirmed 15m long should corroborate an hourly long")
	}
	if h.HasAgreement("RELIANCE", models.DirectionShort, models.Timeframe1Hour, now) {
		t.Error("agreement requires the same direction")
	}
}

func TestHistoryCapsEntriesPerSymbol(t *testing.T) {
	h := NewHistory(24*time.Hour, 7*24*time.Hour)
	now := filterNow

	for i := 0; i < maxEntriesPerSymbol+10; i++ {
		e := longEntry(models.Timeframe15Min, 100+float64(i), now.Add(time.Duration(i)*time.Minute))
		e.Strategy = fmt.Sprintf("s%d", i)
		h.Record(e, now.Add(time.Duration(i)*time.Minute))
	}

	lastAt := now.Add(time.Duration(maxEntriesPerSymbol+9) * time.Minute)
	if got := h.Len("RELIANCE", lastAt); got != maxEntriesPerSymbol {
		t.Errorf("entries = %d, want cap %d", got, maxEntriesPerSymbol)
	}

	// The newest entry survives the cap.
	e, ok := h.RecentMatch("RELIANCE", models.DirectionLong, time.Hour, lastAt)
	if !ok || e.Entry != 100+float64(maxEntriesPerSymbol+9) {
		t.Errorf("newest entry should survive, got %+v ok=%v", e, ok)
	}
}
