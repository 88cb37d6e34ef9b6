package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"market-scanner/pkg/utils"
)

// ConfluenceFactor is one of a fixed set of independent technical
// conditions whose count drives confidence scoring.
type ConfluenceFactor string

const (
	FactorTrend         ConfluenceFactor = "trend"
	FactorVolume        ConfluenceFactor = "volume"
	FactorMomentum      ConfluenceFactor = "momentum"
	FactorPattern       ConfluenceFactor = "pattern"
	FactorLevel         ConfluenceFactor = "level"
	FactorMTFAgreement  ConfluenceFactor = "mtf_agreement"
	FactorVolatilityFit ConfluenceFactor = "volatility_fit"
)

// FactorUniverse returns the full set of confluence factors.
func FactorUniverse() []ConfluenceFactor {
	return []ConfluenceFactor{
		FactorTrend,
		FactorVolume,
		FactorMomentum,
		FactorPattern,
		FactorLevel,
		FactorMTFAgreement,
		FactorVolatilityFit,
	}
}

// FactorSet is a set of satisfied confluence factors.
type FactorSet map[ConfluenceFactor]struct{}

// NewFactorSet builds a set from the given factors.
func NewFactorSet(factors ...ConfluenceFactor) FactorSet {
	s := make(FactorSet, len(factors))
	for _, f := range factors {
		s[f] = struct{}{}
	}
	return s
}

// Add adds a factor to the set.
func (s FactorSet) Add(f ConfluenceFactor) {
	s[f] = struct{}{}
}

// Has reports whether the factor is satisfied.
func (s FactorSet) Has(f ConfluenceFactor) bool {
	_, ok := s[f]
	return ok
}

// Count returns the number of satisfied factors.
func (s FactorSet) Count() int {
	return len(s)
}

// Clone returns an independent copy of the set.
func (s FactorSet) Clone() FactorSet {
	c := make(FactorSet, len(s))
	for f := range s {
		c[f] = struct{}{}
	}
	return c
}

// Sorted returns the factors in stable order for logging and storage.
func (s FactorSet) Sorted() []ConfluenceFactor {
	out := make([]ConfluenceFactor, 0, len(s))
	for f := range s {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CandidateSignal is produced by a strategy detector. It is never
// mutated after creation; the quality filter builds a ConfirmedSignal
// from it on acceptance.
type CandidateSignal struct {
	Symbol    string
	Timeframe Timeframe
	Strategy  string
	Direction Direction

	Entry  float64
	Stop   float64
	Target float64

	Factors FactorSet
	Meta    map[string]string

	DetectedAt time.Time
}

// RiskReward returns the reward-to-risk ratio of the candidate, or 0
// when the stop distance is degenerate.
func (c *CandidateSignal) RiskReward() float64 {
	risk := math.Abs(c.Entry - c.Stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(c.Target-c.Entry) / risk
}

// ConfirmedSignal is a candidate that passed the quality filter.
type ConfirmedSignal struct {
	CandidateSignal

	Confidence int // 1..5
	RR         float64
	CreatedAt  time.Time
}

// DedupKey identifies near-identical signals: symbol, direction and
// the entry price rounded to two decimals.
func (s *ConfirmedSignal) DedupKey() string {
	return fmt.Sprintf("%s|%s|%.2f", s.Symbol, s.Direction, utils.RoundTo(s.Entry, 2))
}

// RejectReason is a machine-readable reason for a signal rejection or
// suppression. Rejections are expected outcomes, not errors.
type RejectReason string

const (
	RejectInsufficientConfluence RejectReason = "insufficient_confluence"
	RejectRiskRewardTooLow       RejectReason = "risk_reward_too_low"
	RejectDuplicate              RejectReason = "duplicate"
	RejectConflict               RejectReason = "conflict"
	RejectTradeOpen              RejectReason = "trade_open"
)

// Rejection carries the reason a signal was not emitted, plus enough
// detail for the operations layer to report it without re-deriving.
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}
