// Package budget tracks per-request token, cost, and time consumption
// and drives the degradation ladder when a request runs hot.
package budget

import (
	"sync"
	"time"
)

// Limits caps a single request along three dimensions.
type Limits struct {
	MaxTokens    int
	MaxCostCents float64
	MaxDuration  time.Duration
}

// Headroom allows in-flight call settlement to overshoot a limit
// slightly; the ledger never records totals beyond 1.05 × limit.
const Headroom = 1.05

// Ledger is the per-request accumulator of tokens, cost, and elapsed
// time. It is created at request entry, shared by every task of the
// request, and discarded at response emission. All methods are safe
// for concurrent use.
type Ledger struct {
	mu sync.Mutex

	limits    Limits
	tokens    int
	costCents float64
	startedAt time.Time
	warnings  []string

	now func() time.Time
}

// NewLedger creates a ledger with the given limits, started now.
func NewLedger(limits Limits) *Ledger {
	return newLedgerAt(limits, time.Now)
}

func newLedgerAt(limits Limits, now func() time.Time) *Ledger {
	return &Ledger{limits: limits, startedAt: now(), now: now}
}

// CanAfford reports whether adding the estimates would stay within every
// limit and the request still has wall-clock time left.
func (l *Ledger) CanAfford(estimatedTokens int, estimatedCostCents float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tokens+estimatedTokens > l.limits.MaxTokens {
		return false
	}
	if l.costCents+estimatedCostCents > l.limits.MaxCostCents {
		return false
	}
	return l.now().Sub(l.startedAt) < l.limits.MaxDuration
}

// Record accumulates actual usage after a call settles. It never
// rejects; exceeding a limit is a signal the caller reads through
// CanAfford and RemainingRatio. Totals are clamped to Headroom × limit.
func (l *Ledger) Record(tokens int, costCents float64, callLatency time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens += tokens
	if maxT := int(float64(l.limits.MaxTokens) * Headroom); l.tokens > maxT {
		l.tokens = maxT
	}
	l.costCents += costCents
	if maxC := l.limits.MaxCostCents * Headroom; l.costCents > maxC {
		l.costCents = maxC
	}
	_ = callLatency // wall clock is tracked from startedAt, not per call
}

// RemainingRatio returns min((limit-used)/limit) across tokens, cost,
// and time, clamped to [0,1].
func (l *Ledger) RemainingRatio() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	ratio := 1.0
	if l.limits.MaxTokens > 0 {
		ratio = min(ratio, float64(l.limits.MaxTokens-l.tokens)/float64(l.limits.MaxTokens))
	}
	if l.limits.MaxCostCents > 0 {
		ratio = min(ratio, (l.limits.MaxCostCents-l.costCents)/l.limits.MaxCostCents)
	}
	if l.limits.MaxDuration > 0 {
		elapsed := l.now().Sub(l.startedAt)
		ratio = min(ratio, float64(l.limits.MaxDuration-elapsed)/float64(l.limits.MaxDuration))
	}
	return max(0, min(1, ratio))
}

// RemainingDuration returns how much wall-clock time the request has left.
func (l *Ledger) RemainingDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return max(0, l.limits.MaxDuration-l.now().Sub(l.startedAt))
}

// Deadline returns the absolute point at which the request must stop.
func (l *Ledger) Deadline() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.startedAt.Add(l.limits.MaxDuration)
}

// AddWarning accumulates a warning tag emitted on the final response.
func (l *Ledger) AddWarning(tag string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, w := range l.warnings {
		if w == tag {
			return
		}
	}
	l.warnings = append(l.warnings, tag)
}

// Warnings returns a snapshot of the accumulated warning tags.
func (l *Ledger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.warnings))
	copy(out, l.warnings)
	return out
}

// Usage returns the recorded totals.
func (l *Ledger) Usage() (tokens int, costCents float64, elapsed time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens, l.costCents, l.now().Sub(l.startedAt)
}
