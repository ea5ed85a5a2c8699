// Package ledger holds the in-memory session state: a cache of broker
// positions and the set of instruments already entered this session.
//
// The ledger is a cache, not a source of truth. It is rebuilt from the
// broker's account query at session start and refreshed from position
// snapshots; a process restart re-derives everything. It is touched only
// from the controller goroutine, so no locking is needed.
package ledger

import (
	"sort"

	"github.com/rustyeddy/daytrader/market"
)

type Ledger struct {
	positions map[string]market.Position
	bought    map[string]struct{}
}

func New() *Ledger {
	return &Ledger{
		positions: make(map[string]market.Position),
		bought:    make(map[string]struct{}),
	}
}

// SetPositions replaces the cached snapshot with the broker-reported one.
func (l *Ledger) SetPositions(positions []market.Position) {
	l.positions = make(map[string]market.Position, len(positions))
	for _, p := range positions {
		l.positions[p.Instrument] = p
	}
}

// Positions returns the cached holdings sorted by instrument code.
func (l *Ledger) Positions() []market.Position {
	out := make([]market.Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Instrument < out[j].Instrument
	})
	return out
}

// Quantity returns the cached held quantity for an instrument, zero if none.
func (l *Ledger) Quantity(instrument string) int64 {
	return l.positions[instrument].Quantity
}

// TotalQuantity sums held quantity across all cached positions.
func (l *Ledger) TotalQuantity() int64 {
	return market.TotalQuantity(l.Positions())
}

// MarkBought records a confirmed entry. It returns false if the instrument
// was already recorded; an instrument enters the bought set at most once per
// session regardless of retries.
func (l *Ledger) MarkBought(instrument string) bool {
	if _, ok := l.bought[instrument]; ok {
		return false
	}
	l.bought[instrument] = struct{}{}
	return true
}

// Bought reports whether the instrument was entered this session.
func (l *Ledger) Bought(instrument string) bool {
	_, ok := l.bought[instrument]
	return ok
}

// BoughtCount returns how many instruments were entered this session.
func (l *Ledger) BoughtCount() int {
	return len(l.bought)
}
