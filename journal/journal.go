// Package journal records the session's order flow and lifecycle events so a
// trading day can be reconstructed after the fact. It complements the
// notification sink: the sink is for the operator in real time, the journal
// is the local audit record.
package journal

import "time"

// OrderEvent is one submission outcome: an order was submitted, filled,
// rejected, or rate-limited.
type OrderEvent struct {
	ID         string // client order ID (ULID)
	Time       time.Time
	Instrument string
	Name       string
	Side       string
	Quantity   int64
	Status     string // submitted | filled | rejected | rate_limited | no_fill
	Detail     string
}

// SessionEvent is a lifecycle marker: phase transitions, settlement sweep,
// reconciliation, shutdown.
type SessionEvent struct {
	ID     string
	Time   time.Time
	Kind   string
	Detail string
}

type Journal interface {
	RecordOrder(OrderEvent) error
	RecordEvent(SessionEvent) error
	Close() error
}

// Nop discards everything. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordOrder(OrderEvent) error     { return nil }
func (Nop) RecordEvent(SessionEvent) error   { return nil }
func (Nop) Close() error                     { return nil }
