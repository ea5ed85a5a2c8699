package market

import (
	"context"
	"time"
)

// Quote is a transient price snapshot for a single instrument. It is never
// persisted; the executor re-fetches one on every tick it evaluates.
type Quote struct {
	Instrument string
	Last       float64
	Ask        float64
	Bid        float64
	Time       time.Time
}

// Mid returns the midpoint of the best bid and ask.
func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// QuoteSource yields live price snapshots.
type QuoteSource interface {
	GetQuote(ctx context.Context, instrument string) (Quote, error)
}
