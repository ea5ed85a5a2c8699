// Package broker defines the collaborator contracts the trading core
// consumes: market data, account queries, and order submission. The core
// never talks HTTP directly; implementations live in subpackages.
package broker

import (
	"context"
	"time"

	"github.com/rustyeddy/daytrader/market"
)

type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// TimeInForce constrains how long a submitted order may work.
type TimeInForce string

const (
	// FOK fills the full quantity immediately or cancels the whole order.
	FOK TimeInForce = "FOK"
	// IOC fills whatever is immediately available and cancels the rest.
	IOC TimeInForce = "IOC"
)

// PriceMode selects how the venue prices the order.
type PriceMode string

const (
	// MostFavorable lets the venue fill at the best available counter-price.
	MostFavorable PriceMode = "most_favorable"
	Limit         PriceMode = "limit"
)

// OrderRequest is immutable once constructed and submitted at most once per
// Submit call; retries are always an explicit caller decision.
type OrderRequest struct {
	ClientID   string
	Side       Side
	Instrument string
	Quantity   int64
	TIF        TimeInForce
	PriceMode  PriceMode
	LimitPrice float64 // Limit mode only
}

type SubmitCode int

const (
	// OK means the venue acknowledged the order. An acknowledgment is not
	// proof of fill; callers confirm by re-querying positions.
	OK SubmitCode = iota
	// RateLimited means the continuous-order-frequency guard rejected the
	// order. RetryAfter carries the venue-reported remaining cooldown.
	RateLimited
	// Rejected covers every other non-success code.
	Rejected
)

func (c SubmitCode) String() string {
	switch c {
	case OK:
		return "ok"
	case RateLimited:
		return "rate_limited"
	default:
		return "rejected"
	}
}

// SubmitStatus is the typed outcome of an order submission.
type SubmitStatus struct {
	Code       SubmitCode
	RetryAfter time.Duration // RateLimited only
	Reason     string        // Rejected detail, empty otherwise
}

// MarketData wraps the venue's quote and daily-history queries. Pure read,
// no state.
type MarketData interface {
	GetQuote(ctx context.Context, instrument string) (market.Quote, error)
	// GetDailyBars returns up to count daily bars. The ordering is not
	// guaranteed stable; callers sort by date.
	GetDailyBars(ctx context.Context, instrument string, count int) ([]market.Bar, error)
}

// AccountQuery reads the authoritative account state held by the broker.
type AccountQuery interface {
	GetPositions(ctx context.Context) ([]market.Position, error)
	GetAvailableCash(ctx context.Context) (float64, error)
}

// OrderSubmitter routes orders. A non-nil error means the submission outcome
// is unknown (transport failure); a nil error with a non-OK status is a
// definitive venue rejection.
type OrderSubmitter interface {
	Submit(ctx context.Context, req OrderRequest) (SubmitStatus, error)
}

// NameResolver maps an instrument code to its display name.
type NameResolver interface {
	ResolveName(ctx context.Context, instrument string) (string, error)
}

// Gateway is the full broker surface the session controller wires up.
type Gateway interface {
	MarketData
	AccountQuery
	OrderSubmitter
	NameResolver

	// Ping verifies the trading link is up before the session starts.
	Ping(ctx context.Context) error
}
