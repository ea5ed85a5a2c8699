// Package executor submits orders and interprets the venue's responses. It
// owns the only mutation paths into the session ledger: Buy registers a
// confirmed entry, SellAll drains every held position before close.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rustyeddy/daytrader/broker"
	"github.com/rustyeddy/daytrader/journal"
	"github.com/rustyeddy/daytrader/ledger"
	"github.com/rustyeddy/daytrader/metrics"
	"github.com/rustyeddy/daytrader/notify"
	"github.com/rustyeddy/daytrader/pkg/id"
	"github.com/rustyeddy/daytrader/signal"
)

type Outcome int

const (
	// Skipped means no position change: precondition failed, signal absent,
	// entry condition not met, rejection, or unconfirmed fill.
	Skipped Outcome = iota
	// Filled means the entry was confirmed by a position re-query.
	Filled
	// RateLimited means the venue's order-frequency guard fired; the
	// executor already slept out the reported cooldown before returning.
	RateLimited
)

// Result is the outcome of a single Buy attempt.
type Result struct {
	Outcome    Outcome
	Quantity   int64         // Filled only
	RetryAfter time.Duration // RateLimited only
	Reason     string
}

// minCooldown floors venue-reported cooldowns; a zero or negative report
// still has to throttle the loop.
const minCooldown = time.Second

// Config wires an Executor. Gateway, Signals and Ledger are required.
type Config struct {
	Gateway broker.Gateway
	Signals *signal.Evaluator
	Ledger  *ledger.Ledger
	Journal journal.Journal
	Sink    notify.Sink
	Log     zerolog.Logger

	// SubmitInterval paces consecutive order submissions. Zero selects one
	// second, matching the venue's continuous-order guidance.
	SubmitInterval time.Duration
	// SettleDelay is how long to wait after an acknowledgment before the
	// confirming position re-query. Zero selects two seconds.
	SettleDelay time.Duration
	// SweepPause separates full liquidation sweep passes. Zero selects
	// thirty seconds.
	SweepPause time.Duration
}

type Executor struct {
	gw      broker.Gateway
	signals *signal.Evaluator
	ledger  *ledger.Ledger
	jnl     journal.Journal
	sink    notify.Sink
	log     zerolog.Logger

	pace       *rate.Limiter
	settle     time.Duration
	sweepPause time.Duration

	// sleep is context-aware and replaceable in tests.
	sleep func(ctx context.Context, d time.Duration)
}

func New(cfg Config) *Executor {
	if cfg.SubmitInterval <= 0 {
		cfg.SubmitInterval = time.Second
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = 2 * time.Second
	}
	if cfg.SweepPause <= 0 {
		cfg.SweepPause = 30 * time.Second
	}
	jnl := cfg.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}
	var sink notify.Sink = cfg.Sink
	if sink == nil {
		sink = notify.Nop{}
	}

	return &Executor{
		gw:         cfg.Gateway,
		signals:    cfg.Signals,
		ledger:     cfg.Ledger,
		jnl:        jnl,
		sink:       sink,
		log:        cfg.Log.With().Str("comp", "executor").Logger(),
		pace:       rate.NewLimiter(rate.Every(cfg.SubmitInterval), 1),
		settle:     cfg.SettleDelay,
		sweepPause: cfg.SweepPause,
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (x *Executor) skip(instrument, reason string) Result {
	metrics.EntrySkips.WithLabelValues(reason).Inc()
	x.log.Debug().Str("instrument", instrument).Str("reason", reason).Msg("buy skipped")
	return Result{Outcome: Skipped, Reason: reason}
}

// displayName resolves the venue name for log and notification text,
// falling back to the code itself.
func (x *Executor) displayName(ctx context.Context, instrument string) string {
	if p := x.ledger.Quantity(instrument); p > 0 {
		for _, pos := range x.ledger.Positions() {
			if pos.Instrument == instrument && pos.Name != "" {
				return pos.Name
			}
		}
	}
	name, err := x.gw.ResolveName(ctx, instrument)
	if err != nil || name == "" {
		return instrument
	}
	return name
}

// Buy attempts one entry into the instrument, spending at most budget. The
// entry condition requires the last price to clear the breakout target and
// both moving averages; a missing signal skips the instrument for this tick.
// A confirmed fill is the only path that marks the instrument bought, an
// acknowledgment alone never does.
func (x *Executor) Buy(ctx context.Context, instrument string, budget float64) Result {
	if x.ledger.Bought(instrument) {
		return x.skip(instrument, "already_bought")
	}

	quote, err := x.gw.GetQuote(ctx, instrument)
	if err != nil {
		x.log.Warn().Err(err).Str("instrument", instrument).Msg("quote fetch failed")
		return x.skip(instrument, "quote_error")
	}

	target, err := x.signals.TargetPrice(ctx, instrument)
	if err != nil {
		return x.skip(instrument, "no_signal")
	}
	ma5, err := x.signals.MovingAverage(ctx, instrument, 5)
	if err != nil {
		return x.skip(instrument, "no_signal")
	}
	ma10, err := x.signals.MovingAverage(ctx, instrument, 10)
	if err != nil {
		return x.skip(instrument, "no_signal")
	}

	if quote.Ask <= 0 {
		return x.skip(instrument, "no_ask")
	}
	qty := int64(budget / quote.Ask)
	if qty <= 0 {
		return x.skip(instrument, "budget_too_small")
	}

	if !(quote.Last > target && quote.Last > ma5 && quote.Last > ma10) {
		return x.skip(instrument, "condition_not_met")
	}

	name := x.displayName(ctx, instrument)
	x.log.Info().
		Str("instrument", instrument).
		Str("name", name).
		Int64("qty", qty).
		Float64("last", quote.Last).
		Float64("target", target).
		Float64("ma5", ma5).
		Float64("ma10", ma10).
		Msg("entry condition met")

	if err := x.pace.Wait(ctx); err != nil {
		return x.skip(instrument, "canceled")
	}

	orderID := id.New()
	status, err := x.gw.Submit(ctx, broker.OrderRequest{
		ClientID:   orderID,
		Side:       broker.Buy,
		Instrument: instrument,
		Quantity:   qty,
		TIF:        broker.FOK,
		PriceMode:  broker.MostFavorable,
	})
	if err != nil {
		metrics.Orders.WithLabelValues("buy", "error").Inc()
		x.recordOrder(orderID, instrument, name, broker.Buy, qty, "error", err.Error())
		x.log.Error().Err(err).Str("instrument", instrument).Msg("buy submission failed")
		return Result{Outcome: Skipped, Reason: "submit_error"}
	}

	switch status.Code {
	case broker.RateLimited:
		cooldown := status.RetryAfter
		if cooldown < minCooldown {
			cooldown = minCooldown
		}
		metrics.Orders.WithLabelValues("buy", "rate_limited").Inc()
		metrics.BackoffSeconds.Add(cooldown.Seconds())
		x.recordOrder(orderID, instrument, name, broker.Buy, qty, "rate_limited", cooldown.String())
		x.log.Warn().
			Str("instrument", instrument).
			Dur("cooldown", cooldown).
			Msg("continuous-order guard tripped, backing off")
		x.sleep(ctx, cooldown)
		return Result{Outcome: RateLimited, RetryAfter: cooldown}

	case broker.Rejected:
		metrics.Orders.WithLabelValues("buy", "rejected").Inc()
		x.recordOrder(orderID, instrument, name, broker.Buy, qty, "rejected", status.Reason)
		x.log.Warn().
			Str("instrument", instrument).
			Str("reason", status.Reason).
			Msg("buy rejected")
		return Result{Outcome: Skipped, Reason: "rejected: " + status.Reason}
	}

	// Acknowledged. Wait for settlement, then confirm the fill against the
	// broker's positions; FOK either filled in full or not at all.
	metrics.Orders.WithLabelValues("buy", "ok").Inc()
	x.recordOrder(orderID, instrument, name, broker.Buy, qty, "submitted", "")
	x.sleep(ctx, x.settle)

	positions, err := x.gw.GetPositions(ctx)
	if err != nil {
		x.log.Error().Err(err).Str("instrument", instrument).Msg("fill confirmation query failed")
		return Result{Outcome: Skipped, Reason: "confirm_error"}
	}
	x.ledger.SetPositions(positions)
	metrics.PositionsHeld.Set(float64(x.ledger.TotalQuantity()))

	filled := x.ledger.Quantity(instrument)
	if filled <= 0 {
		x.recordOrder(orderID, instrument, name, broker.Buy, qty, "no_fill", "")
		x.log.Info().Str("instrument", instrument).Msg("order acknowledged but no fill observed")
		return Result{Outcome: Skipped, Reason: "no_fill"}
	}

	x.ledger.MarkBought(instrument)
	x.recordOrder(orderID, instrument, name, broker.Buy, filled, "filled", "")
	msg := fmt.Sprintf("bought %s (%s): %d shares", name, instrument, filled)
	x.log.Info().Str("instrument", instrument).Int64("filled", filled).Msg("entry filled")
	x.sink.Notify(ctx, msg)
	return Result{Outcome: Filled, Quantity: filled}
}

// SellAll drains every held position with IOC most-favorable sell orders. It
// sweeps the account repeatedly, pacing between instruments and pausing
// between passes, until a pass observes zero total held quantity. Individual
// rejections are logged and the sweep moves on; leaving positions open past
// close is the worse outcome, so only context cancellation stops the loop
// early.
func (x *Executor) SellAll(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		positions, err := x.gw.GetPositions(ctx)
		if err != nil {
			x.log.Error().Err(err).Msg("sweep: positions query failed")
			x.sleep(ctx, x.sweepPause)
			continue
		}
		x.ledger.SetPositions(positions)
		total := x.ledger.TotalQuantity()
		metrics.PositionsHeld.Set(float64(total))
		if total == 0 {
			x.log.Info().Msg("liquidation complete, all positions flat")
			return nil
		}

		for _, p := range positions {
			if p.Quantity == 0 {
				continue
			}
			if err := x.pace.Wait(ctx); err != nil {
				return err
			}

			orderID := id.New()
			status, err := x.gw.Submit(ctx, broker.OrderRequest{
				ClientID:   orderID,
				Side:       broker.Sell,
				Instrument: p.Instrument,
				Quantity:   p.Quantity,
				TIF:        broker.IOC,
				PriceMode:  broker.MostFavorable,
			})
			if err != nil {
				metrics.Orders.WithLabelValues("sell", "error").Inc()
				x.recordOrder(orderID, p.Instrument, p.Name, broker.Sell, p.Quantity, "error", err.Error())
				x.log.Error().Err(err).Str("instrument", p.Instrument).Msg("sell submission failed, continuing sweep")
				continue
			}

			switch status.Code {
			case broker.RateLimited:
				cooldown := status.RetryAfter
				if cooldown < minCooldown {
					cooldown = minCooldown
				}
				metrics.Orders.WithLabelValues("sell", "rate_limited").Inc()
				metrics.BackoffSeconds.Add(cooldown.Seconds())
				x.recordOrder(orderID, p.Instrument, p.Name, broker.Sell, p.Quantity, "rate_limited", cooldown.String())
				x.log.Warn().
					Str("instrument", p.Instrument).
					Dur("cooldown", cooldown).
					Msg("sell rate-limited, waiting out cooldown")
				x.sleep(ctx, cooldown)

			case broker.Rejected:
				metrics.Orders.WithLabelValues("sell", "rejected").Inc()
				x.recordOrder(orderID, p.Instrument, p.Name, broker.Sell, p.Quantity, "rejected", status.Reason)
				x.log.Warn().
					Str("instrument", p.Instrument).
					Str("reason", status.Reason).
					Msg("sell rejected, continuing sweep")

			default:
				metrics.Orders.WithLabelValues("sell", "ok").Inc()
				x.recordOrder(orderID, p.Instrument, p.Name, broker.Sell, p.Quantity, "submitted", "")
				x.log.Info().
					Str("instrument", p.Instrument).
					Int64("qty", p.Quantity).
					Msg("IOC sell submitted")
			}
		}

		metrics.SweepPasses.Inc()
		x.sleep(ctx, x.sweepPause)
	}
}

func (x *Executor) recordOrder(orderID, instrument, name string, side broker.Side, qty int64, status, detail string) {
	err := x.jnl.RecordOrder(journal.OrderEvent{
		ID:         orderID,
		Time:       time.Now(),
		Instrument: instrument,
		Name:       name,
		Side:       string(side),
		Quantity:   qty,
		Status:     status,
		Detail:     detail,
	})
	if err != nil {
		x.log.Error().Err(err).Str("instrument", instrument).Msg("journal write failed")
	}
}
