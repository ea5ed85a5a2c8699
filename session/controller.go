// Package session drives the trading day: a poll loop that reads the wall
// clock, derives the current phase, and dispatches entries or liquidation.
// The controller owns the single logical thread of control; every broker
// call it triggers blocks until the broker responds.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/daytrader/broker"
	"github.com/rustyeddy/daytrader/executor"
	"github.com/rustyeddy/daytrader/journal"
	"github.com/rustyeddy/daytrader/ledger"
	"github.com/rustyeddy/daytrader/metrics"
	"github.com/rustyeddy/daytrader/notify"
	"github.com/rustyeddy/daytrader/pkg/id"
)

// Config wires a Controller. Gateway, Executor and Ledger are required.
type Config struct {
	Instruments      []string
	TargetEntryCount int
	BudgetFraction   float64
	Windows          Windows

	// Tick is the poll interval. Zero selects three seconds.
	Tick time.Duration
	// ReconcileMinute is the minute-of-hour at which the entry window runs
	// its account reconciliation check.
	ReconcileMinute int
	// EntryPause is the fixed delay between per-instrument buy attempts.
	// Zero selects one second.
	EntryPause time.Duration

	Gateway  broker.Gateway
	Executor *executor.Executor
	Ledger   *ledger.Ledger
	Journal  journal.Journal
	Sink     notify.Sink
	Log      zerolog.Logger
}

type Controller struct {
	instruments []string
	target      int
	fraction    float64
	windows     Windows
	tick        time.Duration
	reconcileAt int
	entryPause  time.Duration

	gw   broker.Gateway
	exec *executor.Executor
	led  *ledger.Ledger
	jnl  journal.Journal
	sink notify.Sink
	log  zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)

	// Session-scoped state. The settlement sweep runs once per session; the
	// flag (not the phase) records that it ran.
	settled       bool
	lastReconcile int // hour of the last reconciliation, -1 before any
	budget        float64
	lastPhase     Phase
}

func NewController(cfg Config) *Controller {
	if cfg.Tick <= 0 {
		cfg.Tick = 3 * time.Second
	}
	if cfg.EntryPause <= 0 {
		cfg.EntryPause = time.Second
	}
	jnl := cfg.Journal
	if jnl == nil {
		jnl = journal.Nop{}
	}
	var sink notify.Sink = cfg.Sink
	if sink == nil {
		sink = notify.Nop{}
	}

	return &Controller{
		instruments:   cfg.Instruments,
		target:        cfg.TargetEntryCount,
		fraction:      cfg.BudgetFraction,
		windows:       cfg.Windows,
		tick:          cfg.Tick,
		reconcileAt:   cfg.ReconcileMinute,
		entryPause:    cfg.EntryPause,
		gw:            cfg.Gateway,
		exec:          cfg.Executor,
		led:           cfg.Ledger,
		jnl:           jnl,
		sink:          sink,
		log:           cfg.Log.With().Str("comp", "session").Logger(),
		now:           time.Now,
		sleep:         sleepCtx,
		lastReconcile: -1,
		lastPhase:     Phase(-1),
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

// Run executes one full trading session and returns when the session is
// over. A nil error is a controlled termination (weekend skip, post-close
// shutdown) and maps to process exit code 0.
func (c *Controller) Run(ctx context.Context) error {
	now := c.now()
	if IsWeekend(now) {
		c.log.Info().Str("weekday", now.Weekday().String()).Msg("weekend, nothing to trade")
		c.sink.Notify(ctx, fmt.Sprintf("today is %s, skipping session", now.Weekday()))
		return nil
	}

	if err := c.gw.Ping(ctx); err != nil {
		c.sink.Notify(ctx, "broker connection check failed: "+err.Error())
		return fmt.Errorf("broker connection check: %w", err)
	}
	c.log.Info().Msg("broker connection check passed")
	c.sink.Notify(ctx, "broker connection check passed")

	if err := c.preamble(ctx); err != nil {
		return err
	}

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		done := c.step(ctx)
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			c.recordEvent("interrupted", ctx.Err().Error())
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// preamble initializes the session ledger and budget from the broker's
// authoritative account state. Nothing here is persisted; a restart simply
// re-derives it.
func (c *Controller) preamble(ctx context.Context) error {
	positions, err := c.gw.GetPositions(ctx)
	if err != nil {
		return fmt.Errorf("initial positions query: %w", err)
	}
	c.led.SetPositions(positions)
	metrics.PositionsHeld.Set(float64(c.led.TotalQuantity()))

	cash, err := c.gw.GetAvailableCash(ctx)
	if err != nil {
		return fmt.Errorf("initial cash query: %w", err)
	}
	c.budget = cash * c.fraction

	c.log.Info().
		Float64("cash", cash).
		Float64("fraction", c.fraction).
		Float64("budget", c.budget).
		Int("positions", len(positions)).
		Int("target_entries", c.target).
		Msg("session initialized")

	summary := fmt.Sprintf("session start: cash %.0f, per-instrument budget %.0f, %d held positions, target %d entries",
		cash, c.budget, len(positions), c.target)
	for _, p := range positions {
		summary += fmt.Sprintf("\n  %s (%s): %d", p.Instrument, p.Name, p.Quantity)
	}
	c.sink.Notify(ctx, summary)
	c.recordEvent("session_start", summary)
	return nil
}

// step runs one tick. It returns true when the session is over and the
// process should exit. A panic anywhere in the tick body is caught here so
// the controller never crashes outside its terminal phases.
func (c *Controller) step(ctx context.Context) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("tick panicked, continuing")
			c.sink.Notify(ctx, fmt.Sprintf("tick panicked: %v", r))
		}
	}()

	now := c.now()
	phase := c.windows.PhaseAt(now)
	metrics.Phase.Set(float64(phase))
	if phase != c.lastPhase {
		c.log.Info().Str("phase", phase.String()).Msg("phase change")
		c.recordEvent("phase", phase.String())
		c.lastPhase = phase
	}

	switch phase {
	case PreOpen:
		// idle until open

	case SettlementWindow:
		if !c.settled {
			c.settled = true
			c.log.Info().Msg("settlement window: clearing overnight exposure")
			c.sink.Notify(ctx, "settlement window: liquidating stale overnight positions")
			if err := c.exec.SellAll(ctx); err != nil {
				c.log.Error().Err(err).Msg("settlement sweep aborted")
			}
		}

	case EntryWindow:
		c.entryPass(ctx, now)

	case LiquidationWindow:
		// Cap the sweep at the close so the Closed phase can terminate the
		// process unconditionally even if some position refuses to drain.
		sweepCtx, cancel := context.WithDeadline(ctx, c.windows.CloseTime(now))
		err := c.exec.SellAll(sweepCtx)
		cancel()
		if err == nil {
			c.log.Info().Msg("liquidation confirmed complete, shutting down")
			c.sink.Notify(ctx, "all positions liquidated, session done")
			c.recordEvent("session_end", "liquidation complete")
			return true
		}
		c.log.Warn().Err(err).Msg("liquidation sweep interrupted")

	case Closed:
		c.log.Info().Int64("held", c.led.TotalQuantity()).Msg("session closed, shutting down")
		c.sink.Notify(ctx, fmt.Sprintf("session closed, shutting down (held quantity: %d)", c.led.TotalQuantity()))
		c.recordEvent("session_end", "close reached")
		return true
	}

	return false
}

// entryPass walks the instrument universe attempting entries, pacing between
// instruments, while the bought count is below target. It also runs the
// hourly account reconciliation at the configured minute mark.
func (c *Controller) entryPass(ctx context.Context, now time.Time) {
	for _, instrument := range c.instruments {
		if ctx.Err() != nil {
			return
		}
		if c.led.BoughtCount() >= c.target {
			break
		}
		c.exec.Buy(ctx, instrument, c.budget)
		c.sleep(ctx, c.entryPause)
	}

	if now.Minute() == c.reconcileAt && c.lastReconcile != now.Hour() {
		c.lastReconcile = now.Hour()
		c.reconcile(ctx)
	}
}

// reconcile refreshes the ledger's position cache from the broker and
// broadcasts an account summary, so drift between the cache and the
// authoritative state is corrected at least hourly.
func (c *Controller) reconcile(ctx context.Context) {
	positions, err := c.gw.GetPositions(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("reconciliation: positions query failed")
		return
	}
	c.led.SetPositions(positions)
	metrics.PositionsHeld.Set(float64(c.led.TotalQuantity()))

	cash, err := c.gw.GetAvailableCash(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("reconciliation: cash query failed")
		return
	}

	summary := fmt.Sprintf("reconciliation: cash %.0f, %d positions, %d entries this session",
		cash, len(positions), c.led.BoughtCount())
	for _, p := range positions {
		summary += fmt.Sprintf("\n  %s (%s): %d", p.Instrument, p.Name, p.Quantity)
	}
	c.log.Info().Float64("cash", cash).Int("positions", len(positions)).Msg("account reconciled")
	c.sink.Notify(ctx, summary)
	c.recordEvent("reconcile", summary)
}

func (c *Controller) recordEvent(kind, detail string) {
	err := c.jnl.RecordEvent(journal.SessionEvent{
		ID:     id.New(),
		Time:   c.now(),
		Kind:   kind,
		Detail: detail,
	})
	if err != nil {
		c.log.Error().Err(err).Str("kind", kind).Msg("journal write failed")
	}
}
