package session

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/daytrader/broker"
	"github.com/rustyeddy/daytrader/executor"
	"github.com/rustyeddy/daytrader/ledger"
	"github.com/rustyeddy/daytrader/market"
	"github.com/rustyeddy/daytrader/signal"
)

// ctrlGateway is a scripted broker for controller tests. Position snapshots
// are consumed one per GetPositions call; the last one repeats.
type ctrlGateway struct {
	quote     market.Quote
	bars      []market.Bar
	positions [][]market.Position
	cash      float64

	pings     int
	submitted []broker.OrderRequest
}

func (f *ctrlGateway) GetQuote(context.Context, string) (market.Quote, error) {
	return f.quote, nil
}

func (f *ctrlGateway) GetDailyBars(context.Context, string, int) ([]market.Bar, error) {
	return f.bars, nil
}

func (f *ctrlGateway) GetPositions(context.Context) ([]market.Position, error) {
	if len(f.positions) == 0 {
		return nil, nil
	}
	snap := f.positions[0]
	if len(f.positions) > 1 {
		f.positions = f.positions[1:]
	}
	return snap, nil
}

func (f *ctrlGateway) GetAvailableCash(context.Context) (float64, error) {
	return f.cash, nil
}

func (f *ctrlGateway) ResolveName(_ context.Context, code string) (string, error) {
	return code, nil
}

func (f *ctrlGateway) Ping(context.Context) error {
	f.pings++
	return nil
}

func (f *ctrlGateway) Submit(_ context.Context, req broker.OrderRequest) (broker.SubmitStatus, error) {
	f.submitted = append(f.submitted, req)
	return broker.SubmitStatus{Code: broker.OK}, nil
}

// triggerBars makes the breakout gate pass for any quote.Last above 110.
func triggerBars() []market.Bar {
	day := func(offset int) time.Time {
		return time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	bars := make([]market.Bar, 0, 10)
	for i := 10; i >= 2; i-- {
		bars = append(bars, market.Bar{Date: day(-i), Open: 100, High: 101, Low: 99, Close: 100})
	}
	return append(bars, market.Bar{Date: day(-1), Open: 100, High: 120, Low: 100, Close: 100})
}

func newTestController(t *testing.T, gw *ctrlGateway, instruments []string, target int) *Controller {
	t.Helper()

	led := ledger.New()
	clock := func() time.Time { return at(10, 0, 0) }
	signals := signal.NewEvaluator(gw, zerolog.Nop()).WithClock(clock)

	exec := executor.New(executor.Config{
		Gateway:        gw,
		Signals:        signals,
		Ledger:         led,
		Log:            zerolog.Nop(),
		SubmitInterval: time.Millisecond,
		SettleDelay:    time.Millisecond,
		SweepPause:     time.Millisecond,
	})

	c := NewController(Config{
		Instruments:      instruments,
		TargetEntryCount: target,
		BudgetFraction:   0.19,
		Windows:          krxWindows(),
		Tick:             time.Millisecond,
		ReconcileMinute:  30,
		EntryPause:       time.Millisecond,
		Gateway:          gw,
		Executor:         exec,
		Ledger:           led,
		Log:              zerolog.Nop(),
	})
	c.now = clock
	c.sleep = func(context.Context, time.Duration) {}
	return c
}

func TestRunSkipsWeekend(t *testing.T) {
	gw := &ctrlGateway{}
	c := newTestController(t, gw, []string{"A069500"}, 1)
	c.now = func() time.Time {
		return time.Date(2026, 3, 7, 10, 0, 0, 0, time.UTC) // Saturday
	}

	err := c.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, gw.pings, "no broker traffic on a weekend")
	assert.Empty(t, gw.submitted)
}

func TestSettlementSweepRunsOncePerSession(t *testing.T) {
	gw := &ctrlGateway{
		positions: [][]market.Position{
			{{Instrument: "A005930", Name: "Samsung", Quantity: 4}},
			nil,
		},
	}
	c := newTestController(t, gw, []string{"A069500"}, 1)
	c.now = func() time.Time { return at(9, 2, 0) }

	assert.False(t, c.step(context.Background()))
	assert.Len(t, gw.submitted, 1, "overnight position liquidated")
	assert.Equal(t, broker.Sell, gw.submitted[0].Side)

	// A later tick inside the same window must not sweep again.
	assert.False(t, c.step(context.Background()))
	assert.Len(t, gw.submitted, 1)
}

func TestEntryWindowStopsAtTargetCount(t *testing.T) {
	gw := &ctrlGateway{
		quote: market.Quote{Last: 111, Ask: 100, Bid: 99},
		bars:  triggerBars(),
		positions: [][]market.Position{
			{{Instrument: "A069500", Name: "KODEX 200", Quantity: 10}},
		},
	}
	c := newTestController(t, gw, []string{"A069500", "A091180", "A102780"}, 1)
	c.budget = 1000

	assert.False(t, c.step(context.Background()))

	// The first instrument filled and reached the target; the remaining
	// instruments were not attempted.
	assert.Len(t, gw.submitted, 1)
	assert.Equal(t, "A069500", gw.submitted[0].Instrument)
	assert.Equal(t, 1, c.led.BoughtCount())
}

func TestEntryWindowRepeatedTicksBuyAtMostOnce(t *testing.T) {
	gw := &ctrlGateway{
		quote: market.Quote{Last: 111, Ask: 100, Bid: 99},
		bars:  triggerBars(),
		positions: [][]market.Position{
			{{Instrument: "A069500", Name: "KODEX 200", Quantity: 10}},
		},
	}
	c := newTestController(t, gw, []string{"A069500"}, 5)
	c.budget = 1000

	for i := 0; i < 4; i++ {
		assert.False(t, c.step(context.Background()))
	}
	assert.Len(t, gw.submitted, 1, "instrument entered at most once per session")
}

func TestLiquidationWindowCompletesAndTerminates(t *testing.T) {
	gw := &ctrlGateway{
		positions: [][]market.Position{
			{{Instrument: "A069500", Quantity: 10}},
			nil,
		},
	}
	c := newTestController(t, gw, []string{"A069500"}, 1)
	c.now = func() time.Time { return at(15, 16, 0) }

	done := c.step(context.Background())
	assert.True(t, done, "session ends once liquidation reports completion")
	assert.Len(t, gw.submitted, 1)
}

func TestClosedPhaseTerminatesUnconditionally(t *testing.T) {
	gw := &ctrlGateway{
		positions: [][]market.Position{
			{{Instrument: "A069500", Quantity: 10}}, // still held, exit anyway
		},
	}
	c := newTestController(t, gw, []string{"A069500"}, 1)
	c.now = func() time.Time { return at(15, 25, 0) }

	assert.True(t, c.step(context.Background()))
	assert.Empty(t, gw.submitted)
}

func TestPreambleInitializesBudgetFromBrokerState(t *testing.T) {
	gw := &ctrlGateway{
		cash: 1_000_000,
		positions: [][]market.Position{
			{{Instrument: "A005930", Name: "Samsung", Quantity: 2}},
		},
	}
	c := newTestController(t, gw, []string{"A069500"}, 1)

	err := c.preamble(context.Background())
	assert.NoError(t, err)
	assert.InDelta(t, 190_000, c.budget, 0.001)
	assert.Equal(t, int64(2), c.led.TotalQuantity())
}

func TestReconcileRunsOncePerHour(t *testing.T) {
	gw := &ctrlGateway{cash: 500_000}
	c := newTestController(t, gw, nil, 1)
	c.now = func() time.Time { return at(10, 30, 2) }

	assert.False(t, c.step(context.Background()))
	first := c.lastReconcile
	assert.Equal(t, 10, first)

	// Same minute on a later tick: no second reconciliation.
	assert.False(t, c.step(context.Background()))
	assert.Equal(t, first, c.lastReconcile)
}
