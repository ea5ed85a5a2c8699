// Package signal computes the entry signals for the volatility-breakout
// strategy: a target entry price derived from the prior day's range and
// simple moving averages aligned to the last fully closed trading day.
//
// Every failure (missing data, short history, fetch errors) collapses to
// ErrNoSignal. The caller treats ErrNoSignal as "do not trade this
// instrument this tick"; it is never fatal.
package signal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/daytrader/broker"
	"github.com/rustyeddy/daytrader/market"
)

// ErrNoSignal means the signal could not be computed this tick.
var ErrNoSignal = errors.New("no signal")

const (
	// targetBars is how much daily history the target-price rule fetches.
	targetBars = 10
	// maBars is how much daily history the moving averages fetch; it must
	// cover the largest window plus today's still-forming bar.
	maBars = 20
)

// TargetPrice computes the volatility-breakout entry threshold from daily
// bars: todayOpen + 0.5 x (yesterdayHigh - yesterdayLow).
//
// Bars are sorted by date before any selection. If the most recent bar falls
// on today it is the still-forming session bar: its open is today's open and
// the bar before it is "yesterday". Otherwise the most recent bar is
// yesterday and today's open is approximated by its close (the pre-market
// fallback).
func TargetPrice(bars []market.Bar, today time.Time) (float64, error) {
	if len(bars) == 0 {
		return 0, fmt.Errorf("%w: no bars", ErrNoSignal)
	}
	sorted := append([]market.Bar(nil), bars...)
	market.SortByDateDesc(sorted)

	var todayOpen float64
	var yesterday market.Bar
	if market.SameDay(sorted[0].Date, today) {
		if len(sorted) < 2 {
			return 0, fmt.Errorf("%w: only today's bar available", ErrNoSignal)
		}
		todayOpen = sorted[0].Open
		yesterday = sorted[1]
	} else {
		yesterday = sorted[0]
		todayOpen = yesterday.Close
	}

	return todayOpen + 0.5*yesterday.Range(), nil
}

// MovingAverage computes a simple trailing mean of closing prices over
// window bars, evaluated at the last fully closed trading day. Today's
// still-forming bar never enters the trailing window.
func MovingAverage(bars []market.Bar, window int, today time.Time) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: window must be positive, got %d", ErrNoSignal, window)
	}

	closed := make([]market.Bar, 0, len(bars))
	for _, b := range bars {
		if market.SameDay(b.Date, today) {
			continue
		}
		closed = append(closed, b)
	}
	if len(closed) < window {
		return 0, fmt.Errorf("%w: need %d closed bars, got %d", ErrNoSignal, window, len(closed))
	}
	market.SortByDateAsc(closed)

	sum := 0.0
	for i := len(closed) - window; i < len(closed); i++ {
		sum += closed[i].Close
	}
	return sum / float64(window), nil
}

// Evaluator fetches daily history through the market-data collaborator and
// applies the pure rules above. It is stateless per call.
type Evaluator struct {
	data broker.MarketData
	now  func() time.Time
	log  zerolog.Logger
}

func NewEvaluator(data broker.MarketData, log zerolog.Logger) *Evaluator {
	return &Evaluator{
		data: data,
		now:  time.Now,
		log:  log.With().Str("comp", "signal").Logger(),
	}
}

// WithClock overrides the evaluator's notion of "now". Used by tests and by
// the controller so signal alignment follows the session clock.
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// TargetPrice returns the entry threshold for the instrument, or ErrNoSignal.
func (e *Evaluator) TargetPrice(ctx context.Context, instrument string) (float64, error) {
	bars, err := e.data.GetDailyBars(ctx, instrument, targetBars)
	if err != nil {
		e.log.Warn().Err(err).Str("instrument", instrument).Msg("target price: bar fetch failed")
		return 0, fmt.Errorf("%w: fetch bars: %v", ErrNoSignal, err)
	}
	return TargetPrice(bars, e.now())
}

// MovingAverage returns the window-day SMA for the instrument evaluated at
// the last closed day, or ErrNoSignal.
func (e *Evaluator) MovingAverage(ctx context.Context, instrument string, window int) (float64, error) {
	bars, err := e.data.GetDailyBars(ctx, instrument, maBars)
	if err != nil {
		e.log.Warn().Err(err).Str("instrument", instrument).Int("window", window).Msg("moving average: bar fetch failed")
		return 0, fmt.Errorf("%w: fetch bars: %v", ErrNoSignal, err)
	}
	return MovingAverage(bars, window, e.now())
}
