package market

import (
	"sort"
	"time"
)

// Bar is one trading day's OHLC, keyed by date. Daily bar feeds do not
// guarantee a stable ordering, so consumers sort with SortByDateDesc before
// picking "today" or "yesterday" by date comparison, never by position.
type Bar struct {
	Date  time.Time
	Open  float64
	High  float64
	Low   float64
	Close float64
}

// Range returns the high-low spread of the bar.
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// SortByDateDesc orders bars most-recent-first, in place.
func SortByDateDesc(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.After(bars[j].Date)
	})
}

// SortByDateAsc orders bars oldest-first, in place.
func SortByDateAsc(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
}

// SameDay reports whether a and b fall on the same calendar day. Bar dates
// and wall-clock timestamps may carry different locations, so both are
// compared in the bar's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
