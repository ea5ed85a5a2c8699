package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSortByDate(t *testing.T) {
	bars := []Bar{
		{Date: day(2026, 3, 3)},
		{Date: day(2026, 3, 5)},
		{Date: day(2026, 3, 4)},
	}

	SortByDateDesc(bars)
	assert.Equal(t, day(2026, 3, 5), bars[0].Date)
	assert.Equal(t, day(2026, 3, 3), bars[2].Date)

	SortByDateAsc(bars)
	assert.Equal(t, day(2026, 3, 3), bars[0].Date)
	assert.Equal(t, day(2026, 3, 5), bars[2].Date)
}

func TestBarRange(t *testing.T) {
	b := Bar{High: 120, Low: 100}
	assert.Equal(t, 20.0, b.Range())
}

func TestSameDay(t *testing.T) {
	kst := time.FixedZone("KST", 9*60*60)

	bar := time.Date(2026, 3, 4, 0, 0, 0, 0, kst)
	assert.True(t, SameDay(bar, time.Date(2026, 3, 4, 14, 30, 0, 0, kst)))
	assert.False(t, SameDay(bar, time.Date(2026, 3, 5, 9, 0, 0, 0, kst)))

	// 2026-03-04 01:00 KST is still 2026-03-03 in UTC; the bar's location wins.
	early := time.Date(2026, 3, 3, 16, 0, 0, 0, time.UTC)
	assert.True(t, SameDay(bar, early))
}

func TestTotalQuantity(t *testing.T) {
	positions := []Position{
		{Instrument: "A069500", Quantity: 3},
		{Instrument: "A091180", Quantity: 0},
		{Instrument: "A102780", Quantity: 7},
	}
	assert.Equal(t, int64(10), TotalQuantity(positions))
}
