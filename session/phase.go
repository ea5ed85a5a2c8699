package session

import "time"

// Phase is the session-phase gate. Exactly one phase holds at any wall-clock
// instant; the controller re-derives it from the clock on every tick instead
// of storing it, so a restart lands in the right phase automatically.
type Phase int

const (
	PreOpen Phase = iota
	SettlementWindow
	EntryWindow
	LiquidationWindow
	Closed
)

func (p Phase) String() string {
	switch p {
	case PreOpen:
		return "pre-open"
	case SettlementWindow:
		return "settlement"
	case EntryWindow:
		return "entry"
	case LiquidationWindow:
		return "liquidation"
	default:
		return "closed"
	}
}

// Windows fixes the trading day's boundaries. Open and Close are minutes
// since midnight in the session's local time.
type Windows struct {
	Open      int
	Close     int
	Settle    time.Duration
	Liquidate time.Duration
}

// PhaseAt maps a timestamp to its phase. The intervals are half-open
// [start, end), so the day is partitioned with no gap and no overlap:
//
//	[00:00, open)                  PreOpen
//	[open, open+settle)            SettlementWindow
//	[open+settle, close-liquidate) EntryWindow
//	[close-liquidate, close)       LiquidationWindow
//	[close, 24:00)                 Closed
func (w Windows) PhaseAt(t time.Time) Phase {
	tod := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second

	open := time.Duration(w.Open) * time.Minute
	close := time.Duration(w.Close) * time.Minute

	switch {
	case tod < open:
		return PreOpen
	case tod < open+w.Settle:
		return SettlementWindow
	case tod < close-w.Liquidate:
		return EntryWindow
	case tod < close:
		return LiquidationWindow
	default:
		return Closed
	}
}

// CloseTime returns the closing instant on t's calendar day.
func (w Windows) CloseTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()).
		Add(time.Duration(w.Close) * time.Minute)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
