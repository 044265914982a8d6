package availability

import (
	"time"

	"github.com/heri/availabilities/services/availability-service/internal/model"
)

// WindowDays is the number of calendar dates in an availability window.
const WindowDays = 7

// SelectSlots merges the slots of every interval that applies to date within the window
// starting at windowStart.
//
// Weekly intervals apply on their weekday as long as their first occurrence is strictly
// before windowStart+7d, however far in the past it was. One-time intervals apply when they
// lie inside [windowStart, windowStart+7d] and start on date.
func SelectSlots(intervals []model.Interval, date, windowStart time.Time) map[TimeOfDay]struct{} {
	windowEnd := windowStart.AddDate(0, 0, WindowDays)
	out := map[TimeOfDay]struct{}{}
	for _, iv := range intervals {
		if !applies(iv, date, windowStart, windowEnd) {
			continue
		}
		for _, s := range GenerateSlots(FromTime(iv.Start), FromTime(iv.End)) {
			out[s] = struct{}{}
		}
	}
	return out
}

func applies(iv model.Interval, date, windowStart, windowEnd time.Time) bool {
	if iv.Recurrence == model.RecurrenceWeekly {
		return iv.Start.Weekday() == date.Weekday() && iv.Start.Before(windowEnd)
	}
	if iv.Start.Before(windowStart) || iv.End.After(windowEnd) {
		return false
	}
	return sameDate(iv.Start, date)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
