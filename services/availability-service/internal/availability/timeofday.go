package availability

import (
	"fmt"
	"time"
)

const (
	secondsPerDay = 24 * 60 * 60
	// SlotSeconds is the length of one bookable slot.
	SlotSeconds = 30 * 60
)

// TimeOfDay is an offset in seconds from midnight, in [0, 86400).
type TimeOfDay int32

// FromClock builds a TimeOfDay from a 24h clock reading. Out-of-range input wraps into a day.
func FromClock(hour, minute int) TimeOfDay {
	s := (hour*3600 + minute*60) % secondsPerDay
	if s < 0 {
		s += secondsPerDay
	}
	return TimeOfDay(s)
}

// FromTime takes the wall-clock time of t in its own location and drops the date.
func FromTime(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(h*3600 + m*60 + s)
}

func (t TimeOfDay) Hour() int   { return int(t) / 3600 }
func (t TimeOfDay) Minute() int { return int(t) % 3600 / 60 }

// String renders H:MM on a 24h clock, e.g. 9:30 or 23:00.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())
}
