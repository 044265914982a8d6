package model

import "time"

type Kind string

const (
	KindOpening     Kind = "opening"
	KindAppointment Kind = "appointment"
)

func (k Kind) Valid() bool {
	return k == KindOpening || k == KindAppointment
}

type Recurrence string

const (
	RecurrenceOneTime Recurrence = "one_time"
	RecurrenceWeekly  Recurrence = "weekly"
)

func (r Recurrence) Valid() bool {
	return r == RecurrenceOneTime || r == RecurrenceWeekly
}

// Interval is an opening or an appointment. Start and End are wall-clock values; only
// their weekday, calendar date and clock time are ever interpreted.
type Interval struct {
	ID         string
	Kind       Kind
	Recurrence Recurrence
	Start      time.Time
	End        time.Time
	ExternalID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IntervalFilter selects intervals from the store. Zero values add no predicate.
type IntervalFilter struct {
	Kind        Kind
	Recurrence  Recurrence
	StartFrom   time.Time // start >= StartFrom
	EndUntil    time.Time // end <= EndUntil
	StartBefore time.Time // start < StartBefore
	Limit       int
}
