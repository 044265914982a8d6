package validation

import (
	"sort"
	"strings"
	"time"
)

const (
	FieldStart = "start"
	FieldEnd   = "end"

	MsgBeforeEnd   = "must be before end"
	MsgAligned     = "must be 30-minute aligned"
	MsgSameWeekday = "must be same weekday as start"
)

// Errors maps a field name to every rule it broke.
type Errors map[string][]string

func (e Errors) Add(field, reason string) {
	e[field] = append(e[field], reason)
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+strings.Join(e[f], ", "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Err returns nil when nothing was added.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// ValidateInterval checks every rule independently and reports all violations together.
// An aligned value has zero seconds; the 23:59 end sentinel must be 23:59:00 exactly.
func ValidateInterval(start, end time.Time) Errors {
	errs := Errors{}
	if !start.Before(end) {
		errs.Add(FieldStart, MsgBeforeEnd)
	}
	if !aligned(start) {
		errs.Add(FieldStart, MsgAligned)
	}
	if !aligned(end) && !endOfDay(end) {
		errs.Add(FieldEnd, MsgAligned)
	}
	if start.Weekday() != end.Weekday() {
		errs.Add(FieldEnd, MsgSameWeekday)
	}
	return errs
}

func aligned(t time.Time) bool {
	m := t.Minute()
	return (m == 0 || m == 30) && wholeMinute(t)
}

func endOfDay(t time.Time) bool {
	return t.Hour() == 23 && t.Minute() == 59 && wholeMinute(t)
}

func wholeMinute(t time.Time) bool {
	return t.Second() == 0 && t.Nanosecond() == 0
}
