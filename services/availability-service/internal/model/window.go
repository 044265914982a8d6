package model

// DateLayout is the calendar date format used in windows and cache keys.
const DateLayout = "2006-01-02"

type DayAvailability struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

// Window is the 7-day availability result for a start date.
type Window struct {
	StartDate string            `json:"start_date"`
	Days      []DayAvailability `json:"days"`
}

// Clone returns a deep copy so cached values never share slices with callers.
func (w Window) Clone() Window {
	out := Window{StartDate: w.StartDate, Days: make([]DayAvailability, len(w.Days))}
	for i, d := range w.Days {
		slots := make([]string, len(d.Slots))
		copy(slots, d.Slots)
		out.Days[i] = DayAvailability{Date: d.Date, Slots: slots}
	}
	return out
}
