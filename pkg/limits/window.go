package limits

import "time"

// Window is an inclusive time range derived from a request timestamp.
// Windows are computed on demand and never stored.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// DailyWindow returns the calendar day containing t in t's own location.
func DailyWindow(t time.Time) Window {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return Window{
		Start: start,
		End:   start.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

// WeeklyWindow returns the Monday-to-Sunday week containing t in t's own location.
func WeeklyWindow(t time.Time) Window {
	// Days since Monday: Monday=0 ... Sunday=6.
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	start := time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
	return Window{
		Start: start,
		End:   start.AddDate(0, 0, 7).Add(-time.Nanosecond),
	}
}
