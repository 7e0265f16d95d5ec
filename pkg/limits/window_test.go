package limits

import (
	"testing"
	"time"
)

func TestDailyWindow(t *testing.T) {
	eastern := time.FixedZone("", -5*3600)

	tests := []struct {
		name      string
		at        time.Time
		wantStart time.Time
	}{
		{
			name:      "midday utc",
			at:        time.Date(2000, 1, 1, 12, 30, 0, 0, time.UTC),
			wantStart: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "exact midnight",
			at:        time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2000, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "last nanosecond of day",
			at:        time.Date(2000, 1, 1, 23, 59, 59, 999999999, time.UTC),
			wantStart: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "negative offset keeps local day",
			at:        time.Date(2000, 1, 1, 22, 0, 0, 0, eastern),
			wantStart: time.Date(2000, 1, 1, 0, 0, 0, 0, eastern),
		},
		{
			name:      "leap day",
			at:        time.Date(2000, 2, 29, 8, 0, 0, 0, time.UTC),
			wantStart: time.Date(2000, 2, 29, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := DailyWindow(tt.at)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Expected start %v, got %v", tt.wantStart, w.Start)
			}
			wantEnd := tt.wantStart.Add(24*time.Hour - time.Nanosecond)
			if !w.End.Equal(wantEnd) {
				t.Errorf("Expected end %v, got %v", wantEnd, w.End)
			}
			if !w.Contains(tt.at) {
				t.Errorf("Window %v..%v does not contain %v", w.Start, w.End, tt.at)
			}
		})
	}
}

func TestWeeklyWindow(t *testing.T) {
	monday := time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC) // 2000-01-03 is a Monday

	tests := []struct {
		name      string
		at        time.Time
		wantStart time.Time
	}{
		{"monday midnight", monday, monday},
		{"wednesday", time.Date(2000, 1, 5, 15, 0, 0, 0, time.UTC), monday},
		{"sunday last nanosecond", time.Date(2000, 1, 9, 23, 59, 59, 999999999, time.UTC), monday},
		{"next monday", time.Date(2000, 1, 10, 0, 0, 0, 0, time.UTC), monday.AddDate(0, 0, 7)},
		{"saturday before", time.Date(2000, 1, 1, 10, 0, 0, 0, time.UTC), time.Date(1999, 12, 27, 0, 0, 0, 0, time.UTC)},
		{"across month boundary", time.Date(2000, 3, 1, 9, 0, 0, 0, time.UTC), time.Date(2000, 2, 28, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := WeeklyWindow(tt.at)
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Expected start %v, got %v", tt.wantStart, w.Start)
			}
			if w.Start.Weekday() != time.Monday {
				t.Errorf("Expected week to start on Monday, got %s", w.Start.Weekday())
			}
			wantEnd := tt.wantStart.AddDate(0, 0, 7).Add(-time.Nanosecond)
			if !w.End.Equal(wantEnd) {
				t.Errorf("Expected end %v, got %v", wantEnd, w.End)
			}
			if !w.Contains(tt.at) {
				t.Errorf("Window %v..%v does not contain %v", w.Start, w.End, tt.at)
			}
		})
	}
}

func TestWindowsUseRequestOffset(t *testing.T) {
	plus14 := time.FixedZone("", 14*3600)

	// Sunday 2000-01-09 23:00 UTC is Monday 2000-01-10 13:00 at +14:00.
	at := time.Date(2000, 1, 10, 13, 0, 0, 0, plus14)

	w := WeeklyWindow(at)
	want := time.Date(2000, 1, 10, 0, 0, 0, 0, plus14)
	if !w.Start.Equal(want) {
		t.Errorf("Expected week start %v, got %v", want, w.Start)
	}

	utcWeek := WeeklyWindow(at.UTC())
	if utcWeek.Start.Equal(w.Start) {
		t.Error("Expected the UTC rendering to fall in the previous week")
	}
}
