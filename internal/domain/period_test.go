package domain

import (
	"testing"
	"time"
)

// Saturday
var anchor = time.Date(2025, 11, 8, 15, 30, 0, 0, time.Local)

func TestResolvePeriod(t *testing.T) {
	tests := []struct {
		token     string
		fdow      time.Weekday
		wantStart string
		wantEnd   string
	}{
		{PeriodToday, time.Monday, "2025-11-08", "2025-11-08"},
		{PeriodThisWeek, time.Monday, "2025-11-03", "2025-11-09"},
		{PeriodThisWeek, time.Sunday, "2025-11-02", "2025-11-08"},
		{PeriodThisWeek, time.Saturday, "2025-11-08", "2025-11-14"},
		{PeriodThisMonth, time.Monday, "2025-11-01", "2025-11-30"},
		{PeriodThisQuarter, time.Monday, "2025-10-01", "2025-12-31"},
		{PeriodThisYear, time.Monday, "2025-01-01", "2025-12-31"},
		{PeriodPast7Days, time.Monday, "2025-11-02", "2025-11-08"},
		{PeriodPast30Days, time.Monday, "2025-10-10", "2025-11-08"},
		{PeriodPast24Hours, time.Monday, "2025-11-07", "2025-11-08"},
		{PeriodPastYear, time.Monday, "2024-11-08", "2025-11-08"},
		{"past-3-days", time.Monday, "2025-11-06", "2025-11-08"},
		{"next-decade", time.Monday, "2025-10-10", "2025-11-08"},
		{"", time.Monday, "2025-10-10", "2025-11-08"},
	}

	for _, tt := range tests {
		t.Run(tt.token+"/"+tt.fdow.String(), func(t *testing.T) {
			r := ResolvePeriod(tt.token, tt.fdow, anchor)
			if DayKey(r.Start) != tt.wantStart || DayKey(r.End) != tt.wantEnd {
				t.Errorf("got %s, want %s..%s", r, tt.wantStart, tt.wantEnd)
			}
			if r.Start.After(r.End) {
				t.Errorf("start after end: %v > %v", r.Start, r.End)
			}
		})
	}
}

func TestResolvePeriod_RelativeEndsNow(t *testing.T) {
	for _, token := range []string{PeriodPast24Hours, PeriodPast7Days, PeriodPastYear} {
		r := ResolvePeriod(token, time.Monday, anchor)
		if !r.End.Equal(anchor) {
			t.Errorf("%s: expected end at anchor, got %v", token, r.End)
		}
	}
	r := ResolvePeriod(PeriodPast24Hours, time.Monday, anchor)
	if r.End.Sub(r.Start) != 24*time.Hour {
		t.Errorf("past-24-hours must span exactly 24h, got %v", r.End.Sub(r.Start))
	}
}

func TestResolvePeriod_CalendarEndsAtLastInstant(t *testing.T) {
	r := ResolvePeriod(PeriodThisMonth, time.Monday, anchor)
	next := r.End.Add(time.Nanosecond)
	if next.Day() != 1 || next.Month() != time.December {
		t.Errorf("expected end to be the last instant of November, got %v", r.End)
	}
}

func TestResolvePeriod_WeekVersusRolling(t *testing.T) {
	c := NewClassifier("")
	records := []BacklinkRecord{
		{SourcePath: "2025-11-02.md", Occurrences: 1}, // Sunday, previous week
		{SourcePath: "2025-11-05.md", Occurrences: 1}, // Wednesday, current week
	}

	week := ResolvePeriod(PeriodThisWeek, time.Monday, anchor)
	rolling := ResolvePeriod(PeriodPast7Days, time.Monday, anchor)

	if week.Start.Equal(rolling.Start) {
		t.Fatal("this-week and past-7-days must differ on a Saturday")
	}
	if got := c.BucketByRange(records, week.Start, week.End).Total(); got != 1 {
		t.Errorf("this-week: expected 1, got %d", got)
	}
	if got := c.BucketByRange(records, rolling.Start, rolling.End).Total(); got != 2 {
		t.Errorf("past-7-days: expected 2, got %d", got)
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{"1", time.Monday, false},
		{"0", time.Sunday, false},
		{"monday", time.Monday, false},
		{"Sat", time.Saturday, false},
		{"7", time.Sunday, true},
		{"someday", time.Sunday, true},
	}
	for _, tt := range tests {
		got, err := ParseWeekday(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWeekday(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
