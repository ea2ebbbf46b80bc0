package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Period tokens
const (
	PeriodToday        = "today"
	PeriodThisWeek     = "this-week"
	PeriodThisMonth    = "this-month"
	PeriodThisQuarter  = "this-quarter"
	PeriodThisYear     = "this-year"
	PeriodPast24Hours  = "past-24-hours"
	PeriodPast7Days    = "past-7-days"
	PeriodPast14Days   = "past-14-days"
	PeriodPast30Days   = "past-30-days"
	PeriodPast90Days   = "past-90-days"
	PeriodPastYear     = "past-year"
	DefaultPeriodToken = PeriodPast30Days
)

var pastDaysPattern = regexp.MustCompile(`^past-([0-9]+)-days$`)

// PeriodTokens lists the canonical tokens, calendar-aligned first
func PeriodTokens() []string {
	return []string{
		PeriodToday,
		PeriodThisWeek,
		PeriodThisMonth,
		PeriodThisQuarter,
		PeriodThisYear,
		PeriodPast24Hours,
		PeriodPast7Days,
		PeriodPast14Days,
		PeriodPast30Days,
		PeriodPast90Days,
		PeriodPastYear,
	}
}

// DateRange is an inclusive instant range
type DateRange struct {
	Token string
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// ContainsDay reports whether any instant of the calendar day lies within the range
func (r DateRange) ContainsDay(day time.Time) bool {
	key := DayKey(day.In(r.Start.Location()))
	return key >= DayKey(r.Start) && key <= DayKey(r.End)
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s..%s", DayKey(r.Start), DayKey(r.End))
}

// IsPeriodToken reports whether the token resolves without falling back
func IsPeriodToken(token string) bool {
	switch token {
	case PeriodToday, PeriodThisWeek, PeriodThisMonth, PeriodThisQuarter, PeriodThisYear,
		PeriodPast24Hours, PeriodPastYear:
		return true
	}
	_, ok := pastDays(token)
	return ok
}

// ResolvePeriod converts a period token into a concrete range relative to now.
// Unknown tokens resolve as past-30-days.
func ResolvePeriod(token string, firstDayOfWeek time.Weekday, now time.Time) DateRange {
	token = strings.ToLower(strings.TrimSpace(token))
	if !IsPeriodToken(token) {
		token = DefaultPeriodToken
	}

	r := DateRange{Token: token}
	switch token {
	case PeriodToday:
		r.Start, r.End = startOfDay(now), endOfDay(now)
	case PeriodThisWeek:
		r.Start = weekStart(now, firstDayOfWeek)
		r.End = endOfDay(r.Start.AddDate(0, 0, 6))
	case PeriodThisMonth:
		r.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		r.End = endOfDay(r.Start.AddDate(0, 1, -1))
	case PeriodThisQuarter:
		first := time.Month((int(now.Month())-1)/3*3 + 1)
		r.Start = time.Date(now.Year(), first, 1, 0, 0, 0, 0, now.Location())
		r.End = endOfDay(r.Start.AddDate(0, 3, -1))
	case PeriodThisYear:
		r.Start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		r.End = endOfDay(time.Date(now.Year(), time.December, 31, 0, 0, 0, 0, now.Location()))
	case PeriodPast24Hours:
		r.Start, r.End = now.Add(-24*time.Hour), now
	case PeriodPastYear:
		r.Start, r.End = now.AddDate(-1, 0, 0), now
	default:
		days, _ := pastDays(token)
		// today counts as the first of the N days
		r.Start, r.End = startOfDay(now.AddDate(0, 0, -(days-1))), now
	}
	return r
}

// ParseWeekday accepts 0-6 (Sunday=0) or an English weekday name
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return time.Sunday, fmt.Errorf("weekday out of range: %d", n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday: %q", s)
}

func pastDays(token string) (int, bool) {
	m := pastDaysPattern.FindStringSubmatch(token)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func weekStart(t time.Time, firstDayOfWeek time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(firstDayOfWeek) + 7) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}
