package domain

import (
	"path"
	"regexp"
	"sort"
	"strings"
	"time"
)

// DayLayout is the calendar-day key format used by bucket maps and daily note names
const DayLayout = "2006-01-02"

// MinBoundsYear is the earliest year a bounds window may start at
const MinBoundsYear = 1970

var datePattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// BacklinkRecord is one source document's contribution to a target's incoming links
type BacklinkRecord struct {
	SourcePath  string
	Occurrences int // Summed, never deduplicated to 1
}

// DaySummary aggregates the occurrences found in one daily note
type DaySummary struct {
	Occurrences int
	Context     []string // Lines of the daily note that reference the target (optional)
}

// BucketMap maps a day key (YYYY-MM-DD) to its summary. Missing keys mean zero.
type BucketMap map[string]DaySummary

// Total returns the sum of occurrences across all days
func (m BucketMap) Total() int {
	total := 0
	for _, d := range m {
		total += d.Occurrences
	}
	return total
}

// Keys returns the day keys in chronological order
func (m BucketMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Count returns the occurrences recorded for a day key
func (m BucketMap) Count(dayKey string) int {
	return m[dayKey].Occurrences
}

// Classifier decides which documents are daily notes and buckets them by date
type Classifier struct {
	Folder string // Journaling folder, empty means anywhere in the vault
}

// NewClassifier creates a classifier for the given daily notes folder
func NewClassifier(folder string) Classifier {
	return Classifier{Folder: normalizeFolder(folder)}
}

// IsDailyNote reports whether the document is a daily note
func (c Classifier) IsDailyNote(docPath string) bool {
	if !c.inFolder(docPath) {
		return false
	}
	_, ok := ExtractDate(docPath)
	return ok
}

// DailyDate returns the date of a qualifying daily note
func (c Classifier) DailyDate(docPath string) (time.Time, bool) {
	if !c.inFolder(docPath) {
		return time.Time{}, false
	}
	return ExtractDate(docPath)
}

func (c Classifier) inFolder(docPath string) bool {
	folder := normalizeFolder(c.Folder)
	if folder == "" {
		return true
	}
	p := strings.TrimPrefix(toSlash(docPath), "/")
	return strings.HasPrefix(strings.ToLower(p), strings.ToLower(folder)+"/")
}

// ExtractDate returns the first YYYY-MM-DD date in the document's name.
// A pattern that is not a real calendar date (2025-02-30) yields false.
func ExtractDate(docPath string) (time.Time, bool) {
	name := path.Base(toSlash(docPath))
	match := datePattern.FindString(name)
	if match == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DayLayout, match, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DayKey formats a time as a bucket key in its own location
func DayKey(t time.Time) string {
	return t.Format(DayLayout)
}

// BucketByYear buckets the daily notes of one calendar year
func (c Classifier) BucketByYear(records []BacklinkRecord, year int) BucketMap {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.Local)
	end := time.Date(year, time.December, 31, 0, 0, 0, 0, time.Local)
	return c.BucketByRange(records, start, end)
}

// BucketByMonth buckets the daily notes of one calendar month
func (c Classifier) BucketByMonth(records []BacklinkRecord, month time.Month, year int) BucketMap {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 1, -1)
	return c.BucketByRange(records, start, end)
}

// BucketByRange buckets daily notes whose date lies in [start, end], both days inclusive
func (c Classifier) BucketByRange(records []BacklinkRecord, start, end time.Time) BucketMap {
	from, to := DayKey(start), DayKey(end)
	buckets := make(BucketMap)
	for _, r := range records {
		if r.Occurrences <= 0 {
			continue
		}
		date, ok := c.DailyDate(r.SourcePath)
		if !ok {
			continue
		}
		key := DayKey(date)
		if key < from || key > to {
			continue
		}
		day := buckets[key]
		day.Occurrences += r.Occurrences
		buckets[key] = day
	}
	return buckets
}

// Granularity selects year or month bounds
type Granularity int

const (
	GranularityYear Granularity = iota
	GranularityMonth
)

func (g Granularity) String() string {
	if g == GranularityMonth {
		return "month"
	}
	return "year"
}

// ParseGranularity parses "year" or "month"; anything else is year
func ParseGranularity(s string) Granularity {
	if strings.EqualFold(strings.TrimSpace(s), "month") {
		return GranularityMonth
	}
	return GranularityYear
}

// YearMonth identifies a period at year or month granularity.
// Month is zero for year granularity.
type YearMonth struct {
	Year  int
	Month time.Month
}

func (p YearMonth) index() int {
	m := int(p.Month)
	if m == 0 {
		m = 1
	}
	return p.Year*12 + m - 1
}

func yearMonthFromIndex(i int) YearMonth {
	return YearMonth{Year: i / 12, Month: time.Month(i%12 + 1)}
}

func (p YearMonth) String() string {
	if p.Month == 0 {
		return time.Date(p.Year, time.January, 1, 0, 0, 0, 0, time.UTC).Format("2006")
	}
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// RangeBounds is the navigable window of periods for a note
type RangeBounds struct {
	Granularity Granularity
	Min         YearMonth
	Max         YearMonth
}

// dates returns the dates of all qualifying daily notes with at least one occurrence
func (c Classifier) dates(records []BacklinkRecord) []time.Time {
	var out []time.Time
	for _, r := range records {
		if r.Occurrences <= 0 {
			continue
		}
		if d, ok := c.DailyDate(r.SourcePath); ok {
			out = append(out, d)
		}
	}
	return out
}

// YearBounds returns the year window spanned by the daily notes, padded by one year
func (c Classifier) YearBounds(records []BacklinkRecord, now time.Time) RangeBounds {
	ceiling := now.Year() + 1
	dates := c.dates(records)
	if len(dates) == 0 {
		return RangeBounds{
			Granularity: GranularityYear,
			Min:         YearMonth{Year: max(now.Year()-1, MinBoundsYear)},
			Max:         YearMonth{Year: ceiling},
		}
	}

	oldest, newest := dates[0].Year(), dates[0].Year()
	for _, d := range dates[1:] {
		oldest = min(oldest, d.Year())
		newest = max(newest, d.Year())
	}

	// Both ends stay inside [MinBoundsYear, ceiling]
	hi := max(min(newest+1, ceiling), MinBoundsYear)
	lo := min(max(oldest-1, MinBoundsYear), hi)
	return RangeBounds{
		Granularity: GranularityYear,
		Min:         YearMonth{Year: lo},
		Max:         YearMonth{Year: hi},
	}
}

// MonthBounds returns the month window spanned by the daily notes, padded by one month
func (c Classifier) MonthBounds(records []BacklinkRecord, now time.Time) RangeBounds {
	current := YearMonth{Year: now.Year(), Month: now.Month()}.index()
	floor := YearMonth{Year: MinBoundsYear, Month: time.January}.index()
	ceiling := current + 1

	dates := c.dates(records)
	if len(dates) == 0 {
		return RangeBounds{
			Granularity: GranularityMonth,
			Min:         yearMonthFromIndex(max(current-1, floor)),
			Max:         yearMonthFromIndex(ceiling),
		}
	}

	first := YearMonth{Year: dates[0].Year(), Month: dates[0].Month()}.index()
	oldest, newest := first, first
	for _, d := range dates[1:] {
		i := YearMonth{Year: d.Year(), Month: d.Month()}.index()
		oldest = min(oldest, i)
		newest = max(newest, i)
	}

	hi := max(min(newest+1, ceiling), floor)
	lo := min(max(oldest-1, floor), hi)
	return RangeBounds{
		Granularity: GranularityMonth,
		Min:         yearMonthFromIndex(lo),
		Max:         yearMonthFromIndex(hi),
	}
}

func normalizeFolder(folder string) string {
	return strings.Trim(toSlash(strings.TrimSpace(folder)), "/")
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
