// Package analysis is the single query point from the vault's link graph to
// calendar-bucketed analytics. Every view of a note goes through Service so
// that all of them agree for the same graph state.
package analysis

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"linkcal/internal/application"
	"linkcal/internal/domain"
	"linkcal/internal/ports"
)

// Options configures a Service
type Options struct {
	DailyFolder    string
	FirstDayOfWeek time.Weekday
	DefaultPeriod  string
	Now            func() time.Time
}

// Service derives analytics from the host link graph. It keeps no state
// between calls.
type Service struct {
	graph      ports.LinkGraph
	docs       ports.DocumentStore
	classifier domain.Classifier
	opts       Options
}

// NewService creates a facade over the link graph. docs may be nil when
// context lines are never requested.
func NewService(graph ports.LinkGraph, docs ports.DocumentStore, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.DefaultPeriod == "" {
		opts.DefaultPeriod = domain.DefaultPeriodToken
	}
	return &Service{
		graph:      graph,
		docs:       docs,
		classifier: domain.NewClassifier(opts.DailyFolder),
		opts:       opts,
	}
}

// Classifier returns the daily-note classifier in use
func (s *Service) Classifier() domain.Classifier {
	return s.classifier
}

// Query selects what Analyze computes
type Query struct {
	Year           int           // Zero means the current year
	Month          time.Month    // Non-zero also fills MonthDays
	Period         string        // Empty means the configured default
	FirstDayOfWeek *time.Weekday // Nil means the configured first day
	IncludeContext bool
}

// Analysis is the combined view of one or more watched notes
type Analysis struct {
	Paths              []string
	Year               int
	Days               domain.BucketMap // Year map
	Total              int
	Month              time.Month
	MonthDays          domain.BucketMap
	Period             domain.DateRange
	CurrentPeriodCount int
}

// Backlinks returns every document linking to path with its occurrence count,
// sorted by source path
func (s *Service) Backlinks(ctx context.Context, path string) ([]domain.BacklinkRecord, error) {
	if err := application.ValidateRequired("notePath", path); err != nil {
		return nil, err
	}

	links, err := s.graph.LinksTo(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to query links to %s: %w", path, err)
	}

	records := make([]domain.BacklinkRecord, 0, len(links))
	for source, n := range links {
		if n <= 0 {
			continue
		}
		records = append(records, domain.BacklinkRecord{SourcePath: source, Occurrences: n})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SourcePath < records[j].SourcePath
	})
	return records, nil
}

// backlinksMany concatenates the records of every path. A source linking to
// two watched notes contributes to both.
func (s *Service) backlinksMany(ctx context.Context, paths []string) ([]domain.BacklinkRecord, error) {
	if len(paths) == 0 {
		return nil, &application.ValidationError{Field: "notePath", Message: "at least one note path is required"}
	}
	var all []domain.BacklinkRecord
	for _, p := range paths {
		records, err := s.Backlinks(ctx, p)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// Analyze computes the current-period count and the year map for a note
func (s *Service) Analyze(ctx context.Context, path string, q Query) (*Analysis, error) {
	return s.AnalyzeMany(ctx, []string{path}, q)
}

// AnalyzeMany is Analyze over the summed backlinks of several notes
func (s *Service) AnalyzeMany(ctx context.Context, paths []string, q Query) (*Analysis, error) {
	records, err := s.backlinksMany(ctx, paths)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now()
	year := q.Year
	if year == 0 {
		year = now.Year()
	}
	token := q.Period
	if token == "" {
		token = s.opts.DefaultPeriod
	}

	a := &Analysis{
		Paths:  paths,
		Year:   year,
		Days:   s.classifier.BucketByYear(records, year),
		Period: domain.ResolvePeriod(token, s.firstDayOfWeek(q.FirstDayOfWeek), now),
	}
	a.Total = a.Days.Total()
	a.CurrentPeriodCount = s.classifier.BucketByRange(records, a.Period.Start, a.Period.End).Total()

	if q.Month != 0 {
		a.Month = q.Month
		a.MonthDays = s.classifier.BucketByMonth(records, q.Month, year)
	}

	if q.IncludeContext {
		s.attachContext(ctx, records, paths, a.Days)
		if a.MonthDays != nil {
			s.attachContext(ctx, records, paths, a.MonthDays)
		}
	}
	return a, nil
}

// Month returns the day map of one calendar month
func (s *Service) Month(ctx context.Context, path string, year int, month time.Month) (domain.BucketMap, error) {
	records, err := s.Backlinks(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.classifier.BucketByMonth(records, month, year), nil
}

// Range returns the day map between two inclusive calendar days
func (s *Service) Range(ctx context.Context, path string, start, end time.Time) (domain.BucketMap, error) {
	if end.Before(start) {
		return nil, &application.ValidationError{Field: "range", Message: "end is before start"}
	}
	records, err := s.Backlinks(ctx, path)
	if err != nil {
		return nil, err
	}
	return s.classifier.BucketByRange(records, start, end), nil
}

// CountInPeriod counts occurrences inside a resolved period token
func (s *Service) CountInPeriod(ctx context.Context, path, token string, firstDayOfWeek time.Weekday) (int, domain.DateRange, error) {
	r := domain.ResolvePeriod(token, firstDayOfWeek, s.opts.Now())
	records, err := s.Backlinks(ctx, path)
	if err != nil {
		return 0, r, err
	}
	return s.classifier.BucketByRange(records, r.Start, r.End).Total(), r, nil
}

// Bounds returns the navigable year or month window for a note
func (s *Service) Bounds(ctx context.Context, path string, g domain.Granularity) (domain.RangeBounds, error) {
	return s.BoundsMany(ctx, []string{path}, g)
}

// BoundsMany is Bounds over several notes
func (s *Service) BoundsMany(ctx context.Context, paths []string, g domain.Granularity) (domain.RangeBounds, error) {
	records, err := s.backlinksMany(ctx, paths)
	if err != nil {
		return domain.RangeBounds{}, err
	}
	if g == domain.GranularityMonth {
		return s.classifier.MonthBounds(records, s.opts.Now()), nil
	}
	return s.classifier.YearBounds(records, s.opts.Now()), nil
}

// ResolvePeriod resolves a token with the configured first day of week
func (s *Service) ResolvePeriod(token string) domain.DateRange {
	return domain.ResolvePeriod(token, s.opts.FirstDayOfWeek, s.opts.Now())
}

// ResolvePeriodFrom resolves a token with an optional first-day override
func (s *Service) ResolvePeriodFrom(token string, firstDayOfWeek *time.Weekday) domain.DateRange {
	return domain.ResolvePeriod(token, s.firstDayOfWeek(firstDayOfWeek), s.opts.Now())
}

func (s *Service) firstDayOfWeek(override *time.Weekday) time.Weekday {
	if override != nil {
		return *override
	}
	return s.opts.FirstDayOfWeek
}

// attachContext fills the referencing lines of each bucketed daily note.
// Context is decoration: unreadable notes are left without lines.
func (s *Service) attachContext(ctx context.Context, records []domain.BacklinkRecord, paths []string, days domain.BucketMap) {
	if s.docs == nil {
		return
	}
	seen := make(map[string]bool)
	for _, r := range records {
		if seen[r.SourcePath] {
			continue
		}
		seen[r.SourcePath] = true

		date, ok := s.classifier.DailyDate(r.SourcePath)
		if !ok {
			continue
		}
		key := domain.DayKey(date)
		summary, ok := days[key]
		if !ok {
			continue
		}
		text, err := s.docs.ReadDocument(ctx, r.SourcePath)
		if err != nil {
			continue
		}
		for _, p := range paths {
			summary.Context = appendUnique(summary.Context, domain.ReferencingLines(text, p)...)
		}
		days[key] = summary
	}
}

func appendUnique(dst []string, lines ...string) []string {
	for _, l := range lines {
		dup := false
		for _, d := range dst {
			if strings.EqualFold(d, l) {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, l)
		}
	}
	return dst
}
