package commands

import (
	"context"
	"fmt"
	"time"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/domain"
)

// AnalyzeResult contains the result of analyzing one or more notes
type AnalyzeResult struct {
	Analysis *analysis.Analysis
	Message  string
}

// AnalyzeCommand computes the year map and current-period count of notes
type AnalyzeCommand struct {
	svc            *analysis.Service
	Paths          []string
	Year           int
	Period         string
	FirstDayOfWeek string
	IncludeContext bool
}

// NewAnalyzeCommand creates a new AnalyzeCommand
func NewAnalyzeCommand(svc *analysis.Service, paths []string, year int, period string) *AnalyzeCommand {
	return &AnalyzeCommand{
		svc:    svc,
		Paths:  paths,
		Year:   year,
		Period: period,
	}
}

// Validate checks the command inputs
func (c *AnalyzeCommand) Validate() error {
	if err := validatePaths(c.Paths); err != nil {
		return err
	}
	if c.Year != 0 {
		if err := application.ValidateYear("year", c.Year); err != nil {
			return err
		}
	}
	if c.Period != "" {
		if err := application.ValidatePeriodToken("period", c.Period); err != nil {
			return err
		}
	}
	if _, err := parseFirstDay(c.FirstDayOfWeek); err != nil {
		return err
	}
	return nil
}

// Execute runs the analyze command
func (c *AnalyzeCommand) Execute(ctx context.Context) (*AnalyzeResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	fdow, _ := parseFirstDay(c.FirstDayOfWeek)

	a, err := c.svc.AnalyzeMany(ctx, c.Paths, analysis.Query{
		Year:           c.Year,
		Period:         c.Period,
		FirstDayOfWeek: fdow,
		IncludeContext: c.IncludeContext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze: %w", err)
	}

	return &AnalyzeResult{
		Analysis: a,
		Message: fmt.Sprintf("%d in %s, %d across %d days of %d",
			a.CurrentPeriodCount, a.Period.Token, a.Total, len(a.Days), a.Year),
	}, nil
}

// MonthResult contains the day map of one month
type MonthResult struct {
	Year    int
	Month   time.Month
	Days    domain.BucketMap
	Message string
}

// MonthCommand computes the day map of a calendar month
type MonthCommand struct {
	svc            *analysis.Service
	Paths          []string
	Year           int
	Month          int
	IncludeContext bool
}

// NewMonthCommand creates a new MonthCommand
func NewMonthCommand(svc *analysis.Service, paths []string, year, month int) *MonthCommand {
	return &MonthCommand{
		svc:   svc,
		Paths: paths,
		Year:  year,
		Month: month,
	}
}

// Validate checks the command inputs
func (c *MonthCommand) Validate() error {
	if err := validatePaths(c.Paths); err != nil {
		return err
	}
	if err := application.ValidateYear("year", c.Year); err != nil {
		return err
	}
	if c.Month < 1 || c.Month > 12 {
		return &application.ValidationError{
			Field:   "month",
			Message: fmt.Sprintf("month must be between 1 and 12, got %d", c.Month),
		}
	}
	return nil
}

// Execute runs the month command
func (c *MonthCommand) Execute(ctx context.Context) (*MonthResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	a, err := c.svc.AnalyzeMany(ctx, c.Paths, analysis.Query{
		Year:           c.Year,
		Month:          time.Month(c.Month),
		IncludeContext: c.IncludeContext,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to analyze month: %w", err)
	}

	return &MonthResult{
		Year:    a.Year,
		Month:   a.Month,
		Days:    a.MonthDays,
		Message: fmt.Sprintf("%d across %d days of %s %d", a.MonthDays.Total(), len(a.MonthDays), a.Month, a.Year),
	}, nil
}

func validatePaths(paths []string) error {
	if len(paths) == 0 {
		return &application.ValidationError{Field: "notePath", Message: "at least one note path is required"}
	}
	for _, p := range paths {
		if err := application.ValidateRequired("notePath", p); err != nil {
			return err
		}
	}
	return nil
}

// parseFirstDay returns nil for an empty value
func parseFirstDay(s string) (*time.Weekday, error) {
	if s == "" {
		return nil, nil
	}
	d, err := domain.ParseWeekday(s)
	if err != nil {
		return nil, &application.ValidationError{Field: "firstDayOfWeek", Message: err.Error()}
	}
	return &d, nil
}
