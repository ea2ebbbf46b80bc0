package commands

import (
	"context"
	"fmt"
	"strings"

	"linkcal/internal/application"
	"linkcal/internal/application/analysis"
	"linkcal/internal/domain"
)

// BoundsResult contains the navigable window of a note
type BoundsResult struct {
	Bounds  domain.RangeBounds
	Message string
}

// BoundsCommand computes the navigable range of years or months
type BoundsCommand struct {
	svc         *analysis.Service
	Paths       []string
	Granularity string
}

// NewBoundsCommand creates a new BoundsCommand
func NewBoundsCommand(svc *analysis.Service, paths []string, granularity string) *BoundsCommand {
	return &BoundsCommand{
		svc:         svc,
		Paths:       paths,
		Granularity: granularity,
	}
}

// Validate checks the command inputs
func (c *BoundsCommand) Validate() error {
	if err := validatePaths(c.Paths); err != nil {
		return err
	}
	switch strings.ToLower(c.Granularity) {
	case "", "year", "month":
		return nil
	default:
		return &application.ValidationError{
			Field:   "granularity",
			Message: fmt.Sprintf("expected year or month, got: %s", c.Granularity),
		}
	}
}

// Execute runs the bounds command
func (c *BoundsCommand) Execute(ctx context.Context) (*BoundsResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	b, err := c.svc.BoundsMany(ctx, c.Paths, application.ParseGranularity(c.Granularity))
	if err != nil {
		return nil, fmt.Errorf("failed to compute bounds: %w", err)
	}

	return &BoundsResult{
		Bounds:  b,
		Message: fmt.Sprintf("%s .. %s", b.Min, b.Max),
	}, nil
}

// ResolvePeriodResult contains a resolved date range
type ResolvePeriodResult struct {
	Range   domain.DateRange
	Message string
}

// ResolvePeriodCommand resolves a period token against the current time
type ResolvePeriodCommand struct {
	svc            *analysis.Service
	Token          string
	FirstDayOfWeek string
}

// NewResolvePeriodCommand creates a new ResolvePeriodCommand
func NewResolvePeriodCommand(svc *analysis.Service, token string) *ResolvePeriodCommand {
	return &ResolvePeriodCommand{svc: svc, Token: token}
}

// Validate checks the command inputs
func (c *ResolvePeriodCommand) Validate() error {
	if err := application.ValidateRequired("period", c.Token); err != nil {
		return err
	}
	if err := application.ValidatePeriodToken("period", c.Token); err != nil {
		return err
	}
	_, err := parseFirstDay(c.FirstDayOfWeek)
	return err
}

// Execute runs the resolve command
func (c *ResolvePeriodCommand) Execute(ctx context.Context) (*ResolvePeriodResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	fdow, _ := parseFirstDay(c.FirstDayOfWeek)

	r := c.svc.ResolvePeriodFrom(c.Token, fdow)
	return &ResolvePeriodResult{
		Range:   r,
		Message: fmt.Sprintf("%s: %s .. %s", r.Token, r.Start.Format("2006-01-02 15:04"), r.End.Format("2006-01-02 15:04")),
	}, nil
}
