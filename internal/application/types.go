package application

import "linkcal/internal/domain"

// Re-export domain types for use by adapters
type (
	BacklinkRecord = domain.BacklinkRecord
	BucketMap      = domain.BucketMap
	DaySummary     = domain.DaySummary
	RangeBounds    = domain.RangeBounds
	DateRange      = domain.DateRange
	Granularity    = domain.Granularity
	ComponentKind  = domain.ComponentKind
	Config         = domain.Config
)

const (
	GranularityYear  = domain.GranularityYear
	GranularityMonth = domain.GranularityMonth
)

// ParseGranularity parses "year" or "month"
func ParseGranularity(s string) Granularity {
	return domain.ParseGranularity(s)
}

// ResolvePeriod converts a period token into a concrete range
var ResolvePeriod = domain.ResolvePeriod
