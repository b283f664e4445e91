package repository

import (
	"context"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// Supported MetricsQuery.GroupBy values
const (
	GroupByDetectionMethod = "detection_method"
	GroupByClickArea       = "click_area"
	GroupByHour            = "hour"
	GroupByDay             = "day"
)

// ValidGroupBy reports whether groupBy is a supported grouping.
func ValidGroupBy(groupBy string) bool {
	switch groupBy {
	case GroupByDetectionMethod, GroupByClickArea, GroupByHour, GroupByDay:
		return true
	}
	return false
}

// MetricsQuery represents click metrics query parameters. From and To are Unix milliseconds.
type MetricsQuery struct {
	From            int64
	To              int64
	GroupBy         string
	DetectionMethod string
}

// MetricsGroupResult represents aggregated clicks for a specific group
type MetricsGroupResult struct {
	GroupValue  string
	TotalClicks uint64
}

// MetricsResult represents the result of a metrics query
type MetricsResult struct {
	TotalClicks uint64
	UniqueIPs   uint64
	UniquePages uint64
	Groups      []MetricsGroupResult
}

// AdClickRepository defines the interface for ad click storage operations
type AdClickRepository interface {
	// InsertBatch inserts a batch of ad clicks into the storage
	InsertBatch(ctx context.Context, clicks []*domain.AdClick) (int, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error

	// GetMetrics retrieves aggregated click metrics based on the query
	GetMetrics(ctx context.Context, query MetricsQuery) (*MetricsResult, error)
}
