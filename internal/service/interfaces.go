package service

import (
	"context"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/dto"
)

// BeaconServicer defines the interface for beacon service operations
type BeaconServicer interface {
	ProcessReport(ctx context.Context, report *domain.BeaconReport, userIP string) (string, error)
	ProcessBulkReports(ctx context.Context, reports []domain.BeaconReport, userIP string) ([]string, []string, error)
	GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error)
}
