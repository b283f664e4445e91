package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/dto"
	"github.com/BarkinBalci/adclick-detector/internal/queue"
	"github.com/BarkinBalci/adclick-detector/internal/repository"
)

const (
	// maxClockSkew tolerates detector clocks running slightly ahead of the collector.
	maxClockSkew = time.Minute

	// maxHourlyRange caps hourly grouping.
	maxHourlyRange = 90 * 24 * time.Hour
)

var (
	ErrFutureTimestamp  = errors.New("timestamp cannot be in the future")
	ErrInvalidEventType = errors.New("unsupported eventType")
	ErrInvalidQuery     = errors.New("invalid metrics query")
)

// BeaconService validates beacon reports and queues them for storage
type BeaconService struct {
	publisher  queue.ReportPublisher
	repository repository.AdClickRepository
	clock      clock.Clock
	log        *zap.Logger
}

// NewBeaconService creates a new beacon service
func NewBeaconService(publisher queue.ReportPublisher, repo repository.AdClickRepository, clk clock.Clock, log *zap.Logger) *BeaconService {
	return &BeaconService{
		publisher:  publisher,
		repository: repo,
		clock:      clk,
		log:        log,
	}
}

// ComputeReportID hashes page|ip|count|method|timestamp so a retried beacon keeps its id.
func ComputeReportID(report *domain.BeaconReport) string {
	data := fmt.Sprintf("%s|%s|%d|%s|%s",
		report.Page,
		report.UserIP,
		report.TotalClickCount,
		report.DetectionMethod,
		report.Timestamp,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

func (s *BeaconService) validate(report *domain.BeaconReport) error {
	if report.EventType != domain.EventTypeAdClick {
		return fmt.Errorf("%w: %q", ErrInvalidEventType, report.EventType)
	}

	ts, err := domain.ParseTimestamp(report.Timestamp)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if ts.After(now.Add(maxClockSkew)) {
		s.log.Warn("Timestamp validation failed: future timestamp",
			zap.String("timestamp", report.Timestamp),
			zap.Time("current_time", now))
		return fmt.Errorf("%w: %s > %s", ErrFutureTimestamp, report.Timestamp, now.UTC().Format(time.RFC3339))
	}

	return nil
}

// ProcessReport validates and publishes a single report. When the detector could not
// resolve its own IP, userIP (the request's client address) is recorded instead.
func (s *BeaconService) ProcessReport(ctx context.Context, report *domain.BeaconReport, userIP string) (string, error) {
	if err := s.validate(report); err != nil {
		return "", err
	}

	if (report.UserIP == "" || report.UserIP == domain.UnknownIP) && userIP != "" {
		report.UserIP = userIP
	}
	if report.AdElementID == "" {
		report.AdElementID = domain.UnknownValue
	}

	reportID := ComputeReportID(report)

	if err := s.publisher.PublishReport(ctx, report, reportID); err != nil {
		return "", fmt.Errorf("failed to publish report to queue: %w", err)
	}

	return reportID, nil
}

// ProcessBulkReports processes reports independently; a rejected report does not stop the rest.
func (s *BeaconService) ProcessBulkReports(ctx context.Context, reports []domain.BeaconReport, userIP string) ([]string, []string, error) {
	var reportIDs []string
	var errs []string

	for i := range reports {
		reportID, err := s.ProcessReport(ctx, &reports[i], userIP)
		if err != nil {
			errs = append(errs, fmt.Sprintf("report %d: %s", i, err.Error()))
			s.log.Warn("Failed to process report in bulk",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		reportIDs = append(reportIDs, reportID)
	}

	return reportIDs, errs, nil
}

// GetMetrics retrieves aggregated click metrics from the repository
func (s *BeaconService) GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error) {
	if req.From > req.To {
		s.log.Warn("Invalid time range for metrics",
			zap.Int64("from", req.From),
			zap.Int64("to", req.To))
		return nil, fmt.Errorf("%w: from timestamp must be less than or equal to to timestamp", ErrInvalidQuery)
	}

	if req.GroupBy != "" {
		if !repository.ValidGroupBy(req.GroupBy) {
			s.log.Warn("Invalid group_by value", zap.String("group_by", req.GroupBy))
			return nil, fmt.Errorf("%w: invalid group_by value: %s (supported: detection_method, click_area, hour, day)", ErrInvalidQuery, req.GroupBy)
		}

		rangeDuration := time.Duration(req.To-req.From) * time.Second
		if req.GroupBy == repository.GroupByHour && rangeDuration > maxHourlyRange {
			days := int64(rangeDuration / (24 * time.Hour))
			return nil, fmt.Errorf("%w: time range too large for hourly grouping (max 90 days, got %d days)", ErrInvalidQuery, days)
		}
	}

	query := repository.MetricsQuery{
		From:            req.From * 1000,
		To:              req.To*1000 + 999,
		GroupBy:         req.GroupBy,
		DetectionMethod: req.DetectionMethod,
	}

	s.log.Info("Querying click metrics",
		zap.Int64("from", req.From),
		zap.Int64("to", req.To),
		zap.String("group_by", req.GroupBy),
		zap.String("detection_method", req.DetectionMethod))

	result, err := s.repository.GetMetrics(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics from repository: %w", err)
	}

	response := &dto.GetMetricsResponse{
		From:            req.From,
		To:              req.To,
		DetectionMethod: req.DetectionMethod,
		TotalClicks:     result.TotalClicks,
		UniqueIPs:       result.UniqueIPs,
		UniquePages:     result.UniquePages,
		GroupBy:         req.GroupBy,
		Groups:          make([]dto.MetricsGroupData, 0, len(result.Groups)),
	}

	for _, group := range result.Groups {
		response.Groups = append(response.Groups, dto.MetricsGroupData{
			GroupValue:  group.GroupValue,
			TotalClicks: group.TotalClicks,
		})
	}

	return response, nil
}
