package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/repository"
)

// Repository implements AdClickRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema creates the ad_clicks table. ReplacingMergeTree collapses redelivered reports
// sharing a report_id.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS ad_clicks (
		report_id String,
		page String,
		device_info String,
		user_ip String,
		total_click_count Int64,
		detection_method LowCardinality(String),
		click_area LowCardinality(String),
		ad_element_id String,
		timestamp Int64,
		processed_at DateTime64(3) DEFAULT now64(3),
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (report_id)
	ORDER BY (report_id, timestamp)
	PARTITION BY toYYYYMM(fromUnixTimestamp64Milli(timestamp))
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create ad_clicks table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// InsertBatch inserts a batch of ad clicks into ClickHouse
func (r *Repository) InsertBatch(ctx context.Context, clicks []*domain.AdClick) (int, error) {
	if len(clicks) == 0 {
		return 0, nil
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO ad_clicks")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare batch: %w", err)
	}

	insertedCount := 0
	for _, click := range clicks {
		if click.Version == 0 {
			click.Version = uint64(time.Now().UnixNano())
		}

		err := batch.Append(
			click.ReportID,
			click.Page,
			click.DeviceInfo,
			click.UserIP,
			click.TotalClickCount,
			click.DetectionMethod,
			click.ClickArea,
			click.AdElementID,
			click.Timestamp,
			click.ProcessedAt,
			click.Version,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to append ad click to batch: %w", err)
		}
		insertedCount++
	}

	if err := batch.Send(); err != nil {
		return 0, fmt.Errorf("failed to send batch: %w", err)
	}

	return insertedCount, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// whereClause builds the filter shared by the overall and grouped queries.
func whereClause(query repository.MetricsQuery) (string, []any) {
	conditions := []string{"timestamp >= ?", "timestamp <= ?"}
	args := []any{query.From, query.To}

	if query.DetectionMethod != "" {
		conditions = append(conditions, "detection_method = ?")
		args = append(args, query.DetectionMethod)
	}

	return "WHERE " + strings.Join(conditions, " AND "), args
}

// groupExpressions returns the select, group and order fragments for groupBy.
func groupExpressions(groupBy string) (selectField, groupByClause, orderBy string, err error) {
	switch groupBy {
	case repository.GroupByDetectionMethod:
		return "detection_method", "GROUP BY detection_method", "ORDER BY total_clicks DESC", nil
	case repository.GroupByClickArea:
		return "click_area", "GROUP BY click_area", "ORDER BY total_clicks DESC", nil
	case repository.GroupByHour:
		return "formatDateTime(toStartOfHour(fromUnixTimestamp64Milli(timestamp)), '%Y-%m-%d %H:00:00')",
			"GROUP BY toStartOfHour(fromUnixTimestamp64Milli(timestamp))",
			"ORDER BY group_value ASC", nil
	case repository.GroupByDay:
		return "formatDateTime(toStartOfDay(fromUnixTimestamp64Milli(timestamp)), '%Y-%m-%d')",
			"GROUP BY toStartOfDay(fromUnixTimestamp64Milli(timestamp))",
			"ORDER BY group_value ASC", nil
	default:
		return "", "", "", fmt.Errorf("unsupported group_by value: %s (supported: detection_method, click_area, hour, day)", groupBy)
	}
}

// GetMetrics retrieves aggregated click metrics from ClickHouse
func (r *Repository) GetMetrics(ctx context.Context, query repository.MetricsQuery) (*repository.MetricsResult, error) {
	result := &repository.MetricsResult{
		Groups: []repository.MetricsGroupResult{},
	}

	where, args := whereClause(query)

	overallQuery := fmt.Sprintf(`
		SELECT
			count() as total_clicks,
			uniq(user_ip) as unique_ips,
			uniq(page) as unique_pages
		FROM ad_clicks FINAL
		%s
	`, where)

	row := r.client.Conn().QueryRow(ctx, overallQuery, args...)
	if err := row.Scan(&result.TotalClicks, &result.UniqueIPs, &result.UniquePages); err != nil {
		return nil, fmt.Errorf("failed to query overall metrics: %w", err)
	}

	if query.GroupBy == "" {
		return result, nil
	}

	selectField, groupByClause, orderBy, err := groupExpressions(query.GroupBy)
	if err != nil {
		return nil, err
	}

	groupedQuery := fmt.Sprintf(`
		SELECT
			%s as group_value,
			count() as total_clicks
		FROM ad_clicks FINAL
		%s
		%s
		%s
	`, selectField, where, groupByClause, orderBy)

	rows, err := r.client.Conn().Query(ctx, groupedQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query grouped metrics: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close grouped metrics rows", zap.Error(err))
		}
	}(rows)

	for rows.Next() {
		var group repository.MetricsGroupResult
		if err := rows.Scan(&group.GroupValue, &group.TotalClicks); err != nil {
			return nil, fmt.Errorf("failed to scan grouped metrics row: %w", err)
		}
		result.Groups = append(result.Groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grouped metrics rows: %w", err)
	}

	return result, nil
}
