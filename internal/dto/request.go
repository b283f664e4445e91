package dto

import "github.com/BarkinBalci/adclick-detector/internal/domain"

// PublishBeaconsBulkRequest represents a bulk beacon ingestion request
type PublishBeaconsBulkRequest struct {
	Reports []domain.BeaconReport `json:"reports" binding:"required,min=1,max=1000,dive"`
}

// GetMetricsRequest represents a click metrics query. From and To are Unix seconds.
type GetMetricsRequest struct {
	From            int64  `form:"from" binding:"required" example:"1760860800"`
	To              int64  `form:"to" binding:"required" example:"1760947200"`
	GroupBy         string `form:"group_by" example:"detection_method"`
	DetectionMethod string `form:"detection_method" example:"touchend"`
}
