package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"eventType is required"`
}

// PublishBeaconResponse represents an accepted beacon
type PublishBeaconResponse struct {
	ReportID string `json:"report_id" example:"9f86d081884c7d65"`
	Status   string `json:"status" example:"accepted"`
}

// PublishBulkBeaconsResponse represents the outcome of a bulk beacon request
type PublishBulkBeaconsResponse struct {
	Accepted  int      `json:"accepted" example:"5"`
	Rejected  int      `json:"rejected" example:"0"`
	ReportIDs []string `json:"report_ids,omitempty"`
	Errors    []string `json:"errors,omitempty" example:"report 3: timestamp cannot be in the future"`
}

// MetricsGroupData represents the click count of one group
type MetricsGroupData struct {
	GroupValue  string `json:"group_value" example:"touchend"`
	TotalClicks uint64 `json:"total_clicks" example:"1500"`
}

// GetMetricsResponse represents the click metrics query response
type GetMetricsResponse struct {
	From            int64              `json:"from" example:"1760860800"`
	To              int64              `json:"to" example:"1760947200"`
	DetectionMethod string             `json:"detection_method,omitempty" example:"touchend"`
	TotalClicks     uint64             `json:"total_clicks" example:"5000"`
	UniqueIPs       uint64             `json:"unique_ips" example:"2500"`
	UniquePages     uint64             `json:"unique_pages" example:"320"`
	GroupBy         string             `json:"group_by,omitempty" example:"detection_method"`
	Groups          []MetricsGroupData `json:"groups,omitempty"`
}
