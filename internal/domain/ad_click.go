package domain

import "time"

// AdClick represents a beacon report stored in ClickHouse
type AdClick struct {
	ReportID        string    `ch:"report_id"`
	Page            string    `ch:"page"`
	DeviceInfo      string    `ch:"device_info"`
	UserIP          string    `ch:"user_ip"`
	TotalClickCount int64     `ch:"total_click_count"`
	DetectionMethod string    `ch:"detection_method"`
	ClickArea       string    `ch:"click_area"`
	AdElementID     string    `ch:"ad_element_id"`
	Timestamp       int64     `ch:"timestamp"`
	ProcessedAt     time.Time `ch:"processed_at"`
	Version         uint64    `ch:"version"`
}
