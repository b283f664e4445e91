package domain

import (
	"errors"
	"fmt"
	"time"
)

// EventTypeAdClick is the constant eventType carried by every beacon report.
const EventTypeAdClick = "ad_click_detected"

// UnknownIP is reported when the client's public address could not be resolved.
const UnknownIP = "Unknown"

// BeaconReport is the JSON body POSTed to the beacon endpoint for every click.
type BeaconReport struct {
	EventType       string `json:"eventType" binding:"required" example:"ad_click_detected"`
	Page            string `json:"page" binding:"required" example:"https://example.com/novels/foo/chapter-3.html"`
	DeviceInfo      string `json:"deviceInfo" example:"iPhone | iPhone | 390x844"`
	UserIP          string `json:"userIP" example:"203.0.113.7"`
	TotalClickCount int64  `json:"totalClickCount" binding:"min=0" example:"12"`
	DetectionMethod string `json:"detectionMethod" binding:"required" example:"touchend"`
	ClickArea       string `json:"clickArea" example:"normal_ad"`
	AdElementID     string `json:"adElementId" example:"div-gpt-ad-123"`
	Timestamp       string `json:"timestamp" binding:"required" example:"2026-10-19T08:00:00.000Z"`
}

// PixelEvent is the custom_data of the pixel event sent for a click.
type PixelEvent struct {
	ClickCount      int64  `json:"click_count"`
	DetectionMethod string `json:"detection_method"`
	ClickArea       string `json:"click_area"`
	TouchDuration   int64  `json:"touch_duration"`
	NovelName       string `json:"novel_name"`
	ChapterInfo     string `json:"chapter_info"`
	PageURL         string `json:"page_url"`
	AdElementID     string `json:"ad_element_id"`
	DeviceType      string `json:"device_type"`
	ScreenWidth     int    `json:"screen_width"`
	ScreenHeight    int    `json:"screen_height"`
	Timestamp       string `json:"timestamp"`
	LocalTime       string `json:"local_time"`
}

// ErrInvalidTimestamp is returned for report timestamps that are not ISO-8601 instants.
var ErrInvalidTimestamp = errors.New("timestamp is not an ISO-8601 instant")

// ParseTimestamp parses a report timestamp such as "2026-10-19T08:00:00.000Z".
func ParseTimestamp(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, value)
	}
	return t, nil
}
