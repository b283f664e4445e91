package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

var parseTime = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func TestReportParser_Parse(t *testing.T) {
	parser := NewReportParser(clock.NewManual(parseTime))

	body := []byte(`{
		"reportId": "abc123",
		"receivedAt": 1760860800000,
		"eventType": "ad_click_detected",
		"page": "https://example.com/novels/a/chapter-1.html",
		"deviceInfo": "Android | Linux armv8l | 412x915",
		"userIP": "203.0.113.7",
		"totalClickCount": 7,
		"detectionMethod": "blur",
		"clickArea": "normal_ad",
		"adElementId": "div-gpt-ad-3",
		"timestamp": "2026-10-19T07:59:59.250Z"
	}`)

	click, err := parser.Parse(body)

	require.NoError(t, err)
	assert.Equal(t, "abc123", click.ReportID)
	assert.Equal(t, "https://example.com/novels/a/chapter-1.html", click.Page)
	assert.Equal(t, "Android | Linux armv8l | 412x915", click.DeviceInfo)
	assert.Equal(t, "203.0.113.7", click.UserIP)
	assert.Equal(t, int64(7), click.TotalClickCount)
	assert.Equal(t, "blur", click.DetectionMethod)
	assert.Equal(t, "normal_ad", click.ClickArea)
	assert.Equal(t, "div-gpt-ad-3", click.AdElementID)
	assert.Equal(t, parseTime.Add(-750*time.Millisecond).UnixMilli(), click.Timestamp)
	assert.Equal(t, parseTime, click.ProcessedAt)
	assert.Equal(t, uint64(parseTime.UnixNano()), click.Version)
}

func TestReportParser_DefaultsMissingMetadata(t *testing.T) {
	parser := NewReportParser(clock.NewManual(parseTime))

	click, err := parser.Parse([]byte(`{"reportId":"x","timestamp":"2026-10-19T07:00:00.000Z"}`))

	require.NoError(t, err)
	assert.Equal(t, domain.UnknownValue, click.ClickArea)
	assert.Equal(t, domain.UnknownValue, click.AdElementID)
}

func TestReportParser_Errors(t *testing.T) {
	parser := NewReportParser(clock.NewManual(parseTime))

	_, err := parser.Parse([]byte(`{invalid json}`))
	assert.Error(t, err)

	_, err = parser.Parse([]byte(`{"timestamp":"2026-10-19T07:00:00.000Z"}`))
	assert.ErrorIs(t, err, ErrMissingReportID)

	_, err = parser.Parse([]byte(`{"reportId":"x","timestamp":"yesterday"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidTimestamp)
}
