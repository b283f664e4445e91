package consumer

import (
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/queue"
)

// ErrMissingReportID is returned for messages published without a report id
var ErrMissingReportID = errors.New("message has no report id")

// ReportParser decodes queue.ReportMessage bodies
type ReportParser struct {
	clock clock.Clock
}

// NewReportParser creates a parser that stamps rows with clk's time
func NewReportParser(clk clock.Clock) *ReportParser {
	return &ReportParser{clock: clk}
}

// Parse decodes body into an AdClick. The report timestamp becomes Unix milliseconds.
func (p *ReportParser) Parse(body []byte) (*domain.AdClick, error) {
	var msg queue.ReportMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message body: %w", err)
	}

	if msg.ReportID == "" {
		return nil, ErrMissingReportID
	}

	ts, err := domain.ParseTimestamp(msg.Timestamp)
	if err != nil {
		return nil, err
	}

	now := p.clock.Now()
	return &domain.AdClick{
		ReportID:        msg.ReportID,
		Page:            msg.Page,
		DeviceInfo:      msg.DeviceInfo,
		UserIP:          msg.UserIP,
		TotalClickCount: msg.TotalClickCount,
		DetectionMethod: msg.DetectionMethod,
		ClickArea:       orUnknown(msg.ClickArea),
		AdElementID:     orUnknown(msg.AdElementID),
		Timestamp:       ts.UnixMilli(),
		ProcessedAt:     now.UTC().Truncate(time.Millisecond),
		Version:         uint64(now.UnixNano()),
	}, nil
}

func orUnknown(value string) string {
	if value == "" {
		return domain.UnknownValue
	}
	return value
}
