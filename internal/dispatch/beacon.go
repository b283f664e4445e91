package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/device"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// BeaconSink POSTs a BeaconReport for every click.
type BeaconSink struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[any]
	ip      IPLookup
	env     domain.Environment
	log     *zap.Logger
}

// NewBeaconSink creates a beacon sink posting to url.
func NewBeaconSink(url string, client *http.Client, ip IPLookup, env domain.Environment, log *zap.Logger) *BeaconSink {
	return &BeaconSink{
		url:     url,
		client:  client,
		breaker: newBreaker("beacon", log),
		ip:      ip,
		env:     env,
		log:     log,
	}
}

func (s *BeaconSink) Name() string { return "beacon" }

// Available reports whether a beacon URL is configured.
func (s *BeaconSink) Available() bool { return s.url != "" }

// Report builds the payload for event. The IP lookup is the only network call.
func (s *BeaconSink) Report(ctx context.Context, event domain.ClickEvent) domain.BeaconReport {
	return domain.BeaconReport{
		EventType:       domain.EventTypeAdClick,
		Page:            s.env.PageURL,
		DeviceInfo:      device.Summary(s.env),
		UserIP:          s.ip.LookupIP(ctx),
		TotalClickCount: event.SequenceNumber,
		DetectionMethod: string(event.DetectionMethod),
		ClickArea:       string(event.ClickArea),
		AdElementID:     event.ElementID,
		Timestamp:       event.TimestampISO(),
	}
}

// Send delivers the report for event.
func (s *BeaconSink) Send(ctx context.Context, event domain.ClickEvent) error {
	report := s.Report(ctx, event)

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal beacon report: %w", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("failed to send beacon: %w", err)
	}

	s.log.Debug("Beacon delivered",
		zap.Int64("total_click_count", report.TotalClickCount),
		zap.String("user_ip", report.UserIP))
	return nil
}

func (s *BeaconSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build beacon request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("beacon endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
