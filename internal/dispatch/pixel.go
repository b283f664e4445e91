package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/config"
	"github.com/BarkinBalci/adclick-detector/internal/device"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// pixelEvent is one entry of a Conversions API request.
type pixelEvent struct {
	EventName      string            `json:"event_name"`
	EventTime      int64             `json:"event_time"`
	ActionSource   string            `json:"action_source"`
	EventSourceURL string            `json:"event_source_url,omitempty"`
	UserData       map[string]string `json:"user_data"`
	CustomData     domain.PixelEvent `json:"custom_data"`
}

type pixelRequest struct {
	Data          []pixelEvent `json:"data"`
	TestEventCode string       `json:"test_event_code,omitempty"`
}

// PixelSink sends a custom event to the Meta Conversions API.
type PixelSink struct {
	cfg      config.Pixel
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[any]
	env      domain.Environment
	location *time.Location
	log      *zap.Logger
}

// NewPixelSink creates a pixel sink. It is unavailable unless cfg carries an ID and token.
func NewPixelSink(cfg config.Pixel, client *http.Client, env domain.Environment, log *zap.Logger) *PixelSink {
	return &PixelSink{
		cfg:      cfg,
		client:   client,
		breaker:  newBreaker("pixel", log),
		env:      env,
		location: LoadLocation(cfg.TimeZone),
		log:      log,
	}
}

func (s *PixelSink) Name() string { return "pixel" }

// EventName is the custom event name, also used as the dedup key.
func (s *PixelSink) EventName() string { return s.cfg.EventName }

func (s *PixelSink) Available() bool {
	return s.cfg.ID != "" && s.cfg.AccessToken != ""
}

// Event builds the custom data for event.
func (s *PixelSink) Event(event domain.ClickEvent) domain.PixelEvent {
	return domain.PixelEvent{
		ClickCount:      event.SequenceNumber,
		DetectionMethod: string(event.DetectionMethod),
		ClickArea:       string(event.ClickArea),
		TouchDuration:   event.DurationMs,
		NovelName:       NovelName(s.env.PageURL),
		ChapterInfo:     ChapterInfo(s.env.PageURL),
		PageURL:         s.env.PageURL,
		AdElementID:     event.ElementID,
		DeviceType:      device.Type(s.env.UserAgent),
		ScreenWidth:     s.env.ScreenWidth,
		ScreenHeight:    s.env.ScreenHeight,
		Timestamp:       event.TimestampISO(),
		LocalTime:       LocalTime(event.Timestamp, s.location),
	}
}

func (s *PixelSink) Send(ctx context.Context, event domain.ClickEvent) error {
	payload := pixelRequest{
		Data: []pixelEvent{{
			EventName:      s.cfg.EventName,
			EventTime:      event.Timestamp.Unix(),
			ActionSource:   "website",
			EventSourceURL: s.env.PageURL,
			UserData:       map[string]string{"client_user_agent": s.env.UserAgent},
			CustomData:     s.Event(event),
		}},
		TestEventCode: s.cfg.TestEventCode,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal pixel event: %w", err)
	}

	_, err = s.breaker.Execute(func() (any, error) {
		return nil, s.post(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("failed to send pixel event: %w", err)
	}

	s.log.Debug("Pixel event delivered",
		zap.String("event_name", s.cfg.EventName),
		zap.Int64("click_count", event.SequenceNumber))
	return nil
}

func (s *PixelSink) endpoint() string {
	query := url.Values{"access_token": {s.cfg.AccessToken}}
	return fmt.Sprintf("%s/%s/%s/events?%s", s.cfg.Endpoint, s.cfg.APIVersion, url.PathEscape(s.cfg.ID), query.Encode())
}

func (s *PixelSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build pixel request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("pixel endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
