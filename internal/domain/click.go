package domain

import "time"

// UnknownValue is the sentinel used for metadata that cannot be derived.
const UnknownValue = "unknown"

// DetectionMethod names the signal that confirmed an ad click.
type DetectionMethod string

const (
	DetectionTouchEnd         DetectionMethod = "touchend"
	DetectionBlur             DetectionMethod = "blur"
	DetectionVisibilityChange DetectionMethod = "visibilitychange"
	DetectionOverlayTouchEnd  DetectionMethod = "overlay_touchend"
)

// ClickArea distinguishes taps on the ad body from taps on the overlay layer above it.
type ClickArea string

const (
	ClickAreaNormalAd ClickArea = "normal_ad"
	ClickAreaOverlay  ClickArea = "overlay"
)

// Outcome is a qualifying classifier decision before it is counted.
type Outcome struct {
	Method   DetectionMethod
	Area     ClickArea
	Duration time.Duration
}

// ClickEvent is the normalized record produced once per qualifying gesture.
type ClickEvent struct {
	DetectionMethod DetectionMethod
	ClickArea       ClickArea
	DurationMs      int64
	ElementID       string
	SequenceNumber  int64
	Timestamp       time.Time
}

// NewClickEvent stamps an outcome with its sequence number and detection time.
func NewClickEvent(outcome Outcome, elementID string, sequence int64, at time.Time) ClickEvent {
	if elementID == "" {
		elementID = UnknownValue
	}

	durationMs := outcome.Duration.Milliseconds()
	if durationMs < 0 {
		durationMs = 0
	}

	return ClickEvent{
		DetectionMethod: outcome.Method,
		ClickArea:       outcome.Area,
		DurationMs:      durationMs,
		ElementID:       elementID,
		SequenceNumber:  sequence,
		Timestamp:       at,
	}
}

// TimestampISO renders the detection time the way browsers render Date.toISOString.
func (e ClickEvent) TimestampISO() string {
	return e.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
}
