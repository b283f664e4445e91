package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewClickEvent_DefaultsUnknownElement(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 30, 0, 123*int(time.Millisecond), time.UTC)
	outcome := Outcome{Method: DetectionTouchEnd, Area: ClickAreaNormalAd, Duration: 200 * time.Millisecond}

	event := NewClickEvent(outcome, "", 7, at)

	assert.Equal(t, UnknownValue, event.ElementID)
	assert.Equal(t, int64(200), event.DurationMs)
	assert.Equal(t, int64(7), event.SequenceNumber)
	assert.Equal(t, "2026-10-19T08:30:00.123Z", event.TimestampISO())
}

func TestNewClickEvent_ClampsNegativeDuration(t *testing.T) {
	outcome := Outcome{Method: DetectionBlur, Area: ClickAreaNormalAd, Duration: -time.Second}

	event := NewClickEvent(outcome, "div-gpt-ad-1", 1, time.Now())

	assert.Equal(t, int64(0), event.DurationMs)
	assert.Equal(t, "div-gpt-ad-1", event.ElementID)
}
