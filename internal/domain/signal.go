package domain

import "time"

// SignalType enumerates the raw page signals the detector consumes.
type SignalType string

const (
	SignalScan        SignalType = "scan"
	SignalTouchStart  SignalType = "touchstart"
	SignalTouchMove   SignalType = "touchmove"
	SignalTouchEnd    SignalType = "touchend"
	SignalTouchCancel SignalType = "touchcancel"
	SignalBlur        SignalType = "blur"
	SignalVisibility  SignalType = "visibility"
	SignalOverlayTap  SignalType = "overlay_tap"
)

// Signal is one raw observation from the page. Fields not relevant to Type are ignored.
type Signal struct {
	Type       SignalType `json:"type" binding:"required"`
	ElementID  string     `json:"element_id,omitempty"`
	X          float64    `json:"x,omitempty"`
	Y          float64    `json:"y,omitempty"`
	ElementTop float64    `json:"element_top,omitempty"`
	Hidden     bool       `json:"hidden,omitempty"`
	DurationMs int64      `json:"duration_ms,omitempty"`
	Elements   []string   `json:"elements,omitempty"`
	// TimeMs is when the page observed the event, in Unix milliseconds; zero means "on receipt".
	TimeMs int64 `json:"time_ms,omitempty"`
	// AtMs is the offset from the start of a recorded trace; zero means "now".
	AtMs int64 `json:"at_ms,omitempty"`
}

// EventTime returns the page's event time, or the zero time when the signal carries none.
func (s Signal) EventTime() time.Time {
	if s.TimeMs <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(s.TimeMs)
}
