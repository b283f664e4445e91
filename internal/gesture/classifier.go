// Package gesture classifies raw touch, focus and visibility signals on ad elements into
// qualifying ad clicks.
//
// A Classifier keeps one Session per element. A session starts on touch-start (unless the
// touch lands in the guarded band at the top of the element, where an overlay sits), collects
// movement, and ends on touch-end, touch-cancel or a page blur/hidden signal. A tap that ends
// the session qualifies when it neither moved beyond the movement threshold nor lasted outside
// the (min, max) duration bounds. After touch-end the session stays active for a short grace
// period so that a page blur caused by the ad navigating away can still be attributed to it.
// Each session yields at most one outcome.
package gesture

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

var (
	// OutcomesTotal counts qualifying outcomes by detection method.
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adclick_gesture_outcomes_total",
			Help: "Total number of qualifying gestures",
		},
		[]string{"method"},
	)

	// RejectionsTotal counts gestures that did not qualify.
	RejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adclick_gesture_rejections_total",
			Help: "Total number of gestures rejected by the classifier",
		},
		[]string{"reason"}, // reason: guard, moved, duration
	)
)

// Config holds the classifier thresholds. Distances are in CSS pixels.
type Config struct {
	GuardOffset    float64
	MoveThreshold  float64
	MinTapDuration time.Duration
	MaxTapDuration time.Duration
	GracePeriod    time.Duration
}

// DefaultConfig returns the thresholds used on production pages.
func DefaultConfig() Config {
	return Config{
		GuardOffset:    50,
		MoveThreshold:  10,
		MinTapDuration: 50 * time.Millisecond,
		MaxTapDuration: 500 * time.Millisecond,
		GracePeriod:    100 * time.Millisecond,
	}
}

// DeferFunc runs fn on the classifier's owning goroutine after d.
type DeferFunc func(d time.Duration, fn func())

// Session is the touch state of one element.
type Session struct {
	StartedAt time.Time
	StartX    float64
	StartY    float64
	Active    bool
	Moved     bool

	ending     bool
	emitted    bool
	generation uint64
}

// Result is a qualifying outcome attributed to an element.
type Result struct {
	ElementID string
	Outcome   domain.Outcome
}

// Classifier is not safe for concurrent use. All methods, including deferred grace callbacks,
// must run on the same goroutine.
type Classifier struct {
	cfg        Config
	clock      clock.Clock
	deferFn    DeferFunc
	log        *zap.Logger
	sessions   map[string]*Session
	current    string
	generation uint64
}

// NewClassifier creates a classifier. When deferFn is nil grace callbacks are scheduled with
// clk.AfterFunc, which is only correct when clk fires callbacks on the caller's goroutine.
func NewClassifier(cfg Config, clk clock.Clock, deferFn DeferFunc, log *zap.Logger) *Classifier {
	if deferFn == nil {
		deferFn = func(d time.Duration, fn func()) {
			clk.AfterFunc(d, fn)
		}
	}
	return &Classifier{
		cfg:      cfg,
		clock:    clk,
		deferFn:  deferFn,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// TouchStart begins a session on elementID when the touch lands below the guarded band.
// It returns whether a session started. Sessions of other elements are left untouched, but
// elementID becomes the only element page blur/hidden signals can be attributed to; a guarded
// touch leaves no element eligible.
func (c *Classifier) TouchStart(elementID string, x, y, elementTop float64) bool {
	return c.TouchStartAt(elementID, x, y, elementTop, time.Time{})
}

// TouchStartAt is TouchStart for a touch the page observed at at. A zero at means now.
func (c *Classifier) TouchStartAt(elementID string, x, y, elementTop float64, at time.Time) bool {
	c.generation++

	if relativeY := y - elementTop; relativeY <= c.cfg.GuardOffset {
		if s, ok := c.sessions[elementID]; ok {
			s.Active = false
		}
		c.current = ""
		RejectionsTotal.WithLabelValues("guard").Inc()
		c.log.Debug("Touch landed in overlay band, session not started",
			zap.String("element_id", elementID),
			zap.Float64("relative_y", relativeY))
		return false
	}

	c.sessions[elementID] = &Session{
		StartedAt:  c.eventTime(at),
		StartX:     x,
		StartY:     y,
		Active:     true,
		generation: c.generation,
	}
	c.current = elementID
	return true
}

// TouchMove marks the session as moved once displacement on either axis exceeds the threshold.
func (c *Classifier) TouchMove(elementID string, x, y float64) {
	s, ok := c.sessions[elementID]
	if !ok || !s.Active || s.ending {
		return
	}

	if abs(x-s.StartX) > c.cfg.MoveThreshold || abs(y-s.StartY) > c.cfg.MoveThreshold {
		s.Moved = true
	}
}

// TouchEnd closes the touch on elementID and returns a TouchEnd outcome when the tap qualifies.
// The session stays eligible for page blur/hidden attribution for the grace period.
func (c *Classifier) TouchEnd(elementID string) (Result, bool) {
	return c.TouchEndAt(elementID, time.Time{})
}

// TouchEndAt is TouchEnd for a touch the page observed ending at at. A zero at means now.
// The tap duration is measured between the start and end event times.
func (c *Classifier) TouchEndAt(elementID string, at time.Time) (Result, bool) {
	s, ok := c.sessions[elementID]
	if !ok || !s.Active || s.ending {
		return Result{}, false
	}

	duration := c.eventTime(at).Sub(s.StartedAt)
	result, qualified := Result{}, false

	switch {
	case s.Moved:
		RejectionsTotal.WithLabelValues("moved").Inc()
		c.log.Debug("Touch moved, treated as scroll", zap.String("element_id", elementID))
	case duration <= c.cfg.MinTapDuration || duration >= c.cfg.MaxTapDuration:
		RejectionsTotal.WithLabelValues("duration").Inc()
		c.log.Debug("Touch duration outside tap bounds",
			zap.String("element_id", elementID),
			zap.Duration("duration", duration))
	default:
		s.emitted = true
		result = c.qualify(elementID, domain.DetectionTouchEnd, domain.ClickAreaNormalAd, duration)
		qualified = true
	}

	s.ending = true
	if c.cfg.GracePeriod <= 0 {
		s.Active = false
		return result, qualified
	}

	generation := s.generation
	c.deferFn(c.cfg.GracePeriod, func() {
		c.expire(elementID, generation)
	})

	return result, qualified
}

// TouchCancel ends the session on elementID without an outcome.
func (c *Classifier) TouchCancel(elementID string) {
	if s, ok := c.sessions[elementID]; ok {
		s.Active = false
	}
}

// PageBlur attributes a window blur to the current element's session.
func (c *Classifier) PageBlur() (Result, bool) {
	return c.pageExit(domain.DetectionBlur)
}

// PageHidden attributes a document becoming hidden to the current element's session.
func (c *Classifier) PageHidden() (Result, bool) {
	return c.pageExit(domain.DetectionVisibilityChange)
}

// OverlayTap reports a tap on the overlay layer. It bypasses session state entirely.
func (c *Classifier) OverlayTap(elementID string, duration time.Duration) Result {
	return c.qualify(elementID, domain.DetectionOverlayTouchEnd, domain.ClickAreaOverlay, duration)
}

// Forget drops all state for an element that left the page.
func (c *Classifier) Forget(elementID string) {
	delete(c.sessions, elementID)
	if c.current == elementID {
		c.current = ""
	}
}

// Session returns a copy of the element's session.
func (c *Classifier) Session(elementID string) (Session, bool) {
	s, ok := c.sessions[elementID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

func (c *Classifier) pageExit(method domain.DetectionMethod) (Result, bool) {
	if c.current == "" {
		return Result{}, false
	}

	s, ok := c.sessions[c.current]
	if !ok || !s.Active || s.emitted {
		return Result{}, false
	}

	s.emitted = true
	s.Active = false
	return c.qualify(c.current, method, domain.ClickAreaNormalAd, 0), true
}

func (c *Classifier) expire(elementID string, generation uint64) {
	s, ok := c.sessions[elementID]
	if !ok || s.generation != generation {
		return
	}
	s.Active = false
}

func (c *Classifier) qualify(elementID string, method domain.DetectionMethod, area domain.ClickArea, duration time.Duration) Result {
	OutcomesTotal.WithLabelValues(string(method)).Inc()
	c.log.Debug("Qualifying gesture",
		zap.String("element_id", elementID),
		zap.String("method", string(method)),
		zap.String("area", string(area)),
		zap.Duration("duration", duration))

	return Result{
		ElementID: elementID,
		Outcome: domain.Outcome{
			Method:   method,
			Area:     area,
			Duration: duration,
		},
	}
}

func (c *Classifier) eventTime(at time.Time) time.Time {
	if at.IsZero() {
		return c.clock.Now()
	}
	return at
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
