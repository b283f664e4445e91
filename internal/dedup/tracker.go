// Package dedup limits a named event to one send per fixed time window.
package dedup

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/counter"
)

// DefaultWindow is three days.
const DefaultWindow = 72 * 60 * 60 * 1000 // milliseconds

// keyPrefix namespaces window indices in the counter store.
const keyPrefix = "dedup:"

// DecisionsTotal counts ShouldSend results per key.
var DecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adclick_dedup_decisions_total",
		Help: "Total number of dedup window decisions",
	},
	[]string{"key", "decision"}, // decision: send, suppress
)

// Tracker records, per event name, the last window index in which the event was sent.
// It is not safe for concurrent use; the detector calls it from its loop goroutine only.
type Tracker struct {
	store    counter.Store
	windowMs int64
	clock    clock.Clock
	log      *zap.Logger
}

// NewTracker creates a tracker with the given window size in milliseconds.
// A non-positive window falls back to DefaultWindow.
func NewTracker(store counter.Store, windowMs int64, clk clock.Clock, log *zap.Logger) *Tracker {
	if windowMs <= 0 {
		windowMs = DefaultWindow
	}
	return &Tracker{
		store:    store,
		windowMs: windowMs,
		clock:    clk,
		log:      log,
	}
}

// Window returns the index of the window containing the current time.
func (t *Tracker) Window() int64 {
	return floorDiv(t.clock.Now().UnixMilli(), t.windowMs)
}

// ShouldSend reports whether key may be sent in the current window and, if so, marks it sent.
// Store failures fail open: a send is permitted rather than silently lost.
func (t *Tracker) ShouldSend(ctx context.Context, key string) bool {
	current := t.Window()
	storeKey := keyPrefix + key

	last, found, err := t.store.Get(ctx, storeKey)
	if err != nil {
		t.log.Warn("Failed to read dedup window, permitting send",
			zap.String("key", key),
			zap.Error(err))
		found = false
	}

	if found && last == current {
		DecisionsTotal.WithLabelValues(key, "suppress").Inc()
		t.log.Debug("Event already sent in current window",
			zap.String("key", key),
			zap.Int64("window", current))
		return false
	}

	if err := t.store.Set(ctx, storeKey, current); err != nil {
		t.log.Warn("Failed to record dedup window",
			zap.String("key", key),
			zap.Int64("window", current),
			zap.Error(err))
	}

	DecisionsTotal.WithLabelValues(key, "send").Inc()
	return true
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
