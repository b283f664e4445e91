// Package detector runs the gesture classifier, registry and aggregator on a single event loop.
package detector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/aggregator"
	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/counter"
	"github.com/BarkinBalci/adclick-detector/internal/device"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/gesture"
	"github.com/BarkinBalci/adclick-detector/internal/registry"
)

const (
	// DefaultScanInterval is how often the page is scanned for new ad elements.
	DefaultScanInterval = 2 * time.Second

	taskBufferSize = 256
)

var (
	// ErrDisabled is returned when the environment is not a mobile device.
	ErrDisabled = errors.New("detector is disabled on non-mobile environments")

	// ErrStopped is returned once the event loop has exited.
	ErrStopped = errors.New("detector is stopped")

	// ErrInvalidSignal is returned for signals the detector cannot interpret.
	ErrInvalidSignal = errors.New("invalid signal")
)

// SignalsTotal counts processed signals by type and result.
var SignalsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adclick_signals_total",
		Help: "Total number of page signals processed by the detector",
	},
	[]string{"type", "result"}, // result: handled, ignored, invalid
)

// Config holds the detector settings.
type Config struct {
	Gesture       gesture.Config
	ElementPrefix string
	ScanInterval  time.Duration
	Environment   domain.Environment
}

type task func(ctx context.Context)

// Detector serializes every signal, scan tick and grace-timer callback onto the goroutine
// running Run, so the classifier, aggregator and dedup state need no locking.
type Detector struct {
	cfg        Config
	classifier *gesture.Classifier
	aggregator *aggregator.Aggregator
	registry   *registry.Registry
	snapshot   *registry.SnapshotSource
	clock      clock.Clock
	enabled    bool
	runID      string
	log        *zap.Logger

	tasks     chan task
	done      chan struct{}
	scanTimer clock.Timer
}

// New wires a detector. The persisted click total is read here, once.
func New(ctx context.Context, cfg Config, store counter.Store, dispatcher aggregator.Dispatcher, clk clock.Clock, log *zap.Logger) *Detector {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = DefaultScanInterval
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	d := &Detector{
		cfg:      cfg,
		clock:    clk,
		enabled:  device.IsMobile(cfg.Environment),
		runID:    runID,
		log:      log,
		snapshot: registry.NewSnapshotSource(),
		tasks:    make(chan task, taskBufferSize),
		done:     make(chan struct{}),
	}

	d.registry = registry.New(d.snapshot, cfg.ElementPrefix, log)
	d.classifier = gesture.NewClassifier(cfg.Gesture, clk, d.deferOnLoop, log)
	d.aggregator = aggregator.New(ctx, store, dispatcher, clk, log)

	return d
}

// RunID identifies this detector instance in logs.
func (d *Detector) RunID() string {
	return d.runID
}

// Enabled reports whether the environment is a mobile device.
func (d *Detector) Enabled() bool {
	return d.enabled
}

// Run executes the event loop until ctx is cancelled. On a non-mobile environment it logs
// and returns immediately.
func (d *Detector) Run(ctx context.Context) error {
	defer close(d.done)

	if !d.enabled {
		d.log.Info("Non-mobile environment, ad click detector disabled",
			zap.String("user_agent", d.cfg.Environment.UserAgent),
			zap.Int("screen_width", d.cfg.Environment.ScreenWidth))
		return nil
	}

	d.log.Info("Ad click detector started",
		zap.Int64("total_click_count", d.aggregator.Total()),
		zap.String("page", d.cfg.Environment.PageURL))

	d.scan(ctx)
	d.scheduleScan()
	defer func() {
		if d.scanTimer != nil {
			d.scanTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("Ad click detector stopped", zap.Int64("total_click_count", d.aggregator.Total()))
			return nil
		case t := <-d.tasks:
			t(ctx)
		}
	}
}

// Submit hands sig to the event loop and waits until it has been processed.
func (d *Detector) Submit(ctx context.Context, sig domain.Signal) error {
	var handleErr error
	if err := d.do(ctx, func(loopCtx context.Context) {
		handleErr = d.handle(loopCtx, sig)
	}); err != nil {
		return err
	}
	return handleErr
}

// Flush waits until every task queued before it has run.
func (d *Detector) Flush(ctx context.Context) error {
	return d.do(ctx, func(context.Context) {})
}

// Total returns the click count as seen by the event loop.
func (d *Detector) Total(ctx context.Context) (int64, error) {
	var total int64
	err := d.do(ctx, func(context.Context) {
		total = d.aggregator.Total()
	})
	return total, err
}

func (d *Detector) do(ctx context.Context, fn task) error {
	if !d.enabled {
		return ErrDisabled
	}

	finished := make(chan struct{})
	if !d.post(ctx, func(loopCtx context.Context) {
		defer close(finished)
		fn(loopCtx)
	}) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrStopped
	}
}

// post queues t on the loop. It returns false when the loop has stopped or ctx ended first.
func (d *Detector) post(ctx context.Context, t task) bool {
	select {
	case d.tasks <- t:
		return true
	case <-d.done:
		return false
	case <-ctx.Done():
		return false
	}
}

// deferOnLoop schedules fn to run on the loop after delay. It is the classifier's DeferFunc.
func (d *Detector) deferOnLoop(delay time.Duration, fn func()) {
	d.clock.AfterFunc(delay, func() {
		d.post(context.Background(), func(context.Context) { fn() })
	})
}

func (d *Detector) scheduleScan() {
	d.scanTimer = d.clock.AfterFunc(d.cfg.ScanInterval, func() {
		d.post(context.Background(), func(ctx context.Context) {
			d.scan(ctx)
			d.scheduleScan()
		})
	})
}

func (d *Detector) scan(ctx context.Context) {
	result, err := d.registry.Discover(ctx)
	if err != nil {
		d.log.Warn("Failed to scan for ad elements", zap.Error(err))
		return
	}

	for _, id := range result.Added {
		d.log.Debug("Monitoring ad element", zap.String("element_id", id))
	}
	for _, id := range result.Removed {
		d.classifier.Forget(id)
		d.log.Debug("Ad element removed", zap.String("element_id", id))
	}
}

func (d *Detector) handle(ctx context.Context, sig domain.Signal) error {
	result := "handled"
	defer func() {
		SignalsTotal.WithLabelValues(string(sig.Type), result).Inc()
	}()

	switch sig.Type {
	case domain.SignalScan:
		if sig.Elements != nil {
			d.snapshot.Set(sig.Elements)
		}
		d.scan(ctx)

	case domain.SignalTouchStart:
		if !d.monitored(sig.ElementID) {
			result = "ignored"
			return nil
		}
		d.classifier.TouchStartAt(sig.ElementID, sig.X, sig.Y, sig.ElementTop, sig.EventTime())

	case domain.SignalTouchMove:
		if !d.monitored(sig.ElementID) {
			result = "ignored"
			return nil
		}
		d.classifier.TouchMove(sig.ElementID, sig.X, sig.Y)

	case domain.SignalTouchEnd:
		if !d.monitored(sig.ElementID) {
			result = "ignored"
			return nil
		}
		if r, ok := d.classifier.TouchEndAt(sig.ElementID, sig.EventTime()); ok {
			d.emit(ctx, r)
		}

	case domain.SignalTouchCancel:
		d.classifier.TouchCancel(sig.ElementID)

	case domain.SignalBlur:
		if r, ok := d.classifier.PageBlur(); ok {
			d.emit(ctx, r)
		}

	case domain.SignalVisibility:
		if !sig.Hidden {
			result = "ignored"
			return nil
		}
		if r, ok := d.classifier.PageHidden(); ok {
			d.emit(ctx, r)
		}

	case domain.SignalOverlayTap:
		if sig.DurationMs < 0 {
			result = "invalid"
			return fmt.Errorf("%w: negative overlay tap duration %d", ErrInvalidSignal, sig.DurationMs)
		}
		r := d.classifier.OverlayTap(sig.ElementID, time.Duration(sig.DurationMs)*time.Millisecond)
		d.emit(ctx, r)

	default:
		result = "invalid"
		return fmt.Errorf("%w: unknown type %q", ErrInvalidSignal, sig.Type)
	}

	return nil
}

func (d *Detector) monitored(elementID string) bool {
	if d.registry.Monitored(elementID) {
		return true
	}
	d.log.Debug("Signal for unmonitored element ignored", zap.String("element_id", elementID))
	return false
}

func (d *Detector) emit(ctx context.Context, r gesture.Result) {
	event := d.aggregator.OnQualifyingGesture(ctx, r.Outcome, r.ElementID)

	d.log.Info("Ad click detected",
		zap.Int64("total_click_count", event.SequenceNumber),
		zap.String("detection_method", string(event.DetectionMethod)),
		zap.String("click_area", string(event.ClickArea)),
		zap.String("element_id", event.ElementID),
		zap.Int64("duration_ms", event.DurationMs))
}
