// Package dispatch fans finalized click events out to the beacon and pixel sinks.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// DefaultPixelKey is the dedup key of the pixel custom event.
const DefaultPixelKey = "user_c"

// DefaultSendTimeout bounds a single sink delivery.
const DefaultSendTimeout = 10 * time.Second

// DeliveriesTotal counts sink deliveries by outcome.
var DeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "adclick_sink_deliveries_total",
		Help: "Total number of click event deliveries per sink",
	},
	[]string{"sink", "outcome"}, // outcome: success, failure, suppressed, skipped
)

// Dispatcher sends every event to the beacon sink and, at most once per dedup window, to
// the pixel sink. Dispatch must be called from a single goroutine; sends run concurrently.
type Dispatcher struct {
	beacon   Sink
	pixel    OptionalSink
	gate     Gate
	pixelKey string
	timeout  time.Duration
	log      *zap.Logger
	wg       sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPixelKey overrides the dedup key used for the pixel sink.
func WithPixelKey(key string) Option {
	return func(d *Dispatcher) {
		if key != "" {
			d.pixelKey = key
		}
	}
}

// WithSendTimeout overrides DefaultSendTimeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// NewDispatcher creates a dispatcher. pixel may be nil when no pixel integration exists.
func NewDispatcher(beacon Sink, pixel OptionalSink, gate Gate, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		beacon:   beacon,
		pixel:    pixel,
		gate:     gate,
		pixelKey: DefaultPixelKey,
		timeout:  DefaultSendTimeout,
		log:      log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch starts the deliveries for event and returns without waiting for them.
// The pixel dedup decision is taken before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.ClickEvent) {
	d.sendBeacon(ctx, event)
	d.sendPixel(ctx, event)
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) sendBeacon(ctx context.Context, event domain.ClickEvent) {
	if d.beacon == nil {
		return
	}
	if optional, ok := d.beacon.(OptionalSink); ok && !optional.Available() {
		DeliveriesTotal.WithLabelValues(d.beacon.Name(), "skipped").Inc()
		d.log.Debug("Beacon sink not configured, skipping", zap.Int64("sequence", event.SequenceNumber))
		return
	}
	d.deliver(ctx, d.beacon, event)
}

func (d *Dispatcher) sendPixel(ctx context.Context, event domain.ClickEvent) {
	if d.pixel == nil || !d.pixel.Available() {
		return
	}

	if !d.gate.ShouldSend(ctx, d.pixelKey) {
		DeliveriesTotal.WithLabelValues(d.pixel.Name(), "suppressed").Inc()
		d.log.Debug("Pixel event already sent in current window",
			zap.String("key", d.pixelKey),
			zap.Int64("sequence", event.SequenceNumber))
		return
	}

	d.deliver(ctx, d.pixel, event)
}

// deliver sends on its own goroutine, detached from ctx cancellation so shutdown does not
// abort a send that already started.
func (d *Dispatcher) deliver(ctx context.Context, sink Sink, event domain.ClickEvent) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer cancel()

		if err := sink.Send(sendCtx, event); err != nil {
			DeliveriesTotal.WithLabelValues(sink.Name(), "failure").Inc()
			d.log.Error("Failed to deliver click event",
				zap.String("sink", sink.Name()),
				zap.Int64("sequence", event.SequenceNumber),
				zap.String("element_id", event.ElementID),
				zap.Error(err))
			return
		}

		DeliveriesTotal.WithLabelValues(sink.Name(), "success").Inc()
		d.log.Info("Click event delivered",
			zap.String("sink", sink.Name()),
			zap.Int64("sequence", event.SequenceNumber),
			zap.String("detection_method", string(event.DetectionMethod)))
	}()
}
