// Package aggregator turns qualifying gestures into counted, persisted ClickEvents.
package aggregator

import (
	"context"

	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/counter"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

// Dispatcher receives every finalized ClickEvent.
type Dispatcher interface {
	Dispatch(ctx context.Context, event domain.ClickEvent)
}

// Aggregator owns the global click counter. It is not safe for concurrent use.
type Aggregator struct {
	store      counter.Store
	dispatcher Dispatcher
	clock      clock.Clock
	log        *zap.Logger
	total      int64
}

// New reads the persisted click count once. A failed read starts the count at zero.
func New(ctx context.Context, store counter.Store, dispatcher Dispatcher, clk clock.Clock, log *zap.Logger) *Aggregator {
	total, _, err := store.Get(ctx, counter.TotalClickCountKey)
	if err != nil {
		log.Warn("Failed to read total click count, starting from zero", zap.Error(err))
		total = 0
	}
	if total < 0 {
		log.Warn("Stored total click count is negative, starting from zero", zap.Int64("stored", total))
		total = 0
	}

	return &Aggregator{
		store:      store,
		dispatcher: dispatcher,
		clock:      clk,
		log:        log,
		total:      total,
	}
}

// Total returns the current click count.
func (a *Aggregator) Total() int64 {
	return a.total
}

// OnQualifyingGesture counts the outcome, persists the new total and dispatches the event.
// A persistence failure is logged; the event is still dispatched and the count is not retried.
func (a *Aggregator) OnQualifyingGesture(ctx context.Context, outcome domain.Outcome, elementID string) domain.ClickEvent {
	a.total++

	if err := a.store.Set(ctx, counter.TotalClickCountKey, a.total); err != nil {
		a.log.Error("Failed to persist total click count",
			zap.Int64("total", a.total),
			zap.Error(err))
	}

	event := domain.NewClickEvent(outcome, elementID, a.total, a.clock.Now())

	a.log.Debug("Click counted",
		zap.Int64("sequence", event.SequenceNumber),
		zap.String("method", string(event.DetectionMethod)),
		zap.String("area", string(event.ClickArea)),
		zap.Int64("duration_ms", event.DurationMs),
		zap.String("element_id", event.ElementID))

	a.dispatcher.Dispatch(ctx, event)

	return event
}
