package consumer

import (
	"context"
	"sync/atomic"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

type settleFunc func(context.Context) error

// Envelope carries a parsed ad click until its queue message is settled.
// Only the first Ack or Nack reaches the queue.
type Envelope struct {
	Click   *domain.AdClick
	ack     settleFunc
	nack    settleFunc
	settled atomic.Bool
}

func NewEnvelope(click *domain.AdClick, ack, nack func(context.Context) error) *Envelope {
	return &Envelope{Click: click, ack: ack, nack: nack}
}

// Ack deletes the message after a successful write.
func (e *Envelope) Ack(ctx context.Context) error {
	return e.settle(ctx, e.ack)
}

// Nack hands the message back to the queue for redelivery.
func (e *Envelope) Nack(ctx context.Context) error {
	return e.settle(ctx, e.nack)
}

// Settled reports whether Ack or Nack has been called.
func (e *Envelope) Settled() bool {
	return e.settled.Load()
}

func (e *Envelope) settle(ctx context.Context, fn settleFunc) error {
	if !e.settled.CompareAndSwap(false, true) || fn == nil {
		return nil
	}
	return fn(ctx)
}
