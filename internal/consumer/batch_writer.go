package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/repository"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter buffers envelopes and writes them to the repository in batches. A batch is
// acked only after the whole batch is stored; otherwise every message in it is released.
type BatchWriter struct {
	repository repository.AdClickRepository
	config     BatchWriterConfig
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.AdClickRepository, config BatchWriterConfig, log *zap.Logger) *BatchWriter {
	if config.MaxBatchSize <= 0 {
		config.MaxBatchSize = 1
	}
	if config.FlushTimeout <= 0 {
		config.FlushTimeout = time.Second
	}
	return &BatchWriter{
		repository: repo,
		config:     config,
		log:        log,
	}
}

// Start consumes envelopes until in closes or ctx ends, flushing what is buffered on exit
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Envelope, 0, w.config.MaxBatchSize)
	flush := func(ctx context.Context, reason string) {
		if len(batch) == 0 {
			return
		}
		w.log.Debug("Flushing ad click batch",
			zap.String("reason", reason),
			zap.Int("envelope_count", len(batch)))
		w.processBatch(ctx, batch)
		batch = make([]*Envelope, 0, w.config.MaxBatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			// The pipeline context is gone; the final write gets its own.
			flush(context.WithoutCancel(ctx), "shutdown")
			w.log.Info("Batch writer shutting down")
			return

		case envelope, ok := <-in:
			if !ok {
				flush(ctx, "input closed")
				w.log.Info("Batch writer input channel closed")
				return
			}

			batch = append(batch, envelope)
			if len(batch) >= w.config.MaxBatchSize {
				flush(ctx, "size")
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			flush(ctx, "timeout")
		}
	}
}

func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	clicks := make([]*domain.AdClick, len(envelopes))
	for i, env := range envelopes {
		clicks[i] = env.Click
	}

	insertedCount, err := w.repository.InsertBatch(ctx, clicks)
	if err != nil {
		MessagesTotal.WithLabelValues("write", "failure").Add(float64(len(clicks)))
		w.log.Error("Failed to insert ad click batch",
			zap.Error(err),
			zap.Int("click_count", len(clicks)))
		w.settle(ctx, envelopes, false)
		return
	}

	if insertedCount != len(clicks) {
		MessagesTotal.WithLabelValues("write", "failure").Add(float64(len(clicks)))
		w.log.Warn("Partial insert, releasing batch for redelivery",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(clicks)))
		w.settle(ctx, envelopes, false)
		return
	}

	MessagesTotal.WithLabelValues("write", "success").Add(float64(insertedCount))
	w.log.Info("Inserted ad clicks", zap.Int("count", insertedCount))
	w.settle(ctx, envelopes, true)
}

func (w *BatchWriter) settle(ctx context.Context, envelopes []*Envelope, ack bool) {
	for _, env := range envelopes {
		var err error
		if ack {
			err = env.Ack(ctx)
		} else {
			err = env.Nack(ctx)
		}
		if err != nil {
			w.log.Error("Failed to settle envelope",
				zap.Bool("ack", ack),
				zap.String("report_id", env.Click.ReportID),
				zap.Error(err))
		}
	}
}
