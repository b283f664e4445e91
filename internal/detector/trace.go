package detector

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

const maxTraceLineSize = 1024 * 1024

// SignalSource emits page signals in order.
type SignalSource interface {
	Stream(ctx context.Context, emit func(domain.Signal) error) error
}

// SignalSourceFunc adapts a function literal to the SignalSource interface.
type SignalSourceFunc func(ctx context.Context, emit func(domain.Signal) error) error

// Stream calls the underlying function.
func (f SignalSourceFunc) Stream(ctx context.Context, emit func(domain.Signal) error) error {
	return f(ctx, emit)
}

// Pacer blocks until offset has elapsed since the pacer was created.
type Pacer func(ctx context.Context, offset time.Duration) error

// RealtimePacer waits on clk so a recorded trace replays at its original speed.
func RealtimePacer(clk clock.Clock) Pacer {
	start := clk.Now()
	return func(ctx context.Context, offset time.Duration) error {
		wait := start.Add(offset).Sub(clk.Now())
		if wait <= 0 {
			return nil
		}

		fired := make(chan struct{})
		timer := clk.AfterFunc(wait, func() { close(fired) })
		select {
		case <-fired:
			return nil
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}

// ManualPacer moves clk forward to each offset, firing any timers due on the way.
func ManualPacer(clk *clock.Manual) Pacer {
	start := clk.Now()
	return func(ctx context.Context, offset time.Duration) error {
		clk.Set(start.Add(offset))
		return ctx.Err()
	}
}

// TraceSource reads JSON-lines signals. Blank lines and lines starting with '#' are skipped.
type TraceSource struct {
	reader io.Reader
	pace   Pacer
	log    *zap.Logger
}

// NewTraceSource creates a trace reader. A nil pace ignores at_ms offsets.
func NewTraceSource(reader io.Reader, pace Pacer, log *zap.Logger) *TraceSource {
	return &TraceSource{reader: reader, pace: pace, log: log}
}

func (s *TraceSource) Stream(ctx context.Context, emit func(domain.Signal) error) error {
	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxTraceLineSize)

	line := 0
	for scanner.Scan() {
		line++

		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}

		var sig domain.Signal
		if err := json.Unmarshal(raw, &sig); err != nil {
			return fmt.Errorf("failed to decode signal on line %d: %w", line, err)
		}

		if s.pace != nil && sig.AtMs > 0 {
			if err := s.pace(ctx, time.Duration(sig.AtMs)*time.Millisecond); err != nil {
				return err
			}
		}

		if err := emit(sig); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	s.log.Debug("Trace finished", zap.Int("lines", line))
	return nil
}

// Replay submits every signal of src. Invalid signals are logged and skipped.
func (d *Detector) Replay(ctx context.Context, src SignalSource) error {
	return src.Stream(ctx, func(sig domain.Signal) error {
		err := d.Submit(ctx, sig)
		if errors.Is(err, ErrInvalidSignal) {
			d.log.Warn("Skipping invalid signal", zap.Error(err))
			return nil
		}
		return err
	})
}
