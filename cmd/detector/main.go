package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/config"
	"github.com/BarkinBalci/adclick-detector/internal/counter"
	"github.com/BarkinBalci/adclick-detector/internal/dedup"
	"github.com/BarkinBalci/adclick-detector/internal/detector"
	"github.com/BarkinBalci/adclick-detector/internal/dispatch"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/gesture"
	"github.com/BarkinBalci/adclick-detector/internal/handler"
	"github.com/BarkinBalci/adclick-detector/internal/logger"
)

// stdinTrace selects standard input as the signal trace.
const stdinTrace = "-"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log, err := logger.New(cfg.Service.Environment, "detector")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := counter.Open(cfg, log)
	if err != nil {
		log.Fatal("Failed to open counter store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Failed to close counter store", zap.Error(err))
		}
	}()

	env := environment(cfg.Detector)
	clk := clock.Real{}

	beaconClient := &http.Client{Timeout: cfg.Beacon.Timeout}
	beacon := dispatch.NewBeaconSink(
		cfg.Beacon.URL,
		beaconClient,
		dispatch.NewHTTPIPLookup(cfg.Beacon.IPLookupURL, beaconClient, log),
		env,
		log,
	)
	pixel := dispatch.NewPixelSink(cfg.Pixel, &http.Client{Timeout: cfg.Pixel.Timeout}, env, log)
	tracker := dedup.NewTracker(store, cfg.Detector.DedupWindow.Milliseconds(), clk, log)

	dispatcher := dispatch.NewDispatcher(beacon, pixel, tracker, log,
		dispatch.WithPixelKey(cfg.Pixel.EventName))

	d := detector.New(ctx, detector.Config{
		Gesture: gesture.Config{
			GuardOffset:    cfg.Detector.GuardOffset,
			MoveThreshold:  cfg.Detector.MoveThreshold,
			MinTapDuration: cfg.Detector.MinTapDuration,
			MaxTapDuration: cfg.Detector.MaxTapDuration,
			GracePeriod:    cfg.Detector.GracePeriod,
		},
		ElementPrefix: cfg.Detector.ElementPrefix,
		ScanInterval:  cfg.Detector.ScanInterval,
		Environment:   env,
	}, store, dispatcher, clk, log)

	log.Info("Starting ad click detector",
		zap.String("environment", cfg.Service.Environment),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("beacon_enabled", beacon.Available()),
		zap.Bool("pixel_enabled", pixel.Available()))

	runDone := make(chan error, 1)
	go func() {
		runDone <- d.Run(ctx)
	}()

	if !d.Enabled() {
		<-runDone
		return
	}

	if cfg.Detector.TracePath != "" {
		go replayTrace(ctx, d, cfg.Detector.TracePath, clk, log)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Detector.Port,
		Handler:           handler.NewSignalHandler(d, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Signal server starting", zap.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Signal server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down detector gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down signal server", zap.Error(err))
	}

	if err := <-runDone; err != nil {
		log.Error("Detector loop error", zap.Error(err))
	}
	dispatcher.Wait()
}

func environment(cfg config.Detector) domain.Environment {
	return domain.Environment{
		PageURL:        cfg.PageURL,
		UserAgent:      cfg.UserAgent,
		Platform:       cfg.Platform,
		ScreenWidth:    cfg.ScreenWidth,
		ScreenHeight:   cfg.ScreenHeight,
		MaxTouchPoints: cfg.MaxTouchPoints,
	}
}

func replayTrace(ctx context.Context, d *detector.Detector, path string, clk clock.Clock, log *zap.Logger) {
	var reader io.Reader = os.Stdin
	if path != stdinTrace {
		file, err := os.Open(path)
		if err != nil {
			log.Error("Failed to open signal trace", zap.String("path", path), zap.Error(err))
			return
		}
		defer file.Close()
		reader = file
	}

	source := detector.NewTraceSource(reader, detector.RealtimePacer(clk), log)
	if err := d.Replay(ctx, source); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Signal trace replay failed", zap.String("path", path), zap.Error(err))
		return
	}

	log.Info("Signal trace replayed", zap.String("path", path))
}
