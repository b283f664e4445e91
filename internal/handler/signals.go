package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/detector"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/dto"
)

// SignalSubmitter accepts page signals for classification.
type SignalSubmitter interface {
	Submit(ctx context.Context, sig domain.Signal) error
	Total(ctx context.Context) (int64, error)
	RunID() string
	Enabled() bool
}

// SignalHandler serves the detector's signal ingest API.
type SignalHandler struct {
	detector SignalSubmitter
	router   *gin.Engine
	log      *zap.Logger
}

func NewSignalHandler(d SignalSubmitter, log *zap.Logger) *SignalHandler {
	h := &SignalHandler{
		detector: d,
		router:   gin.Default(),
		log:      log,
	}

	h.router.GET("/health", h.healthCheck)
	h.router.GET("/metrics/prometheus", gin.WrapH(promhttp.Handler()))
	h.router.POST("/signals", h.submitSignal)

	return h
}

func (h *SignalHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *SignalHandler) healthCheck(c *gin.Context) {
	total, err := h.detector.Total(c.Request.Context())
	if errors.Is(err, detector.ErrDisabled) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "disabled",
			"run_id":  h.detector.RunID(),
			"enabled": false,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "stopped",
			"run_id": h.detector.RunID(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"run_id":       h.detector.RunID(),
		"enabled":      h.detector.Enabled(),
		"total_clicks": total,
	})
}

// submitSignal handles POST /signals
func (h *SignalHandler) submitSignal(c *gin.Context) {
	var sig domain.Signal

	if err := c.ShouldBindJSON(&sig); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	err := h.detector.Submit(c.Request.Context(), sig)
	switch {
	case err == nil:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	case errors.Is(err, detector.ErrInvalidSignal):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "invalid_signal",
			Message: err.Error(),
		})
	case errors.Is(err, detector.ErrDisabled):
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Error:   "detector_disabled",
			Message: err.Error(),
		})
	default:
		h.log.Error("Failed to submit signal",
			zap.Error(err),
			zap.String("type", string(sig.Type)))
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{
			Error:   "detector_unavailable",
			Message: err.Error(),
		})
	}
}
