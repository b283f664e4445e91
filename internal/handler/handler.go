package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/dto"
	"github.com/BarkinBalci/adclick-detector/internal/middleware"
	"github.com/BarkinBalci/adclick-detector/internal/service"
)

const statusIgnored = "ignored"

// Handler serves the beacon collector API.
type Handler struct {
	beaconService service.BeaconServicer
	limiter       *middleware.IPRateLimiter
	router        *gin.Engine
	log           *zap.Logger
}

func NewHandler(beaconService service.BeaconServicer, limiter *middleware.IPRateLimiter, log *zap.Logger) *Handler {
	h := &Handler{
		beaconService: beaconService,
		limiter:       limiter,
		router:        gin.Default(),
		log:           log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", healthCheck)
	h.router.GET("/metrics", h.getMetrics)
	h.router.GET("/metrics/prometheus", gin.WrapH(promhttp.Handler()))

	beacons := h.router.Group("/beacons", middleware.BotFilter())
	if h.limiter != nil {
		beacons.Use(middleware.RateLimit(h.limiter))
	}
	beacons.POST("", h.publishBeacon)
	beacons.POST("/bulk", h.publishBeaconsBulk)
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// isValidationError reports whether err is the client's fault.
func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidEventType) ||
		errors.Is(err, service.ErrFutureTimestamp) ||
		errors.Is(err, service.ErrInvalidQuery) ||
		errors.Is(err, domain.ErrInvalidTimestamp)
}

// publishBeacon handles POST /beacons
func (h *Handler) publishBeacon(c *gin.Context) {
	var report domain.BeaconReport

	if err := c.ShouldBindJSON(&report); err != nil {
		h.log.Warn("Invalid beacon request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if middleware.IsBot(c) {
		h.log.Debug("Ignoring beacon from bot", zap.String("user_agent", c.Request.UserAgent()))
		c.JSON(http.StatusAccepted, dto.PublishBeaconResponse{Status: statusIgnored})
		return
	}

	reportID, err := h.beaconService.ProcessReport(c.Request.Context(), &report, c.ClientIP())
	if err != nil {
		if isValidationError(err) {
			h.log.Warn("Rejected beacon", zap.Error(err), zap.String("page", report.Page))
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
			return
		}

		h.log.Error("Failed to process beacon",
			zap.Error(err),
			zap.String("page", report.Page),
			zap.String("detection_method", report.DetectionMethod))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Beacon accepted",
		zap.String("report_id", reportID),
		zap.String("detection_method", report.DetectionMethod),
		zap.Int64("total_click_count", report.TotalClickCount))

	c.JSON(http.StatusAccepted, dto.PublishBeaconResponse{
		ReportID: reportID,
		Status:   "accepted",
	})
}

// publishBeaconsBulk handles POST /beacons/bulk
func (h *Handler) publishBeaconsBulk(c *gin.Context) {
	var bulkRequest dto.PublishBeaconsBulkRequest

	if err := c.ShouldBindJSON(&bulkRequest); err != nil {
		h.log.Warn("Invalid bulk beacon request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	if middleware.IsBot(c) {
		c.JSON(http.StatusAccepted, dto.PublishBulkBeaconsResponse{
			Rejected: len(bulkRequest.Reports),
			Errors:   []string{statusIgnored},
		})
		return
	}

	reportIDs, errs, err := h.beaconService.ProcessBulkReports(c.Request.Context(), bulkRequest.Reports, c.ClientIP())
	if err != nil {
		h.log.Error("Failed to process bulk beacons",
			zap.Error(err),
			zap.Int("report_count", len(bulkRequest.Reports)))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Bulk beacons processed",
		zap.Int("accepted", len(reportIDs)),
		zap.Int("rejected", len(errs)),
		zap.Int("total", len(bulkRequest.Reports)))

	c.JSON(http.StatusAccepted, dto.PublishBulkBeaconsResponse{
		Accepted:  len(reportIDs),
		Rejected:  len(errs),
		ReportIDs: reportIDs,
		Errors:    errs,
	})
}

// getMetrics handles GET /metrics
func (h *Handler) getMetrics(c *gin.Context) {
	var req dto.GetMetricsRequest

	if err := c.ShouldBindQuery(&req); err != nil {
		h.log.Warn("Invalid metrics request", zap.Error(err))
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	response, err := h.beaconService.GetMetrics(c.Request.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "validation_error",
				Message: err.Error(),
			})
			return
		}

		h.log.Error("Failed to get metrics",
			zap.Error(err),
			zap.Int64("from", req.From),
			zap.Int64("to", req.To))
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{
			Error:   "internal_error",
			Message: err.Error(),
		})
		return
	}

	h.log.Info("Metrics retrieved",
		zap.String("group_by", req.GroupBy),
		zap.Uint64("total_clicks", response.TotalClicks),
		zap.Uint64("unique_ips", response.UniqueIPs))

	c.JSON(http.StatusOK, response)
}
