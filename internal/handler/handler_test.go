package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/clock"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
	"github.com/BarkinBalci/adclick-detector/internal/dto"
	"github.com/BarkinBalci/adclick-detector/internal/middleware"
	"github.com/BarkinBalci/adclick-detector/internal/service"
)

const (
	mobileUA   = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148"
	clientAddr = "203.0.113.7:41000"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockBeaconService is a mock implementation of service.BeaconServicer
type MockBeaconService struct {
	mock.Mock
}

func (m *MockBeaconService) ProcessReport(ctx context.Context, report *domain.BeaconReport, userIP string) (string, error) {
	args := m.Called(ctx, report, userIP)
	return args.String(0), args.Error(1)
}

func (m *MockBeaconService) ProcessBulkReports(ctx context.Context, reports []domain.BeaconReport, userIP string) ([]string, []string, error) {
	args := m.Called(ctx, reports, userIP)
	return args.Get(0).([]string), args.Get(1).([]string), args.Error(2)
}

func (m *MockBeaconService) GetMetrics(ctx context.Context, req *dto.GetMetricsRequest) (*dto.GetMetricsResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.GetMetricsResponse), args.Error(1)
}

func testReport() domain.BeaconReport {
	return domain.BeaconReport{
		EventType:       domain.EventTypeAdClick,
		Page:            "https://example.com/novels/foo/chapter-3.html",
		DeviceInfo:      "iPhone | iPhone | 390x844",
		UserIP:          "Unknown",
		TotalClickCount: 12,
		DetectionMethod: "touchend",
		ClickArea:       "normal_ad",
		AdElementID:     "div-gpt-ad-1",
		Timestamp:       "2026-10-19T08:00:00.000Z",
	}
}

func newTestHandler(svc *MockBeaconService) *Handler {
	return NewHandler(svc, nil, zap.NewNop())
}

func postJSON(h http.Handler, path string, body any, ua string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", ua)
	req.RemoteAddr = clientAddr
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHandler_HealthCheck(t *testing.T) {
	h := newTestHandler(new(MockBeaconService))

	req := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
}

func TestHandler_PublishBeacon_Success(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)
	report := testReport()

	svc.On("ProcessReport", mock.Anything, &report, "203.0.113.7").Return("report-id-123", nil)

	w := postJSON(h, "/beacons", report, mobileUA)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var response dto.PublishBeaconResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "report-id-123", response.ReportID)
	assert.Equal(t, "accepted", response.Status)
	svc.AssertExpectations(t)
}

func TestHandler_PublishBeacon_InvalidJSON(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/beacons", bytes.NewReader([]byte(`{"eventType": invalid}`)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", mobileUA)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "validation_error", response.Error)
	svc.AssertNotCalled(t, "ProcessReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_PublishBeacon_MissingRequiredFields(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)

	report := testReport()
	report.DetectionMethod = ""
	w := postJSON(h, "/beacons", report, mobileUA)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ProcessReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_PublishBeacon_ServiceErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "future timestamp",
			err:      fmt.Errorf("%w: later", service.ErrFutureTimestamp),
			wantCode: http.StatusBadRequest,
			wantBody: "validation_error",
		},
		{
			name:     "bad timestamp",
			err:      fmt.Errorf("%w: %q", domain.ErrInvalidTimestamp, "yesterday"),
			wantCode: http.StatusBadRequest,
			wantBody: "validation_error",
		},
		{
			name:     "queue failure",
			err:      errors.New("failed to publish report to queue: timeout"),
			wantCode: http.StatusInternalServerError,
			wantBody: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBeaconService)
			h := newTestHandler(svc)
			svc.On("ProcessReport", mock.Anything, mock.Anything, mock.Anything).Return("", tt.err)

			w := postJSON(h, "/beacons", testReport(), mobileUA)

			assert.Equal(t, tt.wantCode, w.Code)
			var response dto.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tt.wantBody, response.Error)
		})
	}
}

func TestHandler_PublishBeacon_BotIgnored(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)

	w := postJSON(h, "/beacons", testReport(), "Googlebot/2.1 (+http://www.google.com/bot.html)")

	assert.Equal(t, http.StatusAccepted, w.Code)

	var response dto.PublishBeaconResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "ignored", response.Status)
	assert.Empty(t, response.ReportID)
	svc.AssertNotCalled(t, "ProcessReport", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_PublishBeacon_RateLimited(t *testing.T) {
	svc := new(MockBeaconService)
	clk := clock.NewManual(time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC))
	h := NewHandler(svc, middleware.NewIPRateLimiter(1, 1, clk), zap.NewNop())

	svc.On("ProcessReport", mock.Anything, mock.Anything, mock.Anything).Return("report-id", nil)

	assert.Equal(t, http.StatusAccepted, postJSON(h, "/beacons", testReport(), mobileUA).Code)
	assert.Equal(t, http.StatusTooManyRequests, postJSON(h, "/beacons", testReport(), mobileUA).Code)
	svc.AssertNumberOfCalls(t, "ProcessReport", 1)
}

func TestHandler_PublishBeaconsBulk(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)

	reports := []domain.BeaconReport{testReport(), testReport()}
	reports[1].Timestamp = "2027-01-01T00:00:00.000Z"

	svc.On("ProcessBulkReports", mock.Anything, reports, "203.0.113.7").
		Return([]string{"id-1"}, []string{"report 1: timestamp cannot be in the future"}, nil)

	w := postJSON(h, "/beacons/bulk", dto.PublishBeaconsBulkRequest{Reports: reports}, mobileUA)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var response dto.PublishBulkBeaconsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 1, response.Accepted)
	assert.Equal(t, 1, response.Rejected)
	assert.Equal(t, []string{"id-1"}, response.ReportIDs)
	svc.AssertExpectations(t)
}

func TestHandler_PublishBeaconsBulk_Empty(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)

	w := postJSON(h, "/beacons/bulk", dto.PublishBeaconsBulkRequest{Reports: []domain.BeaconReport{}}, mobileUA)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "ProcessBulkReports", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_GetMetrics(t *testing.T) {
	svc := new(MockBeaconService)
	h := newTestHandler(svc)

	expected := &dto.GetMetricsResponse{
		From:        1760860800,
		To:          1760947200,
		TotalClicks: 42,
		UniqueIPs:   10,
		UniquePages: 3,
		GroupBy:     "detection_method",
		Groups: []dto.MetricsGroupData{
			{GroupValue: "touchend", TotalClicks: 30},
			{GroupValue: "blur", TotalClicks: 12},
		},
	}
	svc.On("GetMetrics", mock.Anything, &dto.GetMetricsRequest{
		From:    1760860800,
		To:      1760947200,
		GroupBy: "detection_method",
	}).Return(expected, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics?from=1760860800&to=1760947200&group_by=detection_method", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.GetMetricsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, *expected, response)
	svc.AssertExpectations(t)
}

func TestHandler_GetMetrics_Errors(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		err      error
		wantCode int
	}{
		{name: "missing from", query: "to=10", wantCode: http.StatusBadRequest},
		{name: "invalid query", query: "from=10&to=5", err: fmt.Errorf("%w: from > to", service.ErrInvalidQuery), wantCode: http.StatusBadRequest},
		{name: "repository failure", query: "from=1&to=5", err: errors.New("failed to get metrics from repository: down"), wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockBeaconService)
			h := newTestHandler(svc)
			if tt.err != nil {
				svc.On("GetMetrics", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			req := httptest.NewRequest(http.MethodGet, "/metrics?"+tt.query, http.NoBody)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestHandler_PrometheusEndpoint(t *testing.T) {
	h := newTestHandler(new(MockBeaconService))

	req := httptest.NewRequest(http.MethodGet, "/metrics/prometheus", http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}
