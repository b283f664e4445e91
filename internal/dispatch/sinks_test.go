package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/adclick-detector/internal/config"
	"github.com/BarkinBalci/adclick-detector/internal/domain"
)

var testEnv = domain.Environment{
	PageURL:        "https://example.com/novels/my-novel/chapter-7.html",
	UserAgent:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) Mobile/15E148",
	Platform:       "iPhone",
	ScreenWidth:    390,
	ScreenHeight:   844,
	MaxTouchPoints: 5,
}

type staticIP string

func (s staticIP) LookupIP(context.Context) string { return string(s) }

func TestHTTPIPLookup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7"}`))
	}))
	defer server.Close()

	lookup := NewHTTPIPLookup(server.URL, server.Client(), zap.NewNop())

	assert.Equal(t, "203.0.113.7", lookup.LookupIP(context.Background()))
}

func TestHTTPIPLookup_FailuresYieldUnknown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	garbage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer garbage.Close()

	ctx := context.Background()
	assert.Equal(t, UnknownIP, NewHTTPIPLookup(server.URL, server.Client(), zap.NewNop()).LookupIP(ctx))
	assert.Equal(t, UnknownIP, NewHTTPIPLookup(garbage.URL, garbage.Client(), zap.NewNop()).LookupIP(ctx))
	assert.Equal(t, UnknownIP, NewHTTPIPLookup("", http.DefaultClient, zap.NewNop()).LookupIP(ctx))
}

func TestBeaconSink_PostsReport(t *testing.T) {
	var received domain.BeaconReport
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewBeaconSink(server.URL, server.Client(), staticIP("198.51.100.1"), testEnv, zap.NewNop())

	require.NoError(t, sink.Send(context.Background(), testEvent(9)))
	assert.Equal(t, domain.EventTypeAdClick, received.EventType)
	assert.Equal(t, testEnv.PageURL, received.Page)
	assert.Equal(t, "iPhone | iPhone | 390x844", received.DeviceInfo)
	assert.Equal(t, "198.51.100.1", received.UserIP)
	assert.Equal(t, int64(9), received.TotalClickCount)
	assert.Equal(t, "touchend", received.DetectionMethod)
	assert.Equal(t, "normal_ad", received.ClickArea)
	assert.Equal(t, "div-gpt-ad-1", received.AdElementID)
	assert.Equal(t, "2026-10-19T08:00:00.000Z", received.Timestamp)
}

func TestBeaconSink_ErrorStatusIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewBeaconSink(server.URL, server.Client(), staticIP(UnknownIP), testEnv, zap.NewNop())

	err := sink.Send(context.Background(), testEvent(1))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestBeaconSink_Available(t *testing.T) {
	assert.False(t, NewBeaconSink("", http.DefaultClient, staticIP(""), testEnv, zap.NewNop()).Available())
	assert.True(t, NewBeaconSink("http://collector", http.DefaultClient, staticIP(""), testEnv, zap.NewNop()).Available())
}

func TestPixelSink_SendsCustomEvent(t *testing.T) {
	var received pixelRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v18.0/12345/events", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("access_token"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		_, _ = w.Write([]byte(`{"events_received":1}`))
	}))
	defer server.Close()

	cfg := config.Pixel{
		ID:            "12345",
		AccessToken:   "secret",
		Endpoint:      server.URL,
		APIVersion:    "v18.0",
		EventName:     "user_c",
		TimeZone:      "Asia/Shanghai",
		TestEventCode: "TEST1",
	}
	sink := NewPixelSink(cfg, server.Client(), testEnv, zap.NewNop())
	require.True(t, sink.Available())

	require.NoError(t, sink.Send(context.Background(), testEvent(4)))
	require.Len(t, received.Data, 1)
	assert.Equal(t, "TEST1", received.TestEventCode)

	event := received.Data[0]
	assert.Equal(t, "user_c", event.EventName)
	assert.Equal(t, "website", event.ActionSource)
	assert.Equal(t, testEnv.UserAgent, event.UserData["client_user_agent"])

	data := event.CustomData
	assert.Equal(t, int64(4), data.ClickCount)
	assert.Equal(t, "touchend", data.DetectionMethod)
	assert.Equal(t, "normal_ad", data.ClickArea)
	assert.Equal(t, int64(200), data.TouchDuration)
	assert.Equal(t, "my-novel", data.NovelName)
	assert.Equal(t, "chapter-7", data.ChapterInfo)
	assert.Equal(t, "iPhone", data.DeviceType)
	assert.Equal(t, 390, data.ScreenWidth)
	assert.Equal(t, 844, data.ScreenHeight)
	assert.Equal(t, "2026-10-19T08:00:00.000Z", data.Timestamp)
	assert.Equal(t, "2026/10/19 16:00:00", data.LocalTime)
}

func TestPixelSink_Unavailable(t *testing.T) {
	sink := NewPixelSink(config.Pixel{ID: "12345"}, http.DefaultClient, testEnv, zap.NewNop())
	assert.False(t, sink.Available())

	sink = NewPixelSink(config.Pixel{AccessToken: "secret"}, http.DefaultClient, testEnv, zap.NewNop())
	assert.False(t, sink.Available())
}

func TestPixelSink_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Pixel{ID: "1", AccessToken: "t", Endpoint: server.URL, APIVersion: "v18.0", EventName: "user_c"}
	sink := NewPixelSink(cfg, server.Client(), testEnv, zap.NewNop())

	for i := 0; i < breakerFailureThreshold+3; i++ {
		assert.Error(t, sink.Send(context.Background(), testEvent(int64(i))))
	}

	assert.Equal(t, int32(breakerFailureThreshold), calls.Load())
}
