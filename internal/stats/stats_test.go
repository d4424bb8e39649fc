package stats

import (
	"expvar"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(su *StatsUpdater, name string) (int64, bool) {
	metric, ok := su.vars.Get(name).(*expvar.Int)
	if !ok {
		return 0, false
	}
	return metric.Value(), true
}

func TestNewStatsUpdater(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux, zerolog.Nop())
	assert.NotNil(t, su, "expected StatsUpdater to be non-nil")
	assert.NotNil(t, su.updates, "expected update queue to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestNewStatsUpdater_Independent(t *testing.T) {
	a := NewStatsUpdater(http.NewServeMux(), zerolog.Nop())
	b := NewStatsUpdater(http.NewServeMux(), zerolog.Nop())

	assert.NotPanics(t, func() {
		a.RegisterMetric(NumActiveClients)
		b.RegisterMetric(NumActiveClients)
	}, "expected updaters not to share a global registry")
}

func TestStatsUpdater_IncrDecr(t *testing.T) {
	mux := http.NewServeMux()
	su := NewStatsUpdater(mux, zerolog.Nop())
	su.RegisterMetric(NumActiveClients)
	su.RegisterMetric(NumMessagesSent)
	su.Run()
	defer su.Stop()

	su.Incr(NumActiveClients)
	su.Incr(NumActiveClients)
	su.Decr(NumActiveClients)
	su.Incr(NumMessagesSent)
	su.Incr("unregistered")

	assert.Eventually(t, func() bool {
		clients, _ := counterValue(su, NumActiveClients)
		sent, _ := counterValue(su, NumMessagesSent)
		return clients == 1 && sent == 1
	}, time.Second, 10*time.Millisecond, "expected counters to settle")

	_, ok := counterValue(su, "unregistered")
	assert.False(t, ok, "expected unregistered metric to be ignored")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/vars", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body[NumActiveClients])
	assert.Equal(t, float64(1), body[NumMessagesSent])
	assert.Contains(t, body, "Uptime")
}

func TestStatsUpdater_Stop(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux(), zerolog.Nop())
	su.RegisterMetric(NumActiveRooms)
	su.Run()

	su.Stop()
	su.Stop()

	assert.NotPanics(t, func() {
		su.Incr(NumActiveRooms)
		su.Decr(NumActiveRooms)
	}, "expected updates after stop to be dropped")
}

func TestStatsUpdater_QueueFull(t *testing.T) {
	su := NewStatsUpdater(http.NewServeMux(), zerolog.Nop())
	su.RegisterMetric(NumMessagesSent)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range cap(su.updates) + 10 {
			su.Incr(NumMessagesSent)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("expected Incr not to block when the queue is full")
	}
	assert.Len(t, su.updates, cap(su.updates))
}
