package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/npezzotti/go-eventchat/internal/auth"
	"github.com/npezzotti/go-eventchat/internal/config"
	"github.com/npezzotti/go-eventchat/internal/database"
	"github.com/npezzotti/go-eventchat/internal/server"
	"github.com/npezzotti/go-eventchat/internal/stats"
	"github.com/npezzotti/go-eventchat/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestConfig() *config.Config {
	return &config.Config{
		ServerAddr:     ":0",
		AllowedOrigins: []string{"http://localhost:3000"},
		SigningKey:     testutil.SigningKey,
	}
}

func newTestChatApp(t *testing.T, logger zerolog.Logger, store database.MessageStore) *ChatApp {
	t.Helper()

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(4)
	su.On("Incr", mock.Anything).Maybe()
	su.On("Decr", mock.Anything).Maybe()

	cs, err := server.NewChatServer(logger, store, server.NewPresence(), su, time.Second)
	if err != nil {
		t.Fatalf("failed to create chat server: %v", err)
	}

	return NewChatApp(http.NewServeMux(), logger, cs, store, auth.NewJWTVerifier(testutil.SigningKey), newTestConfig())
}

func TestNewChatApp(t *testing.T) {
	store := database.NewMemMessageStore()
	app := newTestChatApp(t, testutil.TestLogger(t), store)

	assert.NotNil(t, app.srv, "expected http server to be created")
	assert.Equal(t, ":0", app.srv.Addr, "expected server address from config")
	assert.NotNil(t, app.Handler(), "expected handler to be set")
	assert.Equal(t, store, app.store)
	assert.Equal(t, []string{"http://localhost:3000"}, app.allowedOrigins)
}

func TestHealthz(t *testing.T) {
	tcases := []struct {
		name       string
		pingErr    error
		statusCode int
		body       string
	}{
		{
			name:       "healthy",
			statusCode: http.StatusOK,
			body:       `{"status":"ok"}`,
		},
		{
			name:       "store unavailable",
			pingErr:    assert.AnError,
			statusCode: http.StatusServiceUnavailable,
			body:       `{"status_code":503,"message":"service unavailable"}`,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			store := &database.MockMessageStore{}
			defer store.AssertExpectations(t)
			store.On("Ping", mock.Anything).Return(tc.pingErr).Once()

			app := newTestChatApp(t, testutil.TestLogger(t), store)

			r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			w := httptest.NewRecorder()
			app.Handler().ServeHTTP(w, r)

			assert.Equal(t, tc.statusCode, w.Code, "expected status code %d", tc.statusCode)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tc.body, w.Body.String())
		})
	}
}

func TestNotFound(t *testing.T) {
	app := newTestChatApp(t, testutil.TestLogger(t), database.NewMemMessageStore())

	r := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code, "expected status code 404")
	assert.JSONEq(t, `{"status_code":404,"message":"not found"}`, w.Body.String())
}
