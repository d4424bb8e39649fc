package api

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/npezzotti/go-eventchat/internal/server"
)

const healthCheckTimeout = 2 * time.Second

func (s *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("json encode")
	}
}

func (s *ChatApp) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		errResp := NewServiceUnavailableError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *ChatApp) notFound(w http.ResponseWriter, r *http.Request) {
	errResp := NewNotFoundError()
	s.writeJson(w, errResp.StatusCode, errResp)
}

func (s *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		errResp := NewUnauthorizedError("", nil)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("error upgrading connection")
		return
	}

	client := server.NewClient(user, conn, s.cs, s.log)
	if err := s.cs.RegisterClient(client); err != nil {
		s.log.Warn().Err(err).Msg("register client")
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()),
			time.Now().Add(time.Second),
		)
		conn.Close()
		return
	}

	go client.Write()
	go client.Read()
}
