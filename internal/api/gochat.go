package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-eventchat/internal/auth"
	"github.com/npezzotti/go-eventchat/internal/config"
	"github.com/npezzotti/go-eventchat/internal/database"
	"github.com/npezzotti/go-eventchat/internal/server"
	"github.com/rs/zerolog"
)

type ChatApp struct {
	log            zerolog.Logger
	store          database.MessageStore
	srv            *http.Server
	cs             *server.ChatServer
	verifier       auth.Verifier
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger zerolog.Logger, cs *server.ChatServer, store database.MessageStore,
	verifier auth.Verifier, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		store:          store,
		cs:             cs,
		verifier:       verifier,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /healthz", s.healthz)
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("/", s.notFound)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

func (s *ChatApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *ChatApp) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("starting server")
	return s.srv.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
