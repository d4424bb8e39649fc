package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/npezzotti/go-eventchat/internal/auth"
)

func (s *ChatApp) errorHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				var panicError error
				switch e := err.(type) {
				case error:
					panicError = e
				default:
					panicError = fmt.Errorf("%v", e)
				}
				s.log.Error().Err(panicError).Msg("panic")
				errResp := NewInternalServerError(panicError)
				w.Header().Set("Connection", "close")
				s.writeJson(w, errResp.StatusCode, errResp)
				return
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// authMiddleware rejects requests without a valid bearer credential before
// the handler runs, so an unauthenticated socket is never upgraded.
func (s *ChatApp) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.verifier.Verify(auth.BearerToken(r))
		if err != nil {
			var authErr *auth.AuthenticationError
			reason := ""
			if errors.As(err, &authErr) {
				reason = authErr.Reason
			}

			s.log.Info().Err(err).Str("remote_addr", r.RemoteAddr).Msg("rejected handshake")
			errResp := NewUnauthorizedError(reason, err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		ctx := WithUser(r.Context(), user)
		w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")

		next(w, r.WithContext(ctx))
	}
}
