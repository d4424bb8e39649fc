package testutil

import (
	"testing"
	"time"

	"github.com/npezzotti/go-eventchat/internal/auth"
	"github.com/npezzotti/go-eventchat/internal/types"
	"github.com/rs/zerolog"
)

var SigningKey = []byte("test-signing-key")

func TestLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(zerolog.NewTestWriter(t)).With().Timestamp().Logger()
}

// TestToken signs a session token for user with SigningKey.
func TestToken(t *testing.T, user types.User) string {
	t.Helper()

	token, err := auth.NewJWTVerifier(SigningKey).CreateToken(user, time.Hour)
	if err != nil {
		t.Fatalf("failed to create test token: %v", err)
	}
	return token
}
