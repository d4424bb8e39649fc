package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/npezzotti/go-eventchat/internal/types"
)

const (
	userIdClaim   = "user-id"
	usernameClaim = "username"
	roleClaim     = "role"
	expClaim      = "exp"

	tokenCookieKey = "token"
	tokenQueryKey  = "token"
)

// Verifier resolves a bearer credential to the identity it was issued for.
type Verifier interface {
	Verify(credential string) (types.User, error)
}

type JWTVerifier struct {
	signingKey []byte
}

func NewJWTVerifier(signingKey []byte) *JWTVerifier {
	return &JWTVerifier{signingKey: signingKey}
}

func (v *JWTVerifier) Verify(credential string) (types.User, error) {
	if credential == "" {
		return types.User{}, ErrMissingCredential
	}

	token, err := jwt.Parse(credential, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return types.User{}, invalidCredential(fmt.Errorf("parse token: %w", err))
	}

	if !token.Valid {
		return types.User{}, invalidCredential(fmt.Errorf("invalid token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return types.User{}, invalidCredential(fmt.Errorf("invalid token claims"))
	}

	userId, ok := claims[userIdClaim].(string)
	if !ok || userId == "" {
		return types.User{}, invalidCredential(fmt.Errorf("invalid user id claim"))
	}

	user := types.User{Id: userId}
	user.Username, _ = claims[usernameClaim].(string)
	user.Role, _ = claims[roleClaim].(string)

	return user, nil
}

// CreateToken issues a session token for user that expires after exp.
func (v *JWTVerifier) CreateToken(user types.User, exp time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		userIdClaim:   user.Id,
		usernameClaim: user.Username,
		roleClaim:     user.Role,
		expClaim:      time.Now().Add(exp).Unix(),
	})

	return token.SignedString(v.signingKey)
}

// BearerToken extracts the credential from a handshake request. The
// Authorization header wins over the token query parameter, which wins over
// the token cookie. It returns "" if none is present.
func BearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}

	if token := r.URL.Query().Get(tokenQueryKey); token != "" {
		return token
	}

	if cookie, err := r.Cookie(tokenCookieKey); err == nil {
		return cookie.Value
	}

	return ""
}
