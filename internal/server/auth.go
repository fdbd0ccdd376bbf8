package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrNoIdentity is returned when a request carries no usable user identity.
var ErrNoIdentity = errors.New("missing user identity")

type userKey struct{}

// identityClaims are the token claims read for identity. Email wins over the subject.
type identityClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator resolves the user of a request, from an HS256 bearer token when a
// secret is configured and from a trusted header otherwise.
type Authenticator struct {
	secret []byte
	header string
}

// NewAuthenticator creates an authenticator. An empty secret selects header identity.
func NewAuthenticator(secret, header string) *Authenticator {
	if header == "" {
		header = "X-User-Email"
	}
	a := &Authenticator{header: header}
	if secret != "" {
		a.secret = []byte(secret)
	}
	return a
}

// UsesJWT reports whether bearer tokens are required.
func (a *Authenticator) UsesJWT() bool { return a.secret != nil }

// Identify returns the user id of r.
func (a *Authenticator) Identify(r *http.Request) (string, error) {
	if !a.UsesJWT() {
		user := strings.TrimSpace(r.Header.Get(a.header))
		if user == "" {
			return "", ErrNoIdentity
		}
		return user, nil
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", ErrNoIdentity
	}
	return a.ParseToken(strings.TrimSpace(raw))
}

// ParseToken validates a token and returns its email claim, or its subject.
func (a *Authenticator) ParseToken(token string) (string, error) {
	claims := &identityClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if user := strings.TrimSpace(claims.Email); user != "" {
		return user, nil
	}
	if user := strings.TrimSpace(claims.Subject); user != "" {
		return user, nil
	}
	return "", ErrNoIdentity
}

// IssueToken signs an HS256 token for email that expires after ttl. A ttl <= 0 never expires.
func IssueToken(secret, email string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is required")
	}
	now := time.Now()
	claims := identityClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  email,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.auth.Identify(r)
		if err != nil {
			s.logger.Debug("unauthenticated request", zap.String("path", r.URL.Path), zap.Error(err))
			s.respondError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(ctx context.Context) string {
	user, _ := ctx.Value(userKey{}).(string)
	return user
}
