package restclient

import (
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"quiz-runner/internal/domain"
)

// TokenSource reads the persisted bearer token. The file is re-read when it
// changes on disk, so a login elsewhere is picked up without a restart.
type TokenSource struct {
	path string

	mu      sync.Mutex
	modTime time.Time
	token   string
	expires time.Time
}

func NewTokenSource(path string) *TokenSource {
	return &TokenSource{path: path}
}

// Token returns the current token, or ErrSessionExpired when the token is a
// JWT whose exp claim is not after now. A missing path yields no token.
func (s *TokenSource) Token(now time.Time) (string, error) {
	if s == nil || s.path == "" {
		return "", nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.ErrSessionExpired
		}
		return "", err
	}
	if !info.ModTime().Equal(s.modTime) {
		raw, err := os.ReadFile(s.path)
		if err != nil {
			return "", err
		}
		s.token = strings.TrimSpace(string(raw))
		s.expires = expiry(s.token)
		s.modTime = info.ModTime()
	}

	if s.token == "" {
		return "", domain.ErrSessionExpired
	}
	if !s.expires.IsZero() && !now.Before(s.expires) {
		return "", domain.ErrSessionExpired
	}
	return s.token, nil
}

// expiry reads exp without verifying the signature; the backend verifies.
// Opaque tokens have no known expiry.
func expiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
