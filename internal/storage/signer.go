package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrUploadURLExpired   = errors.New("upload url expired")
	ErrInvalidUploadToken = errors.New("invalid upload token")
)

// UploadClaims bind an upload token to one attempt's artifact key.
type UploadClaims struct {
	AttemptID string `json:"aid"`
	Key       string `json:"key"`
	jwt.RegisteredClaims
}

// URLSigner issues and verifies the short-lived upload URLs handed to clients.
type URLSigner struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewURLSigner(secret, baseURL string, ttl time.Duration) *URLSigner {
	return &URLSigner{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Sign returns the upload URL for key and the time it stops being accepted.
func (s *URLSigner) Sign(attemptID, key string) (string, time.Time, error) {
	issued := s.now()
	expires := issued.Add(s.ttl).Truncate(time.Second)
	claims := UploadClaims{
		AttemptID: attemptID,
		Key:       key,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   attemptID,
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign upload token: %w", err)
	}
	return s.baseURL + "/uploads/" + url.PathEscape(token), expires, nil
}

// Verify parses a token taken from an upload URL. Expiry is reported as
// ErrUploadURLExpired so callers can re-issue instead of retrying.
func (s *URLSigner) Verify(token string) (*UploadClaims, error) {
	claims := &UploadClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrUploadURLExpired
	}
	if err != nil || !parsed.Valid || claims.AttemptID == "" || claims.Key == "" {
		return nil, ErrInvalidUploadToken
	}
	return claims, nil
}
