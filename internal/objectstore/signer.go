package objectstore

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "deedblock/pkg/domain-errors"
)

// urlClaims binds a signed URL to one object path.
type urlClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

// URLSigner mints and verifies time-limited signed URLs over object paths.
// The path is the identity; the URL is a view that expires.
type URLSigner struct {
	signingKey []byte
	baseURL    string
	ttl        time.Duration
}

// NewURLSigner constructs a signer. baseURL is the public file endpoint the
// signed URLs point at, ttl the validity window of each minted URL.
func NewURLSigner(signingKey, baseURL string, ttl time.Duration) *URLSigner {
	return &URLSigner{
		signingKey: []byte(signingKey),
		baseURL:    strings.TrimRight(baseURL, "/"),
		ttl:        ttl,
	}
}

// Sign mints a signed URL for the object at path, valid for the signer's TTL
// starting at now.
func (s *URLSigner) Sign(path string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, urlClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign object url: %w", err)
	}
	return fmt.Sprintf("%s/%s?token=%s", s.baseURL, escapePath(path), url.QueryEscape(signed)), nil
}

// Verify checks the token and returns the object path it grants access to.
func (s *URLSigner) Verify(tokenString string) (string, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &urlClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "signed url has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid signed url")
	}
	claims, ok := parsed.Claims.(*urlClaims)
	if !ok || claims.Path == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid signed url claims")
	}
	return claims.Path, nil
}

// TTL reports the validity window of minted URLs.
func (s *URLSigner) TTL() time.Duration {
	return s.ttl
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
