package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "deedblock/pkg/domain"
	"deedblock/pkg/requestcontext"
)

// TokenValidator validates a bearer token and yields the owner it belongs to.
type TokenValidator interface {
	ValidateToken(tokenString string) (id.OwnerID, error)
}

// JWTValidator validates HS256 bearer tokens whose subject is the owner ID.
type JWTValidator struct {
	signingKey []byte
}

func NewJWTValidator(signingKey string) *JWTValidator {
	return &JWTValidator{signingKey: []byte(signingKey)}
}

func (v *JWTValidator) ValidateToken(tokenString string) (id.OwnerID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.signingKey, nil
	})
	if err != nil {
		return id.OwnerID{}, fmt.Errorf("parse token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return id.OwnerID{}, fmt.Errorf("token subject: %w", err)
	}
	ownerID, err := id.ParseOwnerID(sub)
	if err != nil {
		return id.OwnerID{}, fmt.Errorf("token subject is not an owner id: %w", err)
	}
	return ownerID, nil
}

// RequireAuth rejects requests without a valid bearer token and injects the
// authenticated owner ID into the request context.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				writeAuthError(w, http.StatusUnauthorized, "invalid_token", "missing bearer token")
				return
			}
			ownerID, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeAuthError(w, http.StatusUnauthorized, "invalid_token", "token validation failed")
				return
			}
			ctx := requestcontext.WithOwnerID(r.Context(), ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}
