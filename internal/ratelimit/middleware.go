package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"deedblock/internal/transport/http/shared"
	"deedblock/pkg/requestcontext"
)

// Limits for verification challenge requests, per owner per kind.
const (
	DefaultRequestLimit  = 5
	DefaultRequestWindow = 10 * time.Minute
)

// Limiter applies a Store with fixed limits.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
	logger *slog.Logger
}

func NewLimiter(store Store, limit int, window time.Duration, logger *slog.Logger) *Limiter {
	if limit <= 0 {
		limit = DefaultRequestLimit
	}
	if window <= 0 {
		window = DefaultRequestWindow
	}
	return &Limiter{store: store, limit: limit, window: window, logger: logger}
}

// VerifyRequests limits challenge issuance per owner and verification kind.
// The store failing open keeps verification usable during a Redis outage.
func (l *Limiter) VerifyRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ownerID := requestcontext.OwnerID(ctx)
		key := fmt.Sprintf("verify:%s:%s", ownerID, chi.URLParam(r, "kind"))

		result, err := l.store.Allow(ctx, key, l.limit, l.window)
		if err != nil {
			l.logger.WarnContext(ctx, "rate limit check failed, allowing request",
				"key", key,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := max(int(time.Until(result.ResetAt).Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			shared.WriteJSON(w, http.StatusTooManyRequests, shared.ErrorResponse{
				Error:   "rate_limited",
				Message: "too many verification requests, try again later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
