package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/workboard-backend/api/responses"
	pkgerrors "github.com/angelmondragon/workboard-backend/pkg/errors"
	"github.com/angelmondragon/workboard-backend/pkg/logger"
)

// RateLimiter is a fixed-window counter. *redis.Client satisfies it.
type RateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// MutationRateLimit caps state-changing requests per caller. Reads pass
// through untouched. A zero limit or nil limiter disables it.
func MutationRateLimit(limiter RateLimiter, limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || limit <= 0 || window <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			principal, ok := PrincipalFromContext(ctx)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			scope := "workboard:mutation:" + principal.UserID.String()
			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(limit), window)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          limit,
						"window_seconds": int(window.Seconds()),
					})
					logg.Warn(logCtx, "workboard.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}
