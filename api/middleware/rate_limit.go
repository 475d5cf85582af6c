package middleware

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ashimneupane/bazarly-backend/api/responses"
	pkgerrors "github.com/ashimneupane/bazarly-backend/pkg/errors"
	"github.com/ashimneupane/bazarly-backend/pkg/logger"
)

// limiter is the fixed-window surface, satisfied by the redis client.
type limiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// RateLimit applies a per-IP fixed-window limit to the wrapped routes.
// When the limiter is unreachable the request is allowed through; the API
// staying up matters more than the limit holding during a Redis outage.
func RateLimit(store limiter, scope string, limit int64, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			allowed, _, err := store.FixedWindowAllow(r.Context(), scope+":"+ClientIP(r), limit, window)
			if err != nil {
				if logg != nil {
					logg.Warn(r.Context(), "rate limit check unavailable")
				}
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP extracts the caller address, honoring the first hop of
// X-Forwarded-For when running behind a proxy.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
