package server

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/campusops/roomclerk/internal/platform/cache"
)

// rateLimiter caps requests per client over a fixed window, backed by a
// windowed counter. The client key is the remote IP, which the RealIP
// middleware has already resolved from proxy headers.
type rateLimiter struct {
	counter cache.Counter
	limit   int64
	window  time.Duration
	logger  *slog.Logger
}

func (l *rateLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count, resetAt, err := l.counter.Increment(r.Context(), "ratelimit:"+clientKey(r), 1, l.window)
		if err != nil {
			// Fail open: a broken counter must not take the API down.
			l.logger.Warn("rate limit check failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		if count > l.limit {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]string{
				"reason":  "rate_limited",
				"message": "too many requests",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
