package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	"alarm-relay/internal/common/logging"
)

// HTTPMiddleware rejects requests over the limit with 429
func HTTPMiddleware(limiter *Limiter, keyFunc func(*http.Request) string, logger logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if !limiter.Allow(key) {
				logger.Warn("Rate limit exceeded", logging.String("client", key), logging.String("path", r.URL.Path))
				w.Header().Set("X-RateLimit-Limit", strconv.FormatFloat(limiter.Config().RequestsPerSecond, 'f', -1, 64))
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", "1")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// IPKey identifies the client by the first X-Forwarded-For hop, X-Real-IP
// or the remote address, without port
func IPKey(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
