package api

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/michalkw/traffic-status-service/internal/logging"
	"github.com/michalkw/traffic-status-service/internal/ratelimit"
	"go.uber.org/zap"
)

// clientIP extracts the caller's IP, preferring the first entry of
// X-Forwarded-For (the original client behind a proxy) and falling back to
// RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// gateByIP wraps a handler with an IP-keyed rate limit check. Exceeding the
// budget yields an explicit 429, unlike the uniform-success report path.
func (h *Handlers) gateByIP(kind ratelimit.ActionKind, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := ratelimit.IPKey(clientIP(r))
		if !h.limiter.Allow(r.Context(), identifier, kind) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "rate_limit",
				"message": "too many requests, please slow down",
			})
			return
		}
		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// logRequests tags every request with a request id and logs its outcome.
func logRequests(logger *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		logging.WithRequestID(logger, requestID).Info("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
