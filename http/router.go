package http

import (
	"net/http"
	"time"

	"spendsense/logger"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the evaluation routes. POST routes share one rate limiter.
func NewRouter(h *EvaluationHandler, limiter *RateLimiter, log logger.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/evaluate", RateLimitMiddleware(limiter, http.HandlerFunc(h.Evaluate)))
	mux.Handle("/follow-up", RateLimitMiddleware(limiter, http.HandlerFunc(h.FollowUp)))
	mux.Handle("/session/reset", RateLimitMiddleware(limiter, http.HandlerFunc(h.ResetSession)))
	mux.HandleFunc("/health", h.Health)
	mux.Handle("/metrics", promhttp.Handler())

	return LoggingMiddleware(log, mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func LoggingMiddleware(log logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Debug("request handled", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}
