package http

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"spendsense/metrics"
)

func RateLimitMiddleware(
	limiter *RateLimiter,
	next http.Handler,
) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		client := clientIP(r)

		if !limiter.Allow(client) {
			metrics.RateLimitedRequests.WithLabelValues(r.URL.Path).Inc()
			seconds := int(math.Ceil(limiter.RetryAfter(client).Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
