package middleware

import (
	"math"
	"net/http"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/janisto/greeter/internal/platform/respond"
)

// RateLimit answers 429 once the process-wide token bucket (rps tokens per
// second, burst deep) is empty. rps <= 0, NaN or +Inf disables limiting. A burst below 1
// defaults to one second's worth of tokens.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if !(rps > 0) || math.IsInf(rps, 1) {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = max(1, int(math.Ceil(rps)))
	}
	l := rate.NewLimiter(rate.Limit(rps), burst)
	retryAfter := strconv.Itoa(max(1, int(math.Ceil(1/rps))))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", retryAfter)
				respond.Text(w, http.StatusTooManyRequests, "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
