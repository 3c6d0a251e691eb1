package middleware

import (
	"net/http"
	"time"

	"github.com/angelmondragon/adspace-backend/pkg/metrics"
)

// Metrics observes request latency keyed by the matched chi pattern so ids in
// paths do not explode label cardinality.
func Metrics(recorder *metrics.HTTP) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(rec, r)

			recorder.Observe(r.Method, routePattern(r), rec.Status(), time.Since(start))
		})
	}
}
