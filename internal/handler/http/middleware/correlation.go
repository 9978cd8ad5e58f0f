package middleware

import (
	"net/http"
	"strings"

	"github.com/cmlabs-hris/hris-attendance-go/internal/pkg/telemetry"
)

const maxCorrelationIDLength = 128

// Correlation takes the caller's X-Correlation-ID, or the active trace id, or
// a fresh id, stores it in the request context and echoes it on the response.
func Correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := strings.TrimSpace(r.Header.Get(telemetry.CorrelationHeader)); id != "" && len(id) <= maxCorrelationIDLength {
			ctx = telemetry.WithCorrelationID(ctx, id)
		}
		ctx, id := telemetry.EnsureCorrelationID(ctx)

		w.Header().Set(telemetry.CorrelationHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
