package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/davidleathers/benefit-auction-backend/internal/metrics"
)

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithObservability wraps the handler with request logging and metrics.
func WithObservability(next http.Handler, logger *slog.Logger, registry *metrics.Registry) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		if registry != nil {
			registry.RecordAPIRequest(r.Context(), r.Method, r.URL.Path, rec.status, elapsed)
		}
		logger.InfoContext(r.Context(), "request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", elapsed),
		)
	})
}
