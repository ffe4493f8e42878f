package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"feedback-backend/internal/metrics"
	"feedback-backend/internal/respond"
)

// RequestLogger writes one structured entry per request once the handler
// returns, carrying the caller and, for failures, the error kind.
func RequestLogger(log logrus.FieldLogger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, outcome := respond.WithOutcome(r.Context())
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				// Unrouted paths share one label so arbitrary URLs cannot grow the series set.
				route := "unmatched"
				if rctx := chi.RouteContext(ctx); rctx != nil && rctx.RoutePattern() != "" {
					route = rctx.RoutePattern()
				}
				m.ObserveRequest(r.Method, route, status)

				actor, kind, message, err, extra := outcome.Snapshot()
				fields := logrus.Fields{
					"action":      "http_request",
					"actor":       actor,
					"method":      r.Method,
					"path":        r.URL.Path,
					"route":       route,
					"status_code": status,
					"duration_ms": time.Since(start).Milliseconds(),
					"request_id":  chimw.GetReqID(ctx),
				}
				for k, v := range extra {
					fields[k] = v
				}
				entry := log.WithFields(fields)
				switch {
				case kind != "":
					entry = entry.WithFields(logrus.Fields{
						"outcome":    "error",
						"error_kind": kind,
						"message":    message,
					})
					if status >= http.StatusInternalServerError {
						entry.WithError(err).Error("request failed")
					} else {
						entry.Warn("request rejected")
					}
				case status >= http.StatusInternalServerError:
					entry.WithField("outcome", "fault").Error("request failed")
				default:
					entry.WithField("outcome", "success").Info("request handled")
				}
			}()

			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}
