package logger

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs each request once it completes and feeds the HTTP
// counters. Requests slower than slow are counted as slow; zero disables the
// check. observe, if non-nil, runs after the handler with the final status.
func RequestLogger(slow time.Duration, observe func(r *http.Request, status int)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", elapsed.Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			}

			switch {
			case status >= 500:
				ErrorHttp5xx()
				if shouldSample() {
					Logger.Error("request failed", attrs...)
				}
			case status >= 400:
				WarnHttp4xx(status)
				if shouldSample() {
					Logger.Warn("request rejected", attrs...)
				}
			default:
				Logger.Info("request", attrs...)
			}

			if slow > 0 && elapsed > slow {
				WarnSlowRequest()
				if shouldSample() {
					Logger.Warn("slow request", attrs...)
				}
			}

			if observe != nil {
				observe(r, status)
			}
		})
	}
}
