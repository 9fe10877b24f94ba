package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
	"github.com/tomasen/realip"
)

// LoggerMiddleware logs every request with its duration and status.
func LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		l := GetLogger(r.Context()).WithFields(logrus.Fields{
			"method":   r.Method,
			"uri":      r.RequestURI,
			"ip":       realip.FromRequest(r),
			"status":   ww.Status(),
			"size":     ww.BytesWritten(),
			"duration": time.Since(start),
		})

		if ww.Status() >= http.StatusInternalServerError {
			l.Warn("request failed")
			return
		}
		l.Debug("request served")
	})
}

// RequestIDMiddleware puts request id into context.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

// RecovererMiddleware turns panics into 500 responses.
func RecovererMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				WriteInternalErrorf(r.Context(), w, "panic: %v", rvr)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// TimeoutMiddleware cancels request context after timeout.
func TimeoutMiddleware(timeout time.Duration) func(next http.Handler) http.Handler {
	return middleware.Timeout(timeout)
}

// BodyLimiterMiddleware limits request body size.
func BodyLimiterMiddleware(size int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, size)
			next.ServeHTTP(w, r)
		})
	}
}
