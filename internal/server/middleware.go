package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// TooManySearches is the body of a 429 from the search gate.
const TooManySearches = "Too many searches, please wait."

// requestLogger logs one line per request with the chi request id.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			zap.L().Info("server: request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// gate admits at most max_searches concurrent requests and rejects the
// rest with 429. The slot is released however the handler exits.
func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.sem.TryAcquire(1) {
			s.metrics.ObserveGateRejection()
			zap.L().Warn("server: search limit reached", zap.String("path", r.URL.Path))
			http.Error(w, TooManySearches, http.StatusTooManyRequests)
			return
		}
		s.metrics.AddInFlight(1)
		defer func() {
			s.metrics.AddInFlight(-1)
			s.sem.Release(1)
		}()

		next.ServeHTTP(w, r)
	})
}
