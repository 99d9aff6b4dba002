package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gopharma/internal/pkg/logger"
	"gopharma/internal/pkg/metrics"
)

// RequestIDFromContext devolve o id da requisição anexado por WithRequestID.
func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// WithRequestID reaproveita o X-Request-Id recebido ou gera um novo.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDKey, reqID)))
	})
}

// WithLogging registra uma linha por requisição e alimenta as métricas HTTP.
// A rota é o padrão casado pelo ServeMux, o que mantém a cardinalidade baixa.
func WithLogging(log logger.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			elapsed := time.Since(start)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.ObserveRequest(r.Method, route, sr.status, elapsed)
			}
			log.Info("http_request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"route":      route,
				"status":     sr.status,
				"bytes":      sr.bytes,
				"latency_ms": float64(elapsed.Microseconds()) / 1000.0,
				"request_id": RequestIDFromContext(r.Context()),
			})
		})
	}
}
