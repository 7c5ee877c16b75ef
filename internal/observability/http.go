package observability

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// traceHeader carries the request trace ID end to end; incoming values win
// so callers can correlate retries across services.
const traceHeader = "X-Trace-ID"

func TraceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(traceHeader)
		if id == "" {
			id = newTraceID()
		}
		w.Header().Set(traceHeader, id)
		next.ServeHTTP(w, r.WithContext(ContextWithTraceID(r.Context(), id)))
	})
}

func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			tap := newResponseTap(w)
			next.ServeHTTP(tap, r)
			logger.InfoContext(r.Context(), "http request",
				slog.String("trace_id", TraceIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", tap.status),
				slog.Int("bytes", tap.bytes),
				slog.Duration("elapsed", time.Since(started)),
				slog.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpInFlightRequests.Inc()
		defer httpInFlightRequests.Dec()

		started := time.Now()
		tap := newResponseTap(w)
		next.ServeHTTP(tap, r)

		code := strconv.Itoa(tap.status)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, code).Inc()
		httpRequestDurationSeconds.WithLabelValues(r.Method, r.URL.Path, code).Observe(time.Since(started).Seconds())
	})
}

// responseTap records the status code and body size written through it.
// Only the first explicit WriteHeader sets the recorded status.
type responseTap struct {
	http.ResponseWriter
	status int
	bytes  int
	wrote  bool
}

func newResponseTap(w http.ResponseWriter) *responseTap {
	return &responseTap{ResponseWriter: w, status: http.StatusOK}
}

func (t *responseTap) WriteHeader(status int) {
	if !t.wrote {
		t.status = status
		t.wrote = true
	}
	t.ResponseWriter.WriteHeader(status)
}

func (t *responseTap) Write(p []byte) (int, error) {
	t.wrote = true
	n, err := t.ResponseWriter.Write(p)
	t.bytes += n
	return n, err
}

func newTraceID() string {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 36)
	}
	return hex.EncodeToString(buf[:])
}
