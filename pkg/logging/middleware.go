package logging

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags every API request with an ID, recovers handler
// panics as a JSON 500 and logs one line per request. Client errors log at
// warn level since unknown components are routine; server errors log at error.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		rec := &statusRecorder{ResponseWriter: w}
		start := time.Now()
		TraceContext(ctx, "request received", "method", r.Method, "path", r.URL.Path, "remoteAddr", r.RemoteAddr)

		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				ErrorContext(ctx, "handler panicked", "path", r.URL.Path, "error", fmt.Sprint(p))
				if !rec.wroteHeader {
					rec.Header().Set("Content-Type", "application/json")
					rec.WriteHeader(http.StatusInternalServerError)
					_, _ = rec.Write([]byte(`{"error":"internal server error"}` + "\n"))
				}
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status(),
				"bytes", rec.written,
				"durationMs", time.Since(start).Milliseconds(),
			}
			if r.URL.RawQuery != "" {
				attrs = append(attrs, "query", r.URL.RawQuery)
			}
			switch status := rec.status(); {
			case status >= http.StatusInternalServerError:
				ErrorContext(ctx, "request served", attrs...)
			case status >= http.StatusBadRequest:
				WarnContext(ctx, "request served", attrs...)
			default:
				DebugContext(ctx, "request served", attrs...)
			}
		}()

		next.ServeHTTP(rec, r)
	})
}

// statusRecorder remembers the status code and body size of a response
type statusRecorder struct {
	http.ResponseWriter
	code        int
	written     int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.wroteHeader {
		return
	}
	s.code = code
	s.wroteHeader = true
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if !s.wroteHeader {
		s.WriteHeader(http.StatusOK)
	}
	n, err := s.ResponseWriter.Write(p)
	s.written += n
	return n, err
}

func (s *statusRecorder) status() int {
	if s.code == 0 {
		return http.StatusOK
	}
	return s.code
}
