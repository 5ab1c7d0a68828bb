package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"spendsense/internal/log"
)

const requestIDHeader = "X-Request-ID"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// requestID honours a well-formed incoming X-Request-ID and mints a new
// uuid otherwise.
func requestID(r *http.Request) string {
	if v := r.Header.Get(requestIDHeader); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			return id.String()
		}
	}
	return uuid.NewString()
}

// isMutation reports the methods subject to rate limiting.
func isMutation(method string) bool {
	return method == http.MethodPost || method == http.MethodDelete
}

// instrument adds the request id, a request-scoped logger, security
// headers and request logging, and rate limits mutations per client.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		id := requestID(r)

		reqLogger := s.logger.With(log.FieldRequestID, id)
		ctx := log.NewContext(r.Context(), reqLogger)
		r = r.WithContext(ctx)

		w.Header().Set(requestIDHeader, id)
		applySecurityHeaders(w, r)

		if detectSuspiciousRequest(r, s.metrics) {
			reqLogger.WarnContext(ctx, "Suspicious request",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path,
				"user_agent", r.Header.Get("User-Agent"))
		}

		if isMutation(r.Method) && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(s.rateLimiter.window.Seconds())))
			writeError(ctx, w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		reqLogger.InfoContext(ctx, "Request completed",
			log.NewFields().
				WithHTTPResponse(r.Method, r.URL.Path, rw.statusCode, time.Since(start).Milliseconds()).
				ToSlice()...)
	})
}
