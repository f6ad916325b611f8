package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/saralseva/internal/common"
	"github.com/dmitrijs2005/saralseva/internal/server/auth"
	"github.com/dmitrijs2005/saralseva/internal/server/ratelimit"
	"github.com/google/uuid"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 10 << 20

type ctxKey string

const (
	identityKey  ctxKey = "identity"
	requestIDKey ctxKey = "requestID"
)

// IdentityFromContext returns the identity placed by requireAuth.
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey).(auth.Identity)
	return id, ok
}

// RequestIDFromContext returns the id assigned by the logging middleware.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// statusRecorder remembers the status written by the wrapped handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += n
	return n, err
}

func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func recordStatus(w http.ResponseWriter) *statusRecorder {
	if rec, ok := w.(*statusRecorder); ok {
		return rec
	}
	return &statusRecorder{ResponseWriter: w}
}

// withRequestLog assigns a request id and writes one access log line per
// request. An incoming X-Request-ID is kept when it is a valid UUID.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(common.RequestIDHeaderName)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(common.RequestIDHeaderName, id)

		rec := recordStatus(w)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.logger.Info(ctx, "http request",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status(),
			"bytes", rec.bytes,
			"duration", time.Since(start),
			"remote", clientIP(r),
		)
	})
}

// withRecover turns a panic into a logged 500.
func (s *Server) withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if v := recover(); v != nil {
				if v == http.ErrAbortHandler {
					panic(v)
				}
				s.logger.Error(r.Context(), "panic while serving request",
					"request_id", RequestIDFromContext(r.Context()),
					"panic", fmt.Sprint(v),
					"stack", string(debug.Stack()),
				)
				s.writeFailure(w, r, http.StatusInternalServerError, msgInternal, nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// withCORS allows any origin and answers preflight requests directly.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		next.ServeHTTP(w, r)
	})
}

func withBodyLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies l per client IP. Limiters that skip successful
// requests are charged after the handler ran, only for 4xx/5xx answers.
func (s *Server) withRateLimit(l *ratelimit.Limiter, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientIP(r)

		d, err := l.Allow(r.Context(), client)
		h := w.Header()
		h.Set("RateLimit-Limit", strconv.Itoa(d.Limit))
		h.Set("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		h.Set("RateLimit-Reset", strconv.FormatInt(resetSeconds(d.Reset), 10))
		if err != nil {
			h.Set("Retry-After", strconv.FormatInt(resetSeconds(d.Reset), 10))
			s.logger.Warn(r.Context(), "rate limit exceeded", "limiter", l.Config().Name, "client", client)
			s.writeFailure(w, r, http.StatusTooManyRequests, l.Config().Message, nil)
			return
		}

		rec := recordStatus(w)
		next.ServeHTTP(rec, r)
		if rec.Status() >= http.StatusBadRequest {
			l.Failed(r.Context(), client)
		}
	})
}

// requireAuth verifies the bearer token and stores its identity in the
// request context.
func (s *Server) requireAuth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
		if header == "" || token == "" || token == header {
			s.writeFailure(w, r, http.StatusUnauthorized, msgNoToken, nil)
			return
		}

		id, err := s.users.ValidateToken(token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, id)
		next(w, r.WithContext(ctx))
	})
}

// clientIP is the peer address of the connection. Forwarding headers are
// not trusted.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
