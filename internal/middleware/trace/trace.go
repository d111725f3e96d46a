// Package trace assigns a request id to every HTTP request.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/google/uuid"

	applog "masraf/internal/log"
)

type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"

	// HeaderRequestID is read from the request and echoed on the response.
	HeaderRequestID = "X-Request-ID"

	maxRequestIDLen = 128
)

// Middleware puts the request id in the context and in the context logger.
type Middleware struct {
	extractIP func(*http.Request) string
	total     atomic.Int64
}

func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{extractIP: extractIP}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.total.Add(1)

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" || len(requestID) > maxRequestIDLen {
			requestID = GenerateRequestID()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		fields := applog.NewFields().WithRequestID(requestID)
		if m.extractIP != nil {
			fields.WithClientIP(m.extractIP(r))
		}
		logger := applog.FromContext(ctx).With(fields.ToSlice()...)
		next.ServeHTTP(w, r.WithContext(applog.WithLogger(ctx, logger)))
	})
}

// TotalRequests returns how many requests passed through the middleware.
func (m *Middleware) TotalRequests() int64 {
	return m.total.Load()
}

func GenerateRequestID() string {
	return "req_" + uuid.NewString()
}

// GetRequestID extracts the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
