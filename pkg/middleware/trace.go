package middleware

import (
	"context"
	"net/http"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/google/uuid"
)

// TraceIDHeader is the response header carrying the trace ID.
const TraceIDHeader = "X-Trace-ID"

type traceIDKey struct{}

// TraceIDKey is the key used to store the trace ID in the request context.
var TraceIDKey = traceIDKey{}

// TraceID creates a middleware that assigns a trace ID to each request.
// An incoming X-Trace-ID header is reused; otherwise a new UUID is generated.
// The ID is stored in the request context and echoed on the response.
func TraceID() Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		traceID := c.Header(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		c.WithContext(context.WithValue(c.Context(), TraceIDKey, traceID))

		resp := next(c)
		if resp == nil {
			resp = common.NewResponse(http.StatusOK)
		}
		return resp.WithHeader(TraceIDHeader, traceID)
	}
}

// GetTraceID extracts the trace ID from the request context.
// Returns an empty string if no trace ID is found.
func GetTraceID(r *http.Request) string {
	return GetTraceIDFromContext(r.Context())
}

// GetTraceIDFromContext extracts the trace ID from a context.
// Returns an empty string if no trace ID is found.
func GetTraceIDFromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(TraceIDKey).(string); ok {
		return traceID
	}
	return ""
}
