package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/google/uuid"
)

// TestTraceID tests that TraceID adds a trace ID to the request context and response
func TestTraceID(t *testing.T) {
	var seen string
	resp := run(TraceID(), httptest.NewRequest("GET", "/test", nil), func(c *common.Context) *common.Response {
		seen = GetTraceID(c.Request)
		return common.Text(http.StatusOK, seen)
	})

	if seen == "" {
		t.Fatal("Expected trace ID to be set, but it was empty")
	}
	if _, err := uuid.Parse(seen); err != nil {
		t.Errorf("Expected a UUID trace ID, got %q: %v", seen, err)
	}
	if resp.Header.Get(TraceIDHeader) != seen {
		t.Errorf("Expected %s header %q, got %q", TraceIDHeader, seen, resp.Header.Get(TraceIDHeader))
	}
}

func TestTraceIDReusesIncomingHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(TraceIDHeader, "upstream-id")

	var seen string
	resp := run(TraceID(), req, func(c *common.Context) *common.Response {
		seen = GetTraceID(c.Request)
		return nil
	})

	if seen != "upstream-id" {
		t.Errorf("Expected trace ID %q, got %q", "upstream-id", seen)
	}
	if resp.StatusCode != http.StatusOK || resp.Header.Get(TraceIDHeader) != "upstream-id" {
		t.Errorf("Expected 200 with echoed header, got %d %q", resp.StatusCode, resp.Header.Get(TraceIDHeader))
	}
}

func TestTraceIDUnique(t *testing.T) {
	ids := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		resp := run(TraceID(), httptest.NewRequest("GET", "/", nil), okHandler)
		ids[resp.Header.Get(TraceIDHeader)] = struct{}{}
	}
	if len(ids) != 100 {
		t.Errorf("Expected 100 unique trace IDs, got %d", len(ids))
	}
}

// TestGetTraceID tests that GetTraceID returns the trace ID from the request context
func TestGetTraceID(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if traceID := GetTraceID(req); traceID != "" {
		t.Errorf("Expected trace ID to be empty, got %q", traceID)
	}

	req = req.WithContext(context.WithValue(req.Context(), TraceIDKey, "test-trace-id"))
	if traceID := GetTraceID(req); traceID != "test-trace-id" {
		t.Errorf("Expected trace ID to be %q, got %q", "test-trace-id", traceID)
	}

	if traceID := GetTraceIDFromContext(context.Background()); traceID != "" {
		t.Errorf("Expected trace ID to be empty, got %q", traceID)
	}
}
