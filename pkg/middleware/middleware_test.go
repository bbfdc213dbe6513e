package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// run passes req through mw to h and returns the response.
func run(mw Middleware, req *http.Request, h common.HandlerFunc) *common.Response {
	return mw(common.NewContext(req, req.URL.Path, nil), h)
}

func okHandler(c *common.Context) *common.Response {
	return common.Text(http.StatusOK, "OK")
}

func statusHandler(status int) common.HandlerFunc {
	return func(c *common.Context) *common.Response {
		return common.Status(status)
	}
}

func TestChain(t *testing.T) {
	var order []string
	record := func(name string) Middleware {
		return func(c *common.Context, next common.HandlerFunc) *common.Response {
			order = append(order, name+" in")
			resp := next(c)
			order = append(order, name+" out")
			return resp
		}
	}

	mw := Chain(record("a"), record("b"))
	run(mw, httptest.NewRequest("GET", "/", nil), func(c *common.Context) *common.Response {
		order = append(order, "handler")
		return nil
	})

	expected := []string{"a in", "b in", "handler", "b out", "a out"}
	if strings.Join(order, ",") != strings.Join(expected, ",") {
		t.Errorf("Expected order %v, got %v", expected, order)
	}
}

func TestRecovery(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	logger := zap.New(core)

	resp := run(Recovery(logger), httptest.NewRequest("GET", "/boom", nil), func(c *common.Context) *common.Response {
		panic("test panic")
	})

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
	if logs.Len() != 1 {
		t.Fatalf("Expected 1 log entry, got %d", logs.Len())
	}
	entry := logs.All()[0]
	if entry.Message != "Panic recovered" {
		t.Errorf("Expected message %q, got %q", "Panic recovered", entry.Message)
	}
	if entry.ContextMap()["path"] != "/boom" {
		t.Errorf("Expected path %q, got %v", "/boom", entry.ContextMap()["path"])
	}
}

func TestRecoveryPassesThrough(t *testing.T) {
	resp := run(Recovery(zap.NewNop()), httptest.NewRequest("GET", "/", nil), okHandler)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestLoggingLevels(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		level   zapcore.Level
		message string
	}{
		{"success", http.StatusOK, zapcore.DebugLevel, "Request"},
		{"client error", http.StatusNotFound, zapcore.WarnLevel, "Client error"},
		{"server error", http.StatusBadGateway, zapcore.ErrorLevel, "Server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			run(Logging(zap.New(core)), httptest.NewRequest("GET", "/x", nil), statusHandler(tc.status))

			if logs.Len() != 1 {
				t.Fatalf("Expected 1 log entry, got %d", logs.Len())
			}
			entry := logs.All()[0]
			if entry.Level != tc.level {
				t.Errorf("Expected level %s, got %s", tc.level, entry.Level)
			}
			if entry.Message != tc.message {
				t.Errorf("Expected message %q, got %q", tc.message, entry.Message)
			}
			if entry.ContextMap()["status"] != int64(tc.status) {
				t.Errorf("Expected status field %d, got %v", tc.status, entry.ContextMap()["status"])
			}
		})
	}
}

func TestLoggingIncludesTraceID(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	req := httptest.NewRequest("GET", "/x", nil)
	req.Header.Set(TraceIDHeader, "trace-123")

	run(Chain(TraceID(), Logging(zap.New(core))), req, okHandler)

	if logs.Len() != 1 {
		t.Fatalf("Expected 1 log entry, got %d", logs.Len())
	}
	if got := logs.All()[0].ContextMap()["trace_id"]; got != "trace-123" {
		t.Errorf("Expected trace_id %q, got %v", "trace-123", got)
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	req := httptest.NewRequest("POST", "/users/7", nil)
	c := common.NewContext(req, "/users/:id", common.Params{"id": "7"})

	AccessLog(zap.New(core))(c, statusHandler(http.StatusCreated))

	entries := logs.FilterMessage("Access").All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["pattern"] != "/users/:id" {
		t.Errorf("Expected pattern %q, got %v", "/users/:id", fields["pattern"])
	}
	if fields["status"] != int64(http.StatusCreated) {
		t.Errorf("Expected status %d, got %v", http.StatusCreated, fields["status"])
	}
}

func TestTimer(t *testing.T) {
	resp := run(Timer(), httptest.NewRequest("GET", "/", nil), okHandler)
	if resp.Header.Get("X-Response-Time") == "" {
		t.Error("Expected X-Response-Time header to be set")
	}

	// A nil response still gets the header
	resp = run(Timer(), httptest.NewRequest("GET", "/", nil), func(c *common.Context) *common.Response { return nil })
	if resp == nil || resp.Header.Get("X-Response-Time") == "" {
		t.Error("Expected X-Response-Time header on a nil response")
	}
}

func TestRequestCounter(t *testing.T) {
	counter := NewRequestCounter()
	mw := counter.Middleware()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(mw, httptest.NewRequest("GET", "/", nil), okHandler)
		}()
	}
	wg.Wait()

	if counter.Count() != 50 {
		t.Errorf("Expected count 50, got %d", counter.Count())
	}

	resp := run(mw, httptest.NewRequest("GET", "/", nil), okHandler)
	if resp.Header.Get("X-Request-Count") != "51" {
		t.Errorf("Expected X-Request-Count %q, got %q", "51", resp.Header.Get("X-Request-Count"))
	}
}

func TestMaxBodySize(t *testing.T) {
	readBody := func(c *common.Context) *common.Response {
		if _, err := c.Body(); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return common.Status(http.StatusRequestEntityTooLarge)
			}
			return common.Status(http.StatusBadRequest)
		}
		return common.NewResponse(http.StatusOK)
	}

	resp := run(MaxBodySize(10), httptest.NewRequest("POST", "/", strings.NewReader("small")), readBody)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d for small body, got %d", http.StatusOK, resp.StatusCode)
	}

	resp = run(MaxBodySize(10), httptest.NewRequest("POST", "/", strings.NewReader(strings.Repeat("x", 20))), readBody)
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status code %d for large body, got %d", http.StatusRequestEntityTooLarge, resp.StatusCode)
	}
}

func TestMaxBodySizeWithoutBody(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	resp := run(MaxBodySize(1), req, func(c *common.Context) *common.Response {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil || len(b) != 0 {
			return common.Status(http.StatusBadRequest)
		}
		return common.NewResponse(http.StatusOK)
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
}

func TestTimeout(t *testing.T) {
	resp := run(Timeout(50*time.Millisecond), httptest.NewRequest("GET", "/", nil), okHandler)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	sawDeadline := make(chan bool, 1)
	resp = run(Timeout(10*time.Millisecond), httptest.NewRequest("GET", "/", nil), func(c *common.Context) *common.Response {
		_, ok := c.Context().Deadline()
		sawDeadline <- ok
		<-c.Context().Done()
		return okHandler(c)
	})
	if resp.StatusCode != http.StatusRequestTimeout {
		t.Errorf("Expected status code %d, got %d", http.StatusRequestTimeout, resp.StatusCode)
	}
	if !<-sawDeadline {
		t.Error("Expected the handler's context to carry a deadline")
	}
}

func TestTimeoutLeavesRequestContextAlone(t *testing.T) {
	req := httptest.NewRequest("GET", "/users/1", nil)
	c := common.NewContext(req, "/users/:id", common.Params{"id": "1"})
	finished := make(chan struct{})

	resp := Timeout(5*time.Millisecond)(c, func(c *common.Context) *common.Response {
		defer close(finished)
		c.Set("started", true)
		<-c.Context().Done()
		c.Pattern = "/late"
		c.Params["id"] = "2"
		return nil
	})
	<-finished

	if resp.StatusCode != http.StatusRequestTimeout {
		t.Errorf("Expected status code %d, got %d", http.StatusRequestTimeout, resp.StatusCode)
	}
	if c.Pattern != "/users/:id" || c.Param("id") != "1" {
		t.Errorf("Expected the request's context to be untouched, got pattern %q id %q", c.Pattern, c.Param("id"))
	}
	if c.Request != req {
		t.Error("Expected the request's Request to be untouched")
	}
	if v, _ := c.Get("started"); v != true {
		t.Error("Expected values set by the handler to be visible")
	}
}

func TestTimeoutRepanics(t *testing.T) {
	defer func() {
		if rec := recover(); rec != "handler panic" {
			t.Errorf("Expected the handler panic to propagate, got %v", rec)
		}
	}()
	run(Timeout(time.Second), httptest.NewRequest("GET", "/", nil), func(c *common.Context) *common.Response {
		panic("handler panic")
	})
}
