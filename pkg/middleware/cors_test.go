package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Suhaibinator/ree/pkg/common"
)

func TestCORSDefaults(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://example.com")

	resp := run(CORS().Build(), req, okHandler)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", "*", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, POST, PUT, DELETE, OPTIONS" {
		t.Errorf("Unexpected Access-Control-Allow-Methods %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "Content-Type, Authorization" {
		t.Errorf("Unexpected Access-Control-Allow-Headers %q", got)
	}
	if got := resp.Header.Get("Vary"); got != "" {
		t.Errorf("Expected no Vary header for wildcard origin, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handlerCalled := false
	req := httptest.NewRequest("OPTIONS", "/users", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "PUT")

	mw := CORS().
		AllowOrigins("https://app.example.com").
		AllowMethods("GET", "PUT").
		MaxAge("600").
		Build()
	resp := run(mw, req, func(c *common.Context) *common.Response {
		handlerCalled = true
		return okHandler(c)
	})

	if handlerCalled {
		t.Error("Expected preflight to be answered without calling the handler")
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected status code %d, got %d", http.StatusNoContent, resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("Expected origin echoed back, got %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, PUT" {
		t.Errorf("Expected methods %q, got %q", "GET, PUT", got)
	}
	if got := resp.Header.Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("Expected max age %q, got %q", "600", got)
	}
	if got := resp.Header.Get("Vary"); got != "Origin" {
		t.Errorf("Expected Vary %q, got %q", "Origin", got)
	}
}

func TestCORSPlainOptionsReachesHandler(t *testing.T) {
	handlerCalled := false
	req := httptest.NewRequest("OPTIONS", "/users", nil)
	run(CORS().Build(), req, func(c *common.Context) *common.Response {
		handlerCalled = true
		return okHandler(c)
	})
	if !handlerCalled {
		t.Error("Expected OPTIONS without Access-Control-Request-Method to reach the handler")
	}
}

func TestCORSDisallowedOrigin(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example.com")

	resp := run(CORS().AllowOrigins("https://app.example.com").Build(), req, okHandler)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected the request to be served, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no Access-Control-Allow-Origin, got %q", got)
	}
}

func TestCORSDecoratesShortCircuit(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://example.com")

	resp := run(Chain(CORS().Build(), Authentication(func(*http.Request) bool { return false })), req, okHandler)

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected status code %d, got %d", http.StatusUnauthorized, resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS headers on a rejected response")
	}
}
