// Package common provides shared types and utilities used across the ree framework.
package common

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
)

// HandlerFunc is the terminal step of a request: it receives the request context
// and produces the response that is sent back to the client.
type HandlerFunc func(c *Context) *Response

// Middleware intercepts a request on its way to the handler.
// It either calls next (and may post-process the returned response) or returns
// its own response without calling next, which skips every downstream middleware
// and the handler.
type Middleware func(c *Context, next HandlerFunc) *Response

// Params holds the path parameters extracted from the matched route pattern.
// A ":name" segment maps to one path segment, a "*name" segment maps to the
// remainder of the path joined by "/".
type Params map[string]string

// ByName returns the value of the named parameter, or "" if it is not set.
func (p Params) ByName(name string) string {
	return p[name]
}

// Context is the per-request state handed through the middleware chain.
// It is created by the dispatcher after route resolution.
type Context struct {
	// Request is the inbound request. Middleware may replace it, for example
	// with a copy carrying a derived context.
	Request *http.Request

	// Params are the path parameters of the matched route.
	Params Params

	// Pattern is the registered pattern that matched, or "" if no route matched.
	Pattern string

	values   *valueStore
	inFlight *sync.WaitGroup
	body     []byte
	bodyRead bool
	bodyErr  error
	query    url.Values
}

// valueStore holds request-scoped values. Forked contexts share it.
type valueStore struct {
	mu   sync.RWMutex
	keys map[string]any
}

// NewContext creates a context for the given request and route match.
func NewContext(r *http.Request, pattern string, params Params) *Context {
	if params == nil {
		params = Params{}
	}
	return &Context{
		Request: r,
		Params:  params,
		Pattern: pattern,
		values:  &valueStore{},
	}
}

// TrackInFlight registers wg as the counter of in-flight work for this
// request. Fork adds to it, and the returned done func releases it.
func (c *Context) TrackInFlight(wg *sync.WaitGroup) {
	c.inFlight = wg
}

// Fork returns a copy of c for use on another goroutine, with its own Request
// and Params. Values stored with Set are shared. The request stays in flight
// until done is called, so call done when the goroutine finishes.
func (c *Context) Fork() (fork *Context, done func()) {
	params := make(Params, len(c.Params))
	for k, v := range c.Params {
		params[k] = v
	}

	var req *http.Request
	if c.Request != nil {
		req = c.Request.Clone(c.Request.Context())
	}

	fork = &Context{
		Request:  req,
		Params:   params,
		Pattern:  c.Pattern,
		values:   c.values,
		inFlight: c.inFlight,
		body:     c.body,
		bodyRead: c.bodyRead,
		bodyErr:  c.bodyErr,
	}

	done = func() {}
	if c.inFlight != nil {
		c.inFlight.Add(1)
		done = c.inFlight.Done
	}
	return fork, done
}

// Context returns the request's context.Context. It is cancelled when the client
// goes away or when a deadline set by an upstream middleware expires.
func (c *Context) Context() context.Context {
	return c.Request.Context()
}

// WithContext replaces the request's context.Context.
func (c *Context) WithContext(ctx context.Context) {
	c.Request = c.Request.WithContext(ctx)
}

// Param returns a path parameter by name.
func (c *Context) Param(name string) string {
	return c.Params[name]
}

// Query returns the first value of a query string parameter.
func (c *Context) Query(name string) string {
	if c.query == nil {
		c.query = c.Request.URL.Query()
	}
	return c.query.Get(name)
}

// Header returns a request header value.
func (c *Context) Header(name string) string {
	return c.Request.Header.Get(name)
}

// Method returns the request method.
func (c *Context) Method() string {
	return c.Request.Method
}

// Path returns the request path.
func (c *Context) Path() string {
	return c.Request.URL.Path
}

// Body reads the request body once and returns the cached bytes on later calls.
func (c *Context) Body() ([]byte, error) {
	if c.bodyRead {
		return c.body, c.bodyErr
	}
	c.bodyRead = true
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil, nil
	}
	defer c.Request.Body.Close()
	c.body, c.bodyErr = io.ReadAll(c.Request.Body)
	return c.body, c.bodyErr
}

// Set stores a request-scoped value.
func (c *Context) Set(key string, value any) {
	if c.values == nil {
		c.values = &valueStore{}
	}
	c.values.mu.Lock()
	defer c.values.mu.Unlock()
	if c.values.keys == nil {
		c.values.keys = make(map[string]any)
	}
	c.values.keys[key] = value
}

// Get returns a request-scoped value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	if c.values == nil {
		return nil, false
	}
	c.values.mu.RLock()
	defer c.values.mu.RUnlock()
	v, ok := c.values.keys[key]
	return v, ok
}

// GetString returns a request-scoped string value, or "" if it is missing or not a string.
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}
