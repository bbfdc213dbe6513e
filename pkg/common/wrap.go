package common

import (
	"bytes"
	"net/http"
)

// WrapHTTP adapts a standard http.Handler into a HandlerFunc.
// The handler writes into an in-memory buffer whose status, headers and body
// become the returned Response, so middleware can still post-process it.
func WrapHTTP(h http.Handler) HandlerFunc {
	return func(c *Context) *Response {
		rw := &bufferedResponseWriter{header: make(http.Header)}
		h.ServeHTTP(rw, c.Request)
		status := rw.statusCode
		if status == 0 {
			status = http.StatusOK
		}
		return &Response{
			StatusCode: status,
			Header:     rw.header,
			Body:       rw.body.Bytes(),
		}
	}
}

// bufferedResponseWriter is an http.ResponseWriter that records everything in memory.
type bufferedResponseWriter struct {
	header     http.Header
	statusCode int
	body       bytes.Buffer
}

// Header returns the header map that will be copied into the Response.
func (rw *bufferedResponseWriter) Header() http.Header {
	return rw.header
}

// WriteHeader captures the status code. Only the first call has an effect.
func (rw *bufferedResponseWriter) WriteHeader(statusCode int) {
	if rw.statusCode == 0 {
		rw.statusCode = statusCode
	}
}

// Write appends to the body buffer.
func (rw *bufferedResponseWriter) Write(b []byte) (int, error) {
	if rw.statusCode == 0 {
		rw.statusCode = http.StatusOK
	}
	return rw.body.Write(b)
}
