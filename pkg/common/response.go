package common

import (
	"net/http"
	"strconv"
)

// Response is the value produced by handlers and middleware.
// It travels back out through the middleware chain, so every layer can inspect
// or rewrite it before the transport writes it to the client.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// NewResponse creates an empty response with the given status code.
func NewResponse(statusCode int) *Response {
	return &Response{
		StatusCode: statusCode,
		Header:     make(http.Header),
	}
}

// WithHeader sets a header and returns the response for chaining.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(key, value)
	return r
}

// WithBody replaces the body and returns the response for chaining.
func (r *Response) WithBody(body []byte) *Response {
	r.Body = body
	return r
}

// Clone returns a deep copy of the response.
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	c := &Response{
		StatusCode: r.StatusCode,
		Header:     r.Header.Clone(),
	}
	if r.Body != nil {
		c.Body = append([]byte(nil), r.Body...)
	}
	if c.Header == nil {
		c.Header = make(http.Header)
	}
	return c
}

// Write serializes the response to w. A nil response is written as 200 OK with
// an empty body, and a zero status code is treated as 200 OK.
func (r *Response) Write(w http.ResponseWriter) error {
	if r == nil {
		w.WriteHeader(http.StatusOK)
		return nil
	}

	h := w.Header()
	for k, vs := range r.Header {
		h[k] = vs
	}
	if len(r.Body) > 0 && h.Get("Content-Length") == "" {
		h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	}

	status := r.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// WithContentType creates a response with a body and a Content-Type header.
func WithContentType(statusCode int, contentType string, body []byte) *Response {
	return NewResponse(statusCode).
		WithHeader("Content-Type", contentType).
		WithBody(body)
}

// Text creates a plain text response.
func Text(statusCode int, body string) *Response {
	return WithContentType(statusCode, "text/plain; charset=utf-8", []byte(body))
}

// HTML creates an HTML response.
func HTML(statusCode int, body string) *Response {
	return WithContentType(statusCode, "text/html; charset=utf-8", []byte(body))
}

// JSONBytes creates a JSON response from an already encoded body.
// Use the codec package to encode Go values.
func JSONBytes(statusCode int, body []byte) *Response {
	return WithContentType(statusCode, "application/json", body)
}

// Status creates a response carrying only a status code and its standard text.
func Status(statusCode int) *Response {
	return Text(statusCode, http.StatusText(statusCode))
}

// NoContent creates a 204 No Content response.
func NoContent() *Response {
	return NewResponse(http.StatusNoContent)
}

// NotFound creates the default 404 response.
func NotFound() *Response {
	return Text(http.StatusNotFound, "404 Not Found")
}

// InternalServerError creates the generic 500 response.
func InternalServerError() *Response {
	return Status(http.StatusInternalServerError)
}

// BadRequest creates a 400 JSON error response.
func BadRequest(body string) *Response {
	return JSONBytes(http.StatusBadRequest, []byte(body))
}

// Unauthorized creates a 401 JSON error response.
func Unauthorized(body string) *Response {
	return JSONBytes(http.StatusUnauthorized, []byte(body))
}

// Forbidden creates a 403 JSON error response.
func Forbidden(body string) *Response {
	return JSONBytes(http.StatusForbidden, []byte(body))
}

// TooManyRequests creates a 429 JSON error response.
func TooManyRequests(body string) *Response {
	return JSONBytes(http.StatusTooManyRequests, []byte(body))
}

// Created creates a 201 JSON response.
func Created(body []byte) *Response {
	return JSONBytes(http.StatusCreated, body)
}
