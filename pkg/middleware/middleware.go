// Package middleware provides a collection of middleware components for the ree router.
// Every constructor returns a common.Middleware: it either calls next and may
// rewrite the returned response, or answers on its own without calling next.
package middleware

import (
	"context"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Middleware is an alias for common.Middleware.
type Middleware = common.Middleware

// Chain composes middlewares into one. The first middleware is the outermost.
func Chain(middlewares ...Middleware) Middleware {
	chain := common.NewMiddlewareChain(middlewares...)
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		return chain.Then(next)(c)
	}
}

// Recovery is a middleware that recovers from panics in the rest of the chain
// and answers with a 500. The router already recovers at its outermost
// boundary; Recovery lets a group keep its own middleware running afterwards.
func Recovery(logger *zap.Logger) Middleware {
	return func(c *common.Context, next common.HandlerFunc) (resp *common.Response) {
		defer func() {
			if rec := recover(); rec != nil {
				// Log the panic
				logger.Error("Panic recovered",
					zap.Any("panic", rec),
					zap.String("stack", string(debug.Stack())),
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
				)

				resp = common.InternalServerError()
			}
		}()

		return next(c)
	}
}

// Logging is a middleware that logs requests.
// The level follows the outcome: 5xx at Error, 4xx and slow requests at Warn,
// everything else at Debug.
func Logging(logger *zap.Logger) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		start := time.Now()

		resp := next(c)

		duration := time.Since(start)
		status := statusOf(resp)

		fields := []zap.Field{
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Duration("duration", duration),
		}
		if traceID := GetTraceID(c.Request); traceID != "" {
			fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
		}

		switch {
		case status >= 500:
			logger.Error("Server error", append(fields, zap.String("remote_addr", c.Request.RemoteAddr))...)
		case status >= 400:
			logger.Warn("Client error", fields...)
		case duration > 1*time.Second:
			logger.Warn("Slow request", fields...)
		default:
			logger.Debug("Request", fields...)
		}
		return resp
	}
}

// AccessLog logs one Info line per request with the matched pattern.
func AccessLog(logger *zap.Logger) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		start := time.Now()
		resp := next(c)
		logger.Info("Access",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("pattern", c.Pattern),
			zap.Int("status", statusOf(resp)),
			zap.Duration("duration", time.Since(start)),
		)
		return resp
	}
}

// Timer adds an X-Response-Time header with the time spent in the rest of the chain.
func Timer() Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		start := time.Now()
		resp := next(c)
		if resp == nil {
			resp = common.NewResponse(http.StatusOK)
		}
		return resp.WithHeader("X-Response-Time", time.Since(start).String())
	}
}

// RequestCounter counts requests passing through it.
type RequestCounter struct {
	count atomic.Int64
}

// NewRequestCounter creates a counter starting at zero.
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{}
}

// Count returns the number of requests seen so far.
func (rc *RequestCounter) Count() int64 {
	return rc.count.Load()
}

// Middleware returns the counting middleware. It sets X-Request-Count on the response.
func (rc *RequestCounter) Middleware() Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		n := rc.count.Inc()
		resp := next(c)
		if resp == nil {
			resp = common.NewResponse(http.StatusOK)
		}
		return resp.WithHeader("X-Request-Count", strconv.FormatInt(n, 10))
	}
}

// MaxBodySize is a middleware that limits the size of the request body.
// Reading past the limit fails; handlers that read the body through
// Context.Body see the error.
func MaxBodySize(maxSize int64) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		if c.Request.Body != nil && c.Request.Body != http.NoBody {
			c.Request.Body = http.MaxBytesReader(nil, c.Request.Body, maxSize)
		}
		return next(c)
	}
}

// Timeout is a middleware that sets a deadline for the rest of the chain.
// The rest of the chain runs on its own goroutine with a forked Context, so
// when the deadline passes first Timeout answers 408 right away and the
// request's Context is never touched by the late handler. The router keeps
// counting the request as in flight until that goroutine returns; handlers
// should watch c.Context() to stop early.
func Timeout(timeout time.Duration) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		ctx, cancel := context.WithTimeout(c.Context(), timeout)
		defer cancel()

		fork, done := c.Fork()
		fork.WithContext(ctx)

		result := make(chan *common.Response, 1)
		panicked := make(chan any, 1)
		go func() {
			defer done()
			defer func() {
				if rec := recover(); rec != nil {
					panicked <- rec
				}
			}()
			result <- next(fork)
		}()

		select {
		case resp := <-result:
			return resp
		case rec := <-panicked:
			// Re-raise on the request goroutine so the router's recovery sees it.
			panic(rec)
		case <-ctx.Done():
			return common.Status(http.StatusRequestTimeout)
		}
	}
}

func statusOf(resp *common.Response) int {
	if resp == nil || resp.StatusCode == 0 {
		return http.StatusOK
	}
	return resp.StatusCode
}
