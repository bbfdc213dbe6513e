package common

// MiddlewareChain represents an ordered chain of middleware.
// The first middleware in the chain is the outermost layer: it sees the request
// first and the response last.
type MiddlewareChain []Middleware

// NewMiddlewareChain creates a new middleware chain
func NewMiddlewareChain(middlewares ...Middleware) MiddlewareChain {
	return middlewares
}

// Append adds middleware to the end of the chain
func (c MiddlewareChain) Append(middlewares ...Middleware) MiddlewareChain {
	result := make(MiddlewareChain, 0, len(c)+len(middlewares))
	result = append(result, c...)
	return append(result, middlewares...)
}

// Prepend adds middleware to the beginning of the chain
func (c MiddlewareChain) Prepend(middlewares ...Middleware) MiddlewareChain {
	result := make(MiddlewareChain, len(middlewares)+len(c))
	copy(result, middlewares)
	copy(result[len(middlewares):], c)
	return result
}

// Then applies the middleware chain to a handler.
// The chain is driven by an index into the slice: the continuation handed to
// middleware i runs middleware i+1, or h once the chain is exhausted.
func (c MiddlewareChain) Then(h HandlerFunc) HandlerFunc {
	if len(c) == 0 {
		return h
	}
	return func(ctx *Context) *Response {
		return c.run(0, h, ctx)
	}
}

func (c MiddlewareChain) run(i int, h HandlerFunc, ctx *Context) *Response {
	if i >= len(c) {
		return h(ctx)
	}
	return c[i](ctx, func(ctx *Context) *Response {
		return c.run(i+1, h, ctx)
	})
}
