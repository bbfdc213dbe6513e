package router

import (
	"net/http"

	"github.com/Suhaibinator/ree/pkg/common"
)

// Group is a prefix-scoped set of routes with its own middleware.
// Requests whose path starts with the prefix are resolved only against the
// group's routes, and the group's middleware runs before the router's global
// middleware. Groups do not nest.
//
// The prefix is matched as a plain string prefix: a group at "/api" also
// receives "/apiary".
type Group struct {
	router      *Router
	prefix      string
	table       *RouteTable
	middlewares []common.Middleware
}

// Prefix returns the group's path prefix.
func (g *Group) Prefix() string {
	return g.prefix
}

// Routes returns the group's routes with their full patterns.
func (g *Group) Routes() []Route {
	return g.table.Routes()
}

// Use appends middleware to the group's chain.
func (g *Group) Use(middlewares ...common.Middleware) *Group {
	g.router.mu.Lock()
	defer g.router.mu.Unlock()
	g.router.mustNotBeSealed()
	g.middlewares = append(g.middlewares, middlewares...)
	return g
}

// Handle registers a handler for method at prefix+path.
// It panics if the resulting pattern is malformed or the router is sealed.
func (g *Group) Handle(method, path string, handler common.HandlerFunc) *Group {
	g.router.addRoute(g.table, method, g.prefix+path, handler)
	return g
}

// GET registers a handler for GET requests.
func (g *Group) GET(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodGet, path, handler)
}

// POST registers a handler for POST requests.
func (g *Group) POST(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodPost, path, handler)
}

// PUT registers a handler for PUT requests.
func (g *Group) PUT(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodPut, path, handler)
}

// PATCH registers a handler for PATCH requests.
func (g *Group) PATCH(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodPatch, path, handler)
}

// DELETE registers a handler for DELETE requests.
func (g *Group) DELETE(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodDelete, path, handler)
}

// HEAD registers a handler for HEAD requests.
func (g *Group) HEAD(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodHead, path, handler)
}

// OPTIONS registers a handler for OPTIONS requests.
func (g *Group) OPTIONS(path string, handler common.HandlerFunc) *Group {
	return g.Handle(http.MethodOptions, path, handler)
}
