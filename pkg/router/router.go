package router

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"sort"
	"strings"
	"sync"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/Suhaibinator/ree/pkg/middleware"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Router is the main router struct that implements http.Handler.
// Routes, groups and middleware are registered first; the router is sealed on
// the first request (or by Seal) and serves from an immutable snapshot after that.
type Router struct {
	config      RouterConfig
	logger      *zap.Logger
	table       *RouteTable
	groups      []*Group
	groupIndex  map[string]*Group
	middlewares []common.Middleware
	infra       common.MiddlewareChain

	mu      sync.Mutex // guards registration and sealing
	sealed  atomic.Bool
	current *atomic.Pointer[snapshot]

	wg         sync.WaitGroup
	shutdown   bool
	shutdownMu sync.RWMutex
}

// snapshot is the read-only state used to serve requests.
type snapshot struct {
	table     *RouteTable
	groups    []sealedGroup
	chain     common.MiddlewareChain // infrastructure + global middleware
	notFound  common.HandlerFunc
	cleanPath bool
}

type sealedGroup struct {
	prefix string
	table  *RouteTable
	chain  common.MiddlewareChain // infrastructure + group + global middleware
}

// contextKey is a type for context keys.
type contextKey string

const (
	// ParamsKey is the key used to store common.Params in the request context.
	// This allows handlers adapted from http.Handler to read route parameters.
	ParamsKey contextKey = "params"
)

// NewRouter creates a new Router with the given configuration.
func NewRouter(config RouterConfig) *Router {
	// Set up the logger
	logger := config.Logger
	if logger == nil {
		var err error
		logger, err = zap.NewProduction()
		if err != nil {
			// Fallback to a no-op logger if we can't create a production logger
			logger = zap.NewNop()
		}
	}

	r := &Router{
		config:      config,
		logger:      logger,
		table:       NewRouteTable(),
		groupIndex:  make(map[string]*Group),
		middlewares: append([]common.Middleware(nil), config.Middlewares...),
		current:     atomic.NewPointer[snapshot](nil),
	}

	// Router-level infrastructure wraps every request, outside group and global middleware.
	if config.EnableTraceID {
		r.infra = r.infra.Append(middleware.TraceID())
	}
	if config.IPConfig != nil {
		r.infra = r.infra.Append(middleware.ClientIPMiddleware(config.IPConfig))
	}
	if config.Metrics != nil {
		r.infra = r.infra.Append(config.Metrics.Middleware())
	}
	if config.GlobalMaxBodySize > 0 {
		r.infra = r.infra.Append(middleware.MaxBodySize(config.GlobalMaxBodySize))
	}
	if config.GlobalTimeout > 0 {
		r.infra = r.infra.Append(middleware.Timeout(config.GlobalTimeout))
	}

	return r
}

// Logger returns the router's logger.
func (r *Router) Logger() *zap.Logger {
	return r.logger
}

func (r *Router) mustNotBeSealed() {
	if r.sealed.Load() {
		panic(ErrRouterSealed)
	}
}

// addRoute validates and stores a route, panicking on misuse.
func (r *Router) addRoute(table *RouteTable, method, pattern string, handler common.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustNotBeSealed()

	replaced, err := table.AddRoute(method, pattern, handler)
	if err != nil {
		panic(fmt.Errorf("router: cannot register %s %s: %w", method, pattern, err))
	}

	switch {
	case replaced == pattern:
		r.logger.Debug("Route handler replaced",
			zap.String("method", method),
			zap.String("pattern", pattern),
		)
	case replaced != "":
		r.logger.Warn("Route shadows an existing route",
			zap.String("method", method),
			zap.String("pattern", pattern),
			zap.String("shadowed", replaced),
		)
	default:
		r.logger.Debug("Route registered",
			zap.String("method", method),
			zap.String("pattern", pattern),
		)
	}
}

// Handle registers a top-level route.
// It panics if the pattern is malformed or the router is sealed.
func (r *Router) Handle(method, pattern string, handler common.HandlerFunc) *Router {
	r.addRoute(r.table, method, pattern, handler)
	return r
}

// GET registers a handler for GET requests.
func (r *Router) GET(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodGet, pattern, handler)
}

// POST registers a handler for POST requests.
func (r *Router) POST(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodPost, pattern, handler)
}

// PUT registers a handler for PUT requests.
func (r *Router) PUT(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodPut, pattern, handler)
}

// PATCH registers a handler for PATCH requests.
func (r *Router) PATCH(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodPatch, pattern, handler)
}

// DELETE registers a handler for DELETE requests.
func (r *Router) DELETE(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodDelete, pattern, handler)
}

// HEAD registers a handler for HEAD requests.
func (r *Router) HEAD(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodHead, pattern, handler)
}

// OPTIONS registers a handler for OPTIONS requests.
func (r *Router) OPTIONS(pattern string, handler common.HandlerFunc) *Router {
	return r.Handle(http.MethodOptions, pattern, handler)
}

// RegisterRoute registers a declared route for each of its methods.
func (r *Router) RegisterRoute(route RouteConfig) {
	for _, method := range route.Methods {
		r.Handle(method, route.Path, route.Handler)
	}
}

// Use appends global middleware. Global middleware runs after the selected
// group's middleware, in registration order.
func (r *Router) Use(middlewares ...common.Middleware) *Router {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustNotBeSealed()
	r.middlewares = append(r.middlewares, middlewares...)
	return r
}

// Group returns the group for prefix, creating it if needed.
// Calling Group twice with the same prefix returns the same group.
// It panics with ErrInvalidPrefix if prefix is empty or does not begin with '/'.
func (r *Router) Group(prefix string) *Group {
	if prefix == "" || prefix[0] != '/' {
		panic(fmt.Errorf("%w: %q", ErrInvalidPrefix, prefix))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mustNotBeSealed()

	if g, ok := r.groupIndex[prefix]; ok {
		return g
	}
	g := &Group{
		router: r,
		prefix: prefix,
		table:  NewRouteTable(),
	}
	r.groups = append(r.groups, g)
	r.groupIndex[prefix] = g
	r.logger.Debug("Group created", zap.String("prefix", prefix))
	return g
}

// RegisterGroup declares a group with its middleware and routes.
func (r *Router) RegisterGroup(gc GroupConfig) *Group {
	g := r.Group(gc.Prefix)
	g.Use(gc.Middlewares...)
	for _, route := range gc.Routes {
		for _, method := range route.Methods {
			g.Handle(method, route.Path, route.Handler)
		}
	}
	return g
}

// Routes returns every registered route, top-level routes first and then each
// group's routes in group creation order.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	routes := r.table.Routes()
	for _, g := range r.groups {
		routes = append(routes, g.table.Routes()...)
	}
	return routes
}

// Seal freezes the registration state. Further registration panics with
// ErrRouterSealed. Seal is called automatically on the first request and is
// safe to call more than once.
func (r *Router) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed.Load() {
		return
	}

	global := common.NewMiddlewareChain(r.middlewares...)

	// Longest prefix first so the most specific group wins.
	ordered := make([]*Group, len(r.groups))
	copy(ordered, r.groups)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].prefix) > len(ordered[j].prefix)
	})

	groups := make([]sealedGroup, 0, len(ordered))
	for _, g := range ordered {
		groups = append(groups, sealedGroup{
			prefix: g.prefix,
			table:  g.table,
			chain:  r.infra.Append(g.middlewares...).Append(global...),
		})
	}

	notFound := r.config.NotFoundHandler
	if notFound == nil {
		notFound = func(*common.Context) *common.Response {
			return common.NotFound()
		}
	}

	r.current.Store(&snapshot{
		table:     r.table,
		groups:    groups,
		chain:     r.infra.Append(global...),
		notFound:  notFound,
		cleanPath: r.config.CleanPath,
	})
	r.sealed.Store(true)

	r.logger.Debug("Router sealed",
		zap.Int("routes", r.table.Len()),
		zap.Int("groups", len(groups)),
		zap.Int("middlewares", len(global)),
	)
}

// Sealed reports whether the router has been sealed.
func (r *Router) Sealed() bool {
	return r.sealed.Load()
}

// Replace seals next and atomically makes its routes, groups and middleware the
// ones this router serves. Requests already in flight finish on the state they
// started with.
func (r *Router) Replace(next *Router) {
	next.Seal()
	r.mu.Lock()
	r.current.Store(next.current.Load())
	r.sealed.Store(true)
	r.mu.Unlock()
	r.logger.Info("Router state replaced")
}

func (r *Router) load() *snapshot {
	if s := r.current.Load(); s != nil {
		return s
	}
	r.Seal()
	return r.current.Load()
}

// Dispatch routes req through the middleware chain and returns the response.
// Panics raised anywhere in the chain are recovered and turned into a 500.
func (r *Router) Dispatch(req *http.Request) (resp *common.Response) {
	// First add to the wait group before checking shutdown status
	r.wg.Add(1)
	defer r.wg.Done()

	r.shutdownMu.RLock()
	isShutdown := r.shutdown
	r.shutdownMu.RUnlock()
	if isShutdown {
		return common.Status(http.StatusServiceUnavailable)
	}

	s := r.load()

	path := req.URL.Path
	if s.cleanPath {
		path = httprouter.CleanPath(path)
	}

	table, chain := s.table, s.chain
	for _, g := range s.groups {
		if strings.HasPrefix(path, g.prefix) {
			table, chain = g.table, g.chain
			break
		}
	}

	handler, pattern, params, ok := table.Lookup(req.Method, path)
	if !ok {
		handler = s.notFound
	} else {
		req = req.WithContext(context.WithValue(req.Context(), ParamsKey, params))
	}

	c := common.NewContext(req, pattern, params)
	// Work forked off the request (see middleware.Timeout) keeps Shutdown waiting.
	c.TrackInFlight(&r.wg)
	defer func() {
		if rec := recover(); rec != nil {
			r.logPanic(c, rec)
			resp = common.InternalServerError()
		}
	}()

	return chain.Then(handler)(c)
}

// logPanic records a recovered panic with the request that caused it.
func (r *Router) logPanic(c *common.Context, rec any) {
	fields := []zap.Field{
		zap.Any("panic", rec),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("pattern", c.Pattern),
		zap.ByteString("stack", debug.Stack()),
	}

	// Add trace ID if enabled and present
	if traceID := middleware.GetTraceID(c.Request); r.config.EnableTraceID && traceID != "" {
		fields = append([]zap.Field{zap.String("trace_id", traceID)}, fields...)
	}

	r.logger.Error("Panic recovered", fields...)
}

// ServeHTTP implements the http.Handler interface.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	resp := r.Dispatch(req)
	if err := resp.Write(w); err != nil {
		r.logger.Debug("Failed to write response",
			zap.Error(err),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
		)
	}
}

// Shutdown gracefully shuts down the router.
// It stops accepting new requests and waits for existing requests to complete.
// If the context is canceled before all requests complete, it returns the context's error.
func (r *Router) Shutdown(ctx context.Context) error {
	// Mark the router as shutting down
	r.shutdownMu.Lock()
	r.shutdown = true
	r.shutdownMu.Unlock()

	// Create a channel to signal when all requests are done
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	// Wait for all requests to finish or for the context to be canceled
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetParams retrieves the route parameters from the request context.
func GetParams(r *http.Request) common.Params {
	params, _ := r.Context().Value(ParamsKey).(common.Params)
	return params
}

// GetParam retrieves a specific parameter from the request context.
func GetParam(r *http.Request, name string) string {
	return GetParams(r).ByName(name)
}
