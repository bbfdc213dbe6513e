package router

import (
	"fmt"
	"strings"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/Suhaibinator/ree/pkg/trie"
)

// Route identifies a registered route.
type Route struct {
	Method  string
	Pattern string
}

// RouteTable maps (method, pattern) pairs to handlers.
// Each method has its own trie; handlers are stored under the key "METHOD pattern".
// A RouteTable is not safe for concurrent mutation. Once a router is sealed its
// tables are only read.
type RouteTable struct {
	roots    map[string]*trie.Node
	handlers map[string]common.HandlerFunc
	routes   []Route
}

// NewRouteTable creates an empty route table.
func NewRouteTable() *RouteTable {
	return &RouteTable{
		roots:    make(map[string]*trie.Node),
		handlers: make(map[string]common.HandlerFunc),
	}
}

func routeKey(method, pattern string) string {
	return method + " " + pattern
}

// AddRoute registers handler for method and pattern.
// It returns the pattern that previously ended at the same trie node, if any.
// Registering the same method and pattern twice keeps only the last handler.
// If a different pattern is returned, this route shadowed it: requests that
// used to reach it now reach the new handler, and its handler is dropped.
func (t *RouteTable) AddRoute(method, pattern string, handler common.HandlerFunc) (string, error) {
	if err := trie.Validate(pattern); err != nil {
		return "", err
	}
	if handler == nil {
		return "", fmt.Errorf("nil handler for %s %s", method, pattern)
	}

	root, ok := t.roots[method]
	if !ok {
		root = trie.NewRoot()
		t.roots[method] = root
	}

	replaced := root.Insert(pattern, trie.ParsePattern(pattern), 0)
	key := routeKey(method, pattern)
	if _, exists := t.handlers[key]; !exists {
		t.routes = append(t.routes, Route{Method: method, Pattern: pattern})
	}
	t.handlers[key] = handler

	if replaced != "" && replaced != pattern {
		delete(t.handlers, routeKey(method, replaced))
		t.removeRoute(method, replaced)
	}
	return replaced, nil
}

func (t *RouteTable) removeRoute(method, pattern string) {
	for i, r := range t.routes {
		if r.Method == method && r.Pattern == pattern {
			t.routes = append(t.routes[:i], t.routes[i+1:]...)
			return
		}
	}
}

// Resolve finds the pattern matching path and extracts its parameters.
// Parameters are bound by walking the matched pattern's segments alongside the
// path's segments: ":name" takes one segment, "*name" takes the rest joined by "/".
func (t *RouteTable) Resolve(method, path string) (string, common.Params, bool) {
	root, ok := t.roots[method]
	if !ok {
		return "", common.Params{}, false
	}

	searchParts := trie.ParsePattern(path)
	n := root.Search(searchParts, 0)
	if n == nil {
		return "", common.Params{}, false
	}

	params := make(common.Params)
	for i, part := range trie.ParsePattern(n.Pattern) {
		if i >= len(searchParts) {
			break
		}
		if part[0] == ':' {
			params[part[1:]] = searchParts[i]
		}
		if part[0] == '*' && len(part) > 1 {
			params[part[1:]] = strings.Join(searchParts[i:], "/")
			break
		}
	}
	return n.Pattern, params, true
}

// Lookup resolves path and returns the handler bound to the matched route.
func (t *RouteTable) Lookup(method, path string) (common.HandlerFunc, string, common.Params, bool) {
	pattern, params, ok := t.Resolve(method, path)
	if !ok {
		return nil, "", params, false
	}
	h, ok := t.handlers[routeKey(method, pattern)]
	if !ok {
		return nil, "", common.Params{}, false
	}
	return h, pattern, params, true
}

// Routes returns the registered routes in registration order.
func (t *RouteTable) Routes() []Route {
	routes := make([]Route, len(t.routes))
	copy(routes, t.routes)
	return routes
}

// Len returns the number of registered routes.
func (t *RouteTable) Len() int {
	return len(t.handlers)
}
