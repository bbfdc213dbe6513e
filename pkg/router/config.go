// Package router provides a trie based HTTP router with route groups and an
// onion style middleware chain.
package router

import (
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/Suhaibinator/ree/pkg/metrics"
	"github.com/Suhaibinator/ree/pkg/middleware"
	"go.uber.org/zap"
)

// RouterConfig defines the global configuration for the router.
// It includes settings for logging, timeouts, metrics, and middleware.
type RouterConfig struct {
	Logger            *zap.Logger          // Logger for all router operations
	GlobalTimeout     time.Duration        // Deadline applied to every request; 0 disables it
	GlobalMaxBodySize int64                // Maximum request body size in bytes; 0 disables it
	IPConfig          *middleware.IPConfig // Client IP extraction; nil skips it
	EnableTraceID     bool                 // Generate a trace ID per request and include it in logs
	CleanPath         bool                 // Normalize request paths with httprouter.CleanPath before matching
	Metrics           *metrics.Collector   // Prometheus collector; nil disables metrics
	Middlewares       []common.Middleware  // Global middlewares, run after group middlewares
	NotFoundHandler   common.HandlerFunc   // Terminal handler when no route matches; defaults to a 404
}

// GroupConfig declares a group and its routes up front.
// It is the declarative counterpart of Router.Group.
type GroupConfig struct {
	Prefix      string              // Common path prefix, must begin with '/'
	Middlewares []common.Middleware // Middlewares applied to every request the group selects
	Routes      []RouteConfig       // Routes in this group, relative to Prefix
}

// RouteConfig declares a single route.
type RouteConfig struct {
	Methods []string           // HTTP methods this route handles
	Path    string             // Route pattern
	Handler common.HandlerFunc // Handler for the route
}
