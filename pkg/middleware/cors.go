package middleware

import (
	"net/http"
	"strings"

	"github.com/Suhaibinator/ree/pkg/common"
)

// CORSBuilder builds a CORS middleware.
// The defaults allow any origin, the common methods, and the
// Content-Type and Authorization headers.
type CORSBuilder struct {
	origins []string
	methods []string
	headers []string
	maxAge  string
}

// CORS returns a builder with the default policy.
func CORS() *CORSBuilder {
	return &CORSBuilder{
		origins: []string{"*"},
		methods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		headers: []string{"Content-Type", "Authorization"},
	}
}

// AllowOrigins replaces the allowed origins.
func (b *CORSBuilder) AllowOrigins(origins ...string) *CORSBuilder {
	b.origins = origins
	return b
}

// AllowMethods replaces the allowed methods.
func (b *CORSBuilder) AllowMethods(methods ...string) *CORSBuilder {
	b.methods = methods
	return b
}

// AllowHeaders replaces the allowed request headers.
func (b *CORSBuilder) AllowHeaders(headers ...string) *CORSBuilder {
	b.headers = headers
	return b
}

// MaxAge sets Access-Control-Max-Age, in seconds, on preflight responses.
func (b *CORSBuilder) MaxAge(seconds string) *CORSBuilder {
	b.maxAge = seconds
	return b
}

// Build returns the middleware.
// Preflight requests (OPTIONS with Access-Control-Request-Method) are answered
// with 204 directly. Other requests go through the chain and get the CORS
// headers added to whatever response comes back.
func (b *CORSBuilder) Build() Middleware {
	origins := append([]string(nil), b.origins...)
	methods := strings.Join(b.methods, ", ")
	headers := strings.Join(b.headers, ", ")
	maxAge := b.maxAge

	wildcard := false
	for _, o := range origins {
		if o == "*" {
			wildcard = true
		}
	}

	allowOrigin := func(origin string) string {
		if wildcard {
			return "*"
		}
		for _, o := range origins {
			if o == origin {
				return origin
			}
		}
		return ""
	}

	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		origin := allowOrigin(c.Header("Origin"))

		decorate := func(resp *common.Response) *common.Response {
			if resp == nil {
				resp = common.NewResponse(http.StatusOK)
			}
			if origin == "" {
				return resp
			}
			resp.WithHeader("Access-Control-Allow-Origin", origin)
			if methods != "" {
				resp.WithHeader("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				resp.WithHeader("Access-Control-Allow-Headers", headers)
			}
			if !wildcard {
				resp.Header.Add("Vary", "Origin")
			}
			return resp
		}

		// Handle preflight requests
		if c.Method() == http.MethodOptions && c.Header("Access-Control-Request-Method") != "" {
			resp := decorate(common.NoContent())
			if maxAge != "" && origin != "" {
				resp.WithHeader("Access-Control-Max-Age", maxAge)
			}
			return resp
		}

		return decorate(next(c))
	}
}
