package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/Suhaibinator/ree/pkg/common"
	"go.uber.org/zap"
)

const (
	unauthorizedBody = `{"error":"Authentication required"}`

	// UserKey is the Context key under which authenticated users are stored.
	UserKey = "user"
)

// AuthProvider defines an interface for authentication providers.
// Different authentication mechanisms can implement this interface
// to be used with the AuthenticationWithProvider middleware.
type AuthProvider interface {
	// Authenticate reports whether the request carries valid credentials.
	Authenticate(r *http.Request) bool
}

// BasicAuthProvider provides HTTP Basic Authentication.
// It validates username and password credentials against a predefined map.
type BasicAuthProvider struct {
	Credentials map[string]string // username -> password
}

// Authenticate validates the Basic credentials of r.
func (p *BasicAuthProvider) Authenticate(r *http.Request) bool {
	username, password, ok := r.BasicAuth()
	if !ok {
		return false
	}

	expectedPassword, exists := p.Credentials[username]
	if !exists {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(password), []byte(expectedPassword)) == 1
}

// BearerTokenProvider provides Bearer Token Authentication.
// It can validate tokens against a predefined map or using a custom validator function.
type BearerTokenProvider struct {
	ValidTokens map[string]bool         // token -> valid
	Validator   func(token string) bool // optional token validator
}

// Authenticate validates the bearer token of r.
// The validator takes precedence over ValidTokens when both are set.
func (p *BearerTokenProvider) Authenticate(r *http.Request) bool {
	token, ok := BearerToken(r)
	if !ok {
		return false
	}

	if p.Validator != nil {
		return p.Validator(token)
	}
	return p.ValidTokens[token]
}

// APIKeyProvider provides API Key Authentication.
// It can validate API keys provided in a header or query parameter.
type APIKeyProvider struct {
	ValidKeys map[string]bool // key -> valid
	Header    string          // header name (e.g., "X-API-Key")
	Query     string          // query parameter name (e.g., "api_key")
}

// Authenticate checks the header first, then the query parameter.
func (p *APIKeyProvider) Authenticate(r *http.Request) bool {
	if p.Header != "" {
		if key := r.Header.Get(p.Header); key != "" && p.ValidKeys[key] {
			return true
		}
	}

	if p.Query != "" {
		if key := r.URL.Query().Get(p.Query); key != "" && p.ValidKeys[key] {
			return true
		}
	}

	return false
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

// AuthenticationWithProvider is a middleware that checks if a request is authenticated
// using the provided auth provider. If authentication fails, it returns a 401
// without calling the rest of the chain.
func AuthenticationWithProvider(provider AuthProvider, logger *zap.Logger) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		if !provider.Authenticate(c.Request) {
			logger.Warn("Authentication failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("remote_addr", c.Request.RemoteAddr),
			)
			return common.Unauthorized(unauthorizedBody)
		}
		return next(c)
	}
}

// Authentication is a middleware that checks if a request is authenticated using a simple auth function.
func Authentication(authFunc func(*http.Request) bool) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		if !authFunc(c.Request) {
			return common.Unauthorized(unauthorizedBody)
		}
		return next(c)
	}
}

// Bearer requires "Authorization: Bearer <token>" with exactly the given token.
func Bearer(token string, logger *zap.Logger) Middleware {
	return AuthenticationWithProvider(&BearerTokenProvider{
		Validator: func(t string) bool {
			return subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1
		},
	}, logger)
}

// NewBasicAuthMiddleware creates a middleware that uses HTTP Basic Authentication.
func NewBasicAuthMiddleware(credentials map[string]string, logger *zap.Logger) Middleware {
	return AuthenticationWithProvider(&BasicAuthProvider{Credentials: credentials}, logger)
}

// NewBearerTokenMiddleware creates a middleware that accepts any of validTokens.
func NewBearerTokenMiddleware(validTokens map[string]bool, logger *zap.Logger) Middleware {
	return AuthenticationWithProvider(&BearerTokenProvider{ValidTokens: validTokens}, logger)
}

// NewAPIKeyMiddleware creates a middleware that uses API Key Authentication.
func NewAPIKeyMiddleware(validKeys map[string]bool, header, query string, logger *zap.Logger) Middleware {
	return AuthenticationWithProvider(&APIKeyProvider{
		ValidKeys: validKeys,
		Header:    header,
		Query:     query,
	}, logger)
}

// AuthenticationWithUser is a middleware that uses a custom auth function that returns a user object
// and stores it in the Context under UserKey when authentication succeeds.
func AuthenticationWithUser[T any](authFunc func(*http.Request) (*T, error), logger *zap.Logger) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		user, err := authFunc(c.Request)
		if err == nil && user == nil {
			err = errors.New("no user returned")
		}
		if err != nil {
			logger.Warn("Authentication failed",
				zap.Error(err),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
			return common.Unauthorized(unauthorizedBody)
		}

		c.Set(UserKey, user)
		return next(c)
	}
}

// GetUser retrieves the user stored by AuthenticationWithUser.
// Returns nil if no user of type T is present.
func GetUser[T any](c *common.Context) *T {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*T)
	return user
}
