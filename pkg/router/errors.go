package router

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/Suhaibinator/ree/pkg/trie"
)

var (
	// ErrRouterSealed is the panic value used when a route, group or middleware
	// is registered after the router started serving.
	ErrRouterSealed = errors.New("router is sealed: registration is only allowed before the first request")

	// ErrInvalidPrefix is returned for group prefixes that are empty or do not begin with '/'.
	ErrInvalidPrefix = errors.New("group prefix must be non-empty and begin with '/'")

	// Pattern validation errors, re-exported from the trie package.
	ErrEmptyPattern    = trie.ErrEmptyPattern
	ErrPatternPrefix   = trie.ErrPatternPrefix
	ErrWildcardNotLast = trie.ErrWildcardNotLast
	ErrEmptyParamName  = trie.ErrEmptyParamName
	ErrDuplicateParam  = trie.ErrDuplicateParam
)

// HTTPError represents an HTTP error with a status code and message.
// Handlers can return it through ErrorResponse to control the exact error
// response sent to clients.
type HTTPError struct {
	StatusCode int    // HTTP status code (e.g., 400, 404, 500)
	Message    string // Error message to be sent in the response body
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

// NewHTTPError creates a new HTTPError with the specified status code and message.
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
	}
}

// ErrorResponse converts err into a response.
// An *HTTPError anywhere in the chain keeps its status code and message;
// any other error becomes a generic 500 so internal details are not leaked.
func ErrorResponse(err error) *common.Response {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return common.Text(httpErr.StatusCode, httpErr.Message)
	}
	return common.Status(http.StatusInternalServerError)
}
