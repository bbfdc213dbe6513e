// Package codec provides JSON encoding and decoding for request handlers.
// It is backed by github.com/bytedance/sonic configured for encoding/json
// compatible output.
package codec

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/Suhaibinator/ree/pkg/router"
	"github.com/bytedance/sonic"
)

var api = sonic.ConfigStd

// ErrEmptyBody is returned when a request that must carry a JSON body has none.
var ErrEmptyBody = errors.New("request body is empty")

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent encodes v as indented JSON.
func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal decodes JSON data into v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// Encode writes v to w as JSON followed by a newline.
func Encode(w io.Writer, v any) error {
	return api.NewEncoder(w).Encode(v)
}

// Decode reads one JSON value from r into v.
func Decode(r io.Reader, v any) error {
	return api.NewDecoder(r).Decode(v)
}

// Respond encodes v into a JSON response with the given status.
// If v cannot be encoded the result is a 500.
func Respond(statusCode int, v any) *common.Response {
	body, err := Marshal(v)
	if err != nil {
		return common.Status(http.StatusInternalServerError)
	}
	return common.JSONBytes(statusCode, body)
}

type errorBody struct {
	Error string `json:"error"`
}

// Error converts err into a JSON error response.
// An *router.HTTPError keeps its status and message; other errors become a
// generic 500.
func Error(err error) *common.Response {
	var httpErr *router.HTTPError
	if errors.As(err, &httpErr) {
		return Respond(httpErr.StatusCode, errorBody{Error: httpErr.Message})
	}
	return Respond(http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)})
}

// JSONCodec decodes request bodies into T and encodes U into responses.
type JSONCodec[T any, U any] struct {
	// AllowEmpty leaves T at its zero value when the body is empty instead
	// of failing with ErrEmptyBody.
	AllowEmpty bool
}

// NewJSONCodec creates a new JSONCodec instance for the specified types.
// T represents the request type and U represents the response type.
func NewJSONCodec[T any, U any]() *JSONCodec[T, U] {
	return &JSONCodec[T, U]{}
}

// Decode decodes the request body into a value of type T.
func (c *JSONCodec[T, U]) Decode(ctx *common.Context) (T, error) {
	var data T

	body, err := ctx.Body()
	if err != nil {
		return data, err
	}
	if len(body) == 0 {
		if c.AllowEmpty {
			return data, nil
		}
		return data, ErrEmptyBody
	}

	if err := Unmarshal(body, &data); err != nil {
		return data, fmt.Errorf("decode %T: %w", data, err)
	}
	return data, nil
}

// Encode encodes a value of type U into a 200 JSON response.
func (c *JSONCodec[T, U]) Encode(resp U) (*common.Response, error) {
	body, err := Marshal(resp)
	if err != nil {
		return nil, err
	}
	return common.JSONBytes(http.StatusOK, body), nil
}

// JSON adapts a typed handler into a common.HandlerFunc.
// The request body is decoded into Req (an empty body on GET, HEAD, DELETE and
// OPTIONS leaves Req zero), fn is called, and its result is encoded as JSON.
// Decode failures answer 400, or 413 when the body is over a MaxBodySize
// limit; handler errors go through Error.
func JSON[Req any, Resp any](fn func(c *common.Context, req Req) (Resp, error)) common.HandlerFunc {
	return func(c *common.Context) *common.Response {
		codec := NewJSONCodec[Req, Resp]()
		switch c.Method() {
		case http.MethodGet, http.MethodHead, http.MethodDelete, http.MethodOptions:
			codec.AllowEmpty = true
		}

		req, err := codec.Decode(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return Respond(http.StatusRequestEntityTooLarge, errorBody{Error: "Request body too large"})
			}
			return Respond(http.StatusBadRequest, errorBody{Error: "Failed to decode request"})
		}

		resp, err := fn(c, req)
		if err != nil {
			return Error(err)
		}

		out, err := codec.Encode(resp)
		if err != nil {
			return Error(err)
		}
		return out
	}
}
