package middleware

import (
	"fmt"
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ClaimsKey is the Context key under which validated JWT claims are stored.
const ClaimsKey = "jwt_claims"

// AdminRole passes every RequireRole check.
const AdminRole = "admin"

// Claims are the JWT claims understood by the JWT middleware.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTConfig configures the JWT middleware.
type JWTConfig struct {
	Secret        []byte            // HMAC key used to verify tokens
	SigningMethod jwt.SigningMethod // Expected algorithm; defaults to HS256
	Logger        *zap.Logger       // Logs rejected tokens; defaults to a no-op logger
}

// JWT validates an HMAC signed bearer token and stores its claims in the
// Context under ClaimsKey. Missing, malformed, expired or wrongly signed tokens
// get a 401 and the rest of the chain is skipped.
func JWT(config JWTConfig) Middleware {
	method := config.SigningMethod
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{method.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) {
		return config.Secret, nil
	}

	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		raw, ok := BearerToken(c.Request)
		if !ok {
			return common.Unauthorized(`{"error":"Invalid or missing JWT token"}`)
		}

		claims := &Claims{}
		if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
			logger.Warn("JWT rejected",
				zap.Error(err),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
			)
			return common.Unauthorized(`{"error":"Invalid or missing JWT token"}`)
		}

		c.Set(ClaimsKey, claims)
		return next(c)
	}
}

// GetClaims returns the claims stored by JWT, or nil.
func GetClaims(c *common.Context) *Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*Claims)
	return claims
}

// RequireRole allows requests whose JWT claims carry role, or AdminRole.
// It must run after JWT. Requests without claims get a 401, requests with
// the wrong role a 403.
func RequireRole(role string) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		claims := GetClaims(c)
		if claims == nil {
			return common.Unauthorized(unauthorizedBody)
		}
		if claims.Role != role && claims.Role != AdminRole {
			return common.Forbidden(fmt.Sprintf(`{"error":"Access denied. Required role: %s"}`, role))
		}
		return next(c)
	}
}

// SignToken issues an HS256 token for subject with the given role, valid for ttl.
func SignToken(secret []byte, subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}
