package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/atomic"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"
)

const rateLimitedBody = `{"error":"Rate limit exceeded"}`

// fixedWindow is one immutable state of RateLimit's counter.
type fixedWindow struct {
	start time.Time
	count int
}

// RateLimit allows at most max requests per window across every request that
// passes through this middleware instance. The counter is shared by all
// clients; use RateLimitByKey to limit clients separately.
// Excess requests get a 429 and the rest of the chain is skipped.
// The window start and count change together in one compare-and-swap, so no
// request is lost or double counted when a window rolls over.
func RateLimit(max int, window time.Duration) Middleware {
	state := atomic.NewPointer(&fixedWindow{start: time.Now()})

	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		for {
			cur := state.Load()
			now := time.Now()

			upd := &fixedWindow{start: cur.start, count: cur.count + 1}
			if now.Sub(cur.start) > window {
				upd = &fixedWindow{start: now, count: 1}
			}
			if upd.count > max {
				return common.TooManyRequests(rateLimitedBody)
			}
			if state.CompareAndSwap(cur, upd) {
				break
			}
		}
		return next(c)
	}
}

// RateLimitConfig defines configuration for per-client rate limiting
type RateLimitConfig struct {
	// Unique identifier for this rate limit bucket
	// If multiple groups share the same BucketName and store, they share the same rate limit
	BucketName string

	// Maximum number of requests allowed in the time window
	Limit int

	// Time window for the rate limit (e.g., 1 minute, 1 hour)
	Window time.Duration

	// Strategy for identifying clients (IP, User, Custom)
	// - "ip": Use client IP address
	// - "user": Use the JWT subject, falling back to IP
	// - "custom": Use KeyExtractor
	Strategy string

	// Custom key extractor function (used when Strategy is "custom")
	KeyExtractor func(*common.Context) (string, error)

	// Response to send when rate limit is exceeded
	// If nil, a default 429 Too Many Requests response is sent
	ExceededHandler common.HandlerFunc
}

// RateLimitStore holds per-client fixed windows.
type RateLimitStore struct {
	cache *gocache.Cache
}

// NewRateLimitStore creates a store. Expired windows are purged every cleanupInterval.
func NewRateLimitStore(cleanupInterval time.Duration) *RateLimitStore {
	return &RateLimitStore{cache: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Allow counts one request for key and reports whether it is within limit,
// how many requests remain, and when the current window ends.
func (s *RateLimitStore) Allow(key string, limit int, window time.Duration) (bool, int, time.Time) {
	if window <= 0 {
		window = time.Second
	}

	// Add only succeeds for the first request of a window.
	if err := s.cache.Add(key, int64(0), window); err != nil {
		// An existing item may have expired without being purged yet.
		if _, found := s.cache.Get(key); !found {
			s.cache.Set(key, int64(0), window)
		}
	}

	n, err := s.cache.IncrementInt64(key, 1)
	if err != nil {
		s.cache.Set(key, int64(1), window)
		n = 1
	}

	reset := time.Now().Add(window)
	if _, exp, found := s.cache.GetWithExpiration(key); found && !exp.IsZero() {
		reset = exp
	}

	remaining := limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return int(n) <= limit, remaining, reset
}

// RateLimitByKey creates a middleware that enforces config.Limit requests per
// config.Window for each client, using a fixed window per key.
func RateLimitByKey(config RateLimitConfig, store *RateLimitStore, logger *zap.Logger) Middleware {
	if store == nil {
		store = NewRateLimitStore(time.Minute)
	}

	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		var key string
		var err error

		switch config.Strategy {
		case "user":
			key = extractUser(c)
			// If no user is found, fall back to IP
			if key == "" {
				key = ClientIP(c)
			}
		case "custom":
			if config.KeyExtractor != nil {
				key, err = config.KeyExtractor(c)
				if err != nil {
					logger.Error("Failed to extract rate limit key",
						zap.Error(err),
						zap.String("method", c.Method()),
						zap.String("path", c.Path()),
					)
					return common.InternalServerError()
				}
			} else {
				key = ClientIP(c)
			}
		default:
			key = ClientIP(c)
		}

		// Combine bucket name and key to create a unique identifier
		allowed, remaining, reset := store.Allow(config.BucketName+":"+key, config.Limit, config.Window)

		var resp *common.Response
		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("key", key),
				zap.Int("limit", config.Limit),
			)
			if config.ExceededHandler != nil {
				resp = config.ExceededHandler(c)
			}
			if resp == nil {
				resp = common.TooManyRequests(rateLimitedBody)
			}
			retryAfter := int64(time.Until(reset).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			resp.WithHeader("Retry-After", strconv.FormatInt(retryAfter, 10))
		} else {
			resp = next(c)
			if resp == nil {
				resp = common.NewResponse(http.StatusOK)
			}
		}

		resp.WithHeader("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		resp.WithHeader("X-RateLimit-Remaining", strconv.Itoa(remaining))
		resp.WithHeader("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
		return resp
	}
}

// Throttler paces requests with leaky buckets from go.uber.org/ratelimit.
// Unlike the rate limiters above it never rejects: requests wait for their turn.
type Throttler struct {
	rps      int
	limiters sync.Map // map[string]ratelimit.Limiter
	mu       sync.Mutex
}

// NewThrottler creates a throttler allowing rps requests per second per key.
func NewThrottler(rps int) *Throttler {
	if rps < 1 {
		rps = 1
	}
	return &Throttler{rps: rps}
}

// getLimiter gets or creates a limiter for the given key
func (t *Throttler) getLimiter(key string) ratelimit.Limiter {
	if limiter, ok := t.limiters.Load(key); ok {
		return limiter.(ratelimit.Limiter)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring lock
	if limiter, ok := t.limiters.Load(key); ok {
		return limiter.(ratelimit.Limiter)
	}

	limiter := ratelimit.New(t.rps)
	t.limiters.Store(key, limiter)
	return limiter
}

// Middleware returns the pacing middleware. keyFunc selects the bucket;
// nil puts every request in one bucket.
func (t *Throttler) Middleware(keyFunc func(*common.Context) string) Middleware {
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		key := ""
		if keyFunc != nil {
			key = keyFunc(c)
		}
		t.getLimiter(key).Take()
		return next(c)
	}
}

// Throttle paces all requests to at most rps per second.
func Throttle(rps int) Middleware {
	return NewThrottler(rps).Middleware(nil)
}

// extractUser returns the JWT subject of the request, or "".
func extractUser(c *common.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Subject
	}
	return ""
}
