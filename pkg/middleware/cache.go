package middleware

import (
	"net/http"
	"time"

	"github.com/Suhaibinator/ree/pkg/common"
	lru "github.com/hashicorp/golang-lru"
)

// CacheStatusHeader reports HIT or MISS on responses passing through ResponseCache.
const CacheStatusHeader = "X-Cache"

// ResponseCache caches successful GET responses in memory.
type ResponseCache struct {
	cache *lru.Cache
	ttl   time.Duration
}

type cachedResponse struct {
	resp      *common.Response
	createdAt time.Time
}

// NewResponseCache creates a cache holding at most size responses, each valid for ttl.
func NewResponseCache(size int, ttl time.Duration) (*ResponseCache, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &ResponseCache{cache: cache, ttl: ttl}, nil
}

// Len returns the number of cached responses.
func (rc *ResponseCache) Len() int {
	return rc.cache.Len()
}

// Purge drops every cached response.
func (rc *ResponseCache) Purge() {
	rc.cache.Purge()
}

// DefaultCacheKey keys responses by path and raw query.
func DefaultCacheKey(c *common.Context) string {
	return c.Path() + "?" + c.Request.URL.RawQuery
}

// Middleware returns the caching middleware.
// Only GET requests are cached, and only 2xx responses are stored. A cached
// response is returned without calling the rest of the chain until it is
// older than the ttl. keyFunc may return "" to bypass the cache; nil uses
// DefaultCacheKey.
func (rc *ResponseCache) Middleware(keyFunc func(*common.Context) string) Middleware {
	if keyFunc == nil {
		keyFunc = DefaultCacheKey
	}

	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		if c.Method() != http.MethodGet {
			return next(c)
		}

		key := keyFunc(c)
		if key == "" {
			return next(c)
		}

		if value, ok := rc.cache.Get(key); ok {
			entry := value.(*cachedResponse)
			if time.Since(entry.createdAt) <= rc.ttl {
				return entry.resp.Clone().WithHeader(CacheStatusHeader, "HIT")
			}
			rc.cache.Remove(key)
		}

		resp := next(c)
		status := statusOf(resp)
		if resp != nil && status >= 200 && status < 300 {
			rc.cache.Add(key, &cachedResponse{
				resp:      resp.Clone(),
				createdAt: time.Now(),
			})
		}
		if resp == nil {
			return resp
		}
		return resp.WithHeader(CacheStatusHeader, "MISS")
	}
}

// Cache creates a response cache middleware with the default key.
// It panics if size is not positive.
func Cache(size int, ttl time.Duration) Middleware {
	rc, err := NewResponseCache(size, ttl)
	if err != nil {
		panic(err)
	}
	return rc.Middleware(nil)
}
