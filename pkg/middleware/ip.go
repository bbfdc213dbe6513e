package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"github.com/Suhaibinator/ree/pkg/common"
)

// ClientIPKey is the Context key under which ClientIPMiddleware stores the
// client address.
const ClientIPKey = "client_ip"

// IPSource is a place a client address can be read from.
type IPSource int

const (
	// FromForwardedFor reads the leftmost address of X-Forwarded-For.
	FromForwardedFor IPSource = iota
	// FromRealIP reads X-Real-IP.
	FromRealIP
	// FromHeader reads the header named by IPConfig.Header.
	FromHeader
)

// IPConfig decides how the client address is resolved.
// Sources are tried in order and the first valid address wins. The peer
// address (RemoteAddr) is the last resort, and the only one used when
// TrustProxy is false, since proxy headers are client controlled.
type IPConfig struct {
	Sources    []IPSource
	Header     string
	TrustProxy bool
}

// DefaultIPConfig trusts X-Forwarded-For, then X-Real-IP.
func DefaultIPConfig() *IPConfig {
	return &IPConfig{
		Sources:    []IPSource{FromForwardedFor, FromRealIP},
		TrustProxy: true,
	}
}

// Resolve returns the client address of r as a bare IP, without port or brackets.
// Header values that are not IP addresses are skipped.
func (cfg *IPConfig) Resolve(r *http.Request) string {
	if cfg.TrustProxy {
		for _, src := range cfg.Sources {
			if addr, ok := parseAddr(cfg.headerValue(r, src)); ok {
				return addr
			}
		}
	}
	return peerAddr(r.RemoteAddr)
}

func (cfg *IPConfig) headerValue(r *http.Request, src IPSource) string {
	switch src {
	case FromForwardedFor:
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		return first
	case FromRealIP:
		return r.Header.Get("X-Real-IP")
	case FromHeader:
		if cfg.Header == "" {
			return ""
		}
		return r.Header.Get(cfg.Header)
	}
	return ""
}

// parseAddr accepts "ip", "ip:port" and "[ipv6]:port".
func parseAddr(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if host, _, err := net.SplitHostPort(v); err == nil {
		v = host
	}
	addr, err := netip.ParseAddr(strings.Trim(v, "[]"))
	if err != nil {
		return "", false
	}
	return addr.Unmap().String(), true
}

// peerAddr strips the port from RemoteAddr, keeping it as is when it does not parse.
func peerAddr(remote string) string {
	if addr, ok := parseAddr(remote); ok {
		return addr
	}
	return remote
}

// ClientIPMiddleware resolves the client address once per request and stores
// it in the Context under ClientIPKey. A nil config uses DefaultIPConfig.
func ClientIPMiddleware(config *IPConfig) Middleware {
	if config == nil {
		config = DefaultIPConfig()
	}
	return func(c *common.Context, next common.HandlerFunc) *common.Response {
		c.Set(ClientIPKey, config.Resolve(c.Request))
		return next(c)
	}
}

// ClientIP returns the address stored by ClientIPMiddleware, or resolves it
// with DefaultIPConfig when the middleware did not run.
func ClientIP(c *common.Context) string {
	if ip := c.GetString(ClientIPKey); ip != "" {
		return ip
	}
	return DefaultIPConfig().Resolve(c.Request)
}
