package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// UnknownClientIP is stored when the caller address cannot be determined.
const UnknownClientIP = "unknown"

type clientIPKey struct{}

// ClientIPOptions configures client IP extraction.
type ClientIPOptions struct {
	// TrustedHops is the number of reverse proxies in front of the server.
	// 0 ignores X-Forwarded-For, 1 takes the rightmost entry (single proxy such
	// as Cloudflare tunnel or Traefik), 2 the second from the right, and so on.
	// Forwarded headers are only honoured when the direct peer is a private address.
	TrustedHops int
}

// ClientIP resolves the caller address with no trusted proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions returns middleware that resolves the caller address and
// stores it in the request context for the rate limiters and logger.
func ClientIPWithOptions(opts ClientIPOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := resolveClientIP(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

func stripForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

// resolveClientIP returns the peer IP, or the Nth-from-right X-Forwarded-For
// entry when the peer is one of our private proxies. Headers that are not
// trusted are removed so nothing downstream reads them by accident.
func resolveClientIP(r *http.Request, trustedHops int) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, accept it only if it is a bare IP
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)
	if peer == nil {
		stripForwarded(r)
		return UnknownClientIP
	}

	if trustedHops <= 0 || !(peer.IsPrivate() || peer.IsLoopback()) {
		stripForwarded(r)
		return peer.String()
	}

	xff := r.Header.Get("X-Forwarded-For")
	if xff == "" {
		return peer.String()
	}
	parts := strings.Split(xff, ",")
	idx := len(parts) - trustedHops
	if idx < 0 {
		// fewer entries than proxies, misconfigured or spoofed. fail closed
		stripForwarded(r)
		return peer.String()
	}
	if ip := net.ParseIP(strings.TrimSpace(parts[idx])); ip != nil {
		return ip.String()
	}
	return peer.String()
}

// ClientIPFromContext returns the resolved client IP or "" when unset.
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// WithClientIP stores ip in ctx. Empty values are not stored.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
