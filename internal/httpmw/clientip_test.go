package httpmw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResolveClientIP(t *testing.T) {
	tests := []struct {
		name        string
		remoteAddr  string
		xff         string
		trustedHops int
		want        string
		wantXFF     bool
	}{
		{name: "public peer, no proxies", remoteAddr: "203.0.113.10:5555", want: "203.0.113.10"},
		{name: "public peer ignores xff", remoteAddr: "203.0.113.10:5555", xff: "198.51.100.1", trustedHops: 1, want: "203.0.113.10"},
		{name: "private peer, hops=0 ignores xff", remoteAddr: "10.0.0.5:443", xff: "198.51.100.1", want: "10.0.0.5"},
		{name: "private peer, one hop", remoteAddr: "10.0.0.5:443", xff: "198.51.100.1", trustedHops: 1, want: "198.51.100.1", wantXFF: true},
		{name: "one hop takes rightmost", remoteAddr: "172.16.0.2:80", xff: "1.1.1.1, 198.51.100.9", trustedHops: 1, want: "198.51.100.9", wantXFF: true},
		{name: "two hops", remoteAddr: "192.168.1.1:80", xff: "6.6.6.6, 198.51.100.2, 10.0.0.9", trustedHops: 2, want: "198.51.100.2", wantXFF: true},
		{name: "too few entries fails closed", remoteAddr: "10.0.0.5:80", xff: "198.51.100.1", trustedHops: 3, want: "10.0.0.5"},
		{name: "garbage xff entry", remoteAddr: "10.0.0.5:80", xff: "not-an-ip", trustedHops: 1, want: "10.0.0.5", wantXFF: true},
		{name: "loopback peer trusted", remoteAddr: "127.0.0.1:9999", xff: "198.51.100.3", trustedHops: 1, want: "198.51.100.3", wantXFF: true},
		{name: "ipv6 peer", remoteAddr: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "bare ip without port", remoteAddr: "203.0.113.44", want: "203.0.113.44"},
		{name: "empty remote addr", remoteAddr: "", want: UnknownClientIP},
		{name: "malformed remote addr", remoteAddr: "nonsense:port", want: UnknownClientIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
				r.Header.Set("X-Forwarded-Proto", "https")
			}

			if got := resolveClientIP(r, tt.trustedHops); got != tt.want {
				t.Fatalf("resolveClientIP = %q, want %q", got, tt.want)
			}
			if hasXFF := r.Header.Get("X-Forwarded-For") != ""; hasXFF != tt.wantXFF {
				t.Fatalf("X-Forwarded-For present = %v, want %v", hasXFF, tt.wantXFF)
			}
		})
	}
}

func TestClientIPWithOptions_StoresInContext(t *testing.T) {
	var got string
	h := ClientIPWithOptions(ClientIPOptions{TrustedHops: 1})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodPost, "/api/contact", nil)
	r.RemoteAddr = "10.1.2.3:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.77")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got != "198.51.100.77" {
		t.Fatalf("client ip = %q, want 198.51.100.77", got)
	}
}

func TestClientIP_DefaultIgnoresForwarded(t *testing.T) {
	var got string
	h := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = ClientIPFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.77")
	h.ServeHTTP(httptest.NewRecorder(), r)

	if got != "10.1.2.3" {
		t.Fatalf("client ip = %q, want 10.1.2.3", got)
	}
}

func TestWithClientIP(t *testing.T) {
	ctx := WithClientIP(context.Background(), "203.0.113.50")
	if got := ClientIPFromContext(ctx); got != "203.0.113.50" {
		t.Fatalf("got %q", got)
	}
	if got := ClientIPFromContext(WithClientIP(context.Background(), "")); got != "" {
		t.Fatalf("empty ip should not be stored, got %q", got)
	}
}
