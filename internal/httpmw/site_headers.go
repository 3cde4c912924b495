package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// SiteInfo describes the embedded site build being served.
type SiteInfo interface {
	SiteVersion() string
	SiteHash() string
}

// SiteHeaders adds X-Site-Version and a short X-Site-Hash to every response
// and tags the active span with the same values.
func SiteHeaders(info SiteInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		version, hash := info.SiteVersion(), info.SiteHash()
		short := hash
		if len(short) > 12 {
			short = short[:12]
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if version != "" {
				w.Header().Set("X-Site-Version", version)
			}
			if short != "" {
				w.Header().Set("X-Site-Hash", short)
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("site.version", version),
					attribute.String("site.hash", hash),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}
