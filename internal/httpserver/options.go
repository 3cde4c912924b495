package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/ntek-web/internal/health"
	"github.com/keithlinneman/ntek-web/internal/httpmw"
	"github.com/keithlinneman/ntek-web/internal/log"
)

// RouteRegistrar attaches a group of routes to the public router.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func() // called after a recovered panic, e.g. to bump a counter
	MetricsMW    func(http.Handler) http.Handler
	// RateLimitMW is the site-wide flood guard, applied to every request after client IP resolution
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	Health       health.Probe
	Readiness    health.Probe
	SiteInfo     httpmw.SiteInfo // X-Site-Version and X-Site-Hash headers
	// Routes are registered in order after the health endpoints; the
	// registrar owning the site fallback goes last
	Routes []RouteRegistrar
}
