package opshttp

import (
	"net/http"

	"github.com/keithlinneman/ntek-web/internal/health"
)

// Options configures the admin listener. It never carries public routes.
type Options struct {
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	// PprofPerMinute limits pprof requests per peer, 0 disables the limit
	PprofPerMinute int
	Health      health.Probe
	Readiness   health.Probe
	// OnPanic runs after a recovered panic, e.g. to bump a counter
	OnPanic func()
}
