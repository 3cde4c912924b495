package opshttp

import (
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/go-chi/httprate"
)

// RegisterPprof mounts the runtime profiling handlers under /debug/pprof/.
// perMinute > 0 caps requests per peer address; CPU profiles and traces are
// expensive enough that a looping scraper can hurt the public listener.
func RegisterPprof(mux *http.ServeMux, perMinute int) {
	pp := http.NewServeMux()
	pp.HandleFunc("/debug/pprof/", pprof.Index)
	pp.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	pp.HandleFunc("/debug/pprof/profile", pprof.Profile)
	pp.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	pp.HandleFunc("/debug/pprof/trace", pprof.Trace)

	var h http.Handler = pp
	if perMinute > 0 {
		h = httprate.Limit(perMinute, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "pprof rate limit exceeded", http.StatusTooManyRequests)
			}),
		)(h)
	}
	mux.Handle("/debug/pprof/", h)
}
