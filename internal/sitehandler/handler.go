package sitehandler

import (
	"io"
	"io/fs"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	opts Options
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.SiteFS == nil || !existsFile(opts.SiteFS, opts.IndexFile) {
		opts.SiteFS = nil
	}
	return &Handler{opts: *opts}, nil
}

// Ready reports whether a site bundle is being served rather than the maintenance page.
func (h *Handler) Ready() bool { return h.opts.SiteFS != nil }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if h.opts.SiteFS == nil {
		h.serveMaintenance(w, r)
		return
	}

	res := resolvePath(r.URL.Path, h.opts.SiteFS, h.opts.IndexFile, !h.opts.DisableSPAFallback)
	if res.redirectTo != "" {
		// 308 keeps the method
		http.Redirect(w, r, res.redirectTo, http.StatusPermanentRedirect)
		return
	}
	if !res.found {
		h.serveNotFound(w, r)
		return
	}

	if res.spa {
		if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
			span.SetAttributes(attribute.Bool("site.spa_fallback", true))
		}
	}

	if cc := cacheControlForFile(res.file, &h.opts); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	serveFile(w, r, h.opts.SiteFS, res.file)
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	if existsFile(h.opts.SiteFS, h.opts.Site404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.SiteFS, h.opts.Site404File)
		return
	}
	if existsFile(h.opts.FallbackFS, h.opts.Fallback404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.Fallback404File)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

// serveFile serves name from fsys. http.ServeFileFS redirects any path ending
// in /index.html to its directory, so files are opened directly instead.
func serveFile(w http.ResponseWriter, r *http.Request, fsys fs.FS, name string) {
	f, err := fsys.Open(name)
	if err != nil {
		http.Error(w, "404 page not found", http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		http.Error(w, "500 internal server error", http.StatusInternalServerError)
		return
	}
	rs, ok := f.(io.ReadSeeker)
	if !ok {
		http.ServeFileFS(w, r, fsys, name)
		return
	}
	http.ServeContent(w, r, info.Name(), info.ModTime(), rs)
}

// statusOverrideWriter forces the first WriteHeader to status so a file can
// be served as a 404 or 503
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func (w *statusOverrideWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(w.status)
	}
	return w.ResponseWriter.Write(b)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	sw := &statusOverrideWriter{ResponseWriter: w, status: status}
	// drop conditional headers so a 304 never replaces the error page
	r2 := r.Clone(r.Context())
	r2.Header.Del("If-Modified-Since")
	r2.Header.Del("If-None-Match")
	r2.Header.Del("Range")
	serveFile(sw, r2, fsys, name)
}
