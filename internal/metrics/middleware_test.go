package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RoutePatternLabel(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Post("/api/contact", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	h := m.Middleware(r)

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/contact", nil))
	}

	if got := testutil.ToFloat64(m.reqTotal.WithLabelValues("POST", "/api/contact", "429")); got != 3 {
		t.Fatalf("requests = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.inflight); got != 0 {
		t.Fatalf("inflight = %v after completion", got)
	}
}

func TestMiddleware_UnmatchedCollapses(t *testing.T) {
	m := New()
	h := m.Middleware(http.NotFoundHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-login.php", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/.env", nil))

	if got := testutil.ToFloat64(m.reqTotal.WithLabelValues("GET", unmatchedRoute, "404")); got != 2 {
		t.Fatalf("unmatched = %v, want 2", got)
	}
}

func TestMiddleware_Counts5xxAndBytes(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("GET", unmatchedRoute)); got != 1 {
		t.Fatalf("errors = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.respBytes); n != 1 {
		t.Fatalf("response size series = %d, want 1", n)
	}
}

func TestMiddleware_ImplicitOK(t *testing.T) {
	m := New()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hi"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(m.reqTotal.WithLabelValues("GET", unmatchedRoute, "200")); got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}
}
