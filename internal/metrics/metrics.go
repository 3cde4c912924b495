package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/ntek-web/internal/version"
)

// Limiter label values
const (
	LimiterSite    = "site"
	LimiterContact = "contact"
)

// Contact submission results
const (
	ContactSent    = "sent"
	ContactInvalid = "invalid"
	ContactFailed  = "failed"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter
	buildInfo      *prometheus.GaugeVec

	profilingActive prometheus.Gauge

	ratelimitDenied   *prometheus.CounterVec
	ratelimitCapacity prometheus.Counter
	ratelimitClients  *prometheus.GaugeVec
	ratelimitSwept    prometheus.Counter

	contactTotal *prometheus.CounterVec
	mailDuration *prometheus.HistogramVec
}

// New returns a fresh registry with Go/process collectors and the server metrics.
// Labels stay bounded (method, route, status, fixed enums) to avoid cardinality blowups.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304},
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		ratelimitDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by a rate limiter",
		}, []string{"limiter"}),
		ratelimitCapacity: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_capacity_reached_total",
			Help: "Times the site-wide limiter turned away a new client because it was full",
		}),
		ratelimitClients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ratelimit_tracked_clients",
			Help: "Clients currently tracked by a rate limiter",
		}, []string{"limiter"}),
		ratelimitSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ratelimit_swept_total",
			Help: "Expired contact limiter windows removed by the periodic sweep",
		}),
		contactTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by result (sent, invalid, failed)",
		}, []string{"result"}),
		mailDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mail_send_duration_seconds",
			Help:    "Time spent handing a message to the mail provider",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.buildInfo,
		m.profilingActive,
		m.ratelimitDenied,
		m.ratelimitCapacity,
		m.ratelimitClients,
		m.ratelimitSwept,
		m.contactTotal,
		m.mailDuration,
	)

	// pre-create label sets so dashboards see zeros before the first event
	for _, l := range []string{LimiterSite, LimiterContact} {
		m.ratelimitDenied.WithLabelValues(l)
		m.ratelimitClients.WithLabelValues(l)
	}
	for _, r := range []string{ContactSent, ContactInvalid, ContactFailed} {
		m.contactTotal.WithLabelValues(r)
	}

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry exposes the underlying registry for tests and extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

func (m *ServerMetrics) IncHttpPanic() { m.httpPanicTotal.Inc() }

// SetBuildInfo is called once at startup.
func (m *ServerMetrics) SetBuildInfo(app, component string, vi version.Info) {
	dirty := "unknown"
	if vi.VCSDirty != nil {
		dirty = strconv.FormatBool(*vi.VCSDirty)
	}
	m.buildInfo.With(prometheus.Labels{
		"app":        app,
		"component":  component,
		"version":    vi.Version,
		"commit":     vi.Commit,
		"build_date": vi.BuildDate,
		"go_version": vi.GoVersion,
		"vcs_dirty":  dirty,
	}).Set(1)
}

func (m *ServerMetrics) SetProfilingActive(active bool) {
	if active {
		m.profilingActive.Set(1)
	} else {
		m.profilingActive.Set(0)
	}
}

// IncRateLimitDenied counts a rejection by the named limiter (LimiterSite, LimiterContact).
func (m *ServerMetrics) IncRateLimitDenied(limiter string) {
	m.ratelimitDenied.WithLabelValues(limiter).Inc()
}

func (m *ServerMetrics) IncRateLimitCapacity() { m.ratelimitCapacity.Inc() }

func (m *ServerMetrics) SetRateLimitClients(limiter string, n int) {
	m.ratelimitClients.WithLabelValues(limiter).Set(float64(n))
}

// ObserveSweep records a contact limiter sweep.
func (m *ServerMetrics) ObserveSweep(removed, remaining int) {
	m.ratelimitSwept.Add(float64(removed))
	m.ratelimitClients.WithLabelValues(LimiterContact).Set(float64(remaining))
}

func (m *ServerMetrics) IncContact(result string) {
	m.contactTotal.WithLabelValues(result).Inc()
}

func (m *ServerMetrics) ObserveMailSend(seconds float64, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.mailDuration.WithLabelValues(result).Observe(seconds)
}
