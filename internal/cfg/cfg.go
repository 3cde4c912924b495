package cfg

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/keithlinneman/ntek-web/internal/httpserver"
	"github.com/keithlinneman/ntek-web/internal/log"
)

// EnvPrefix is prepended to every flag name when reading the environment.
const EnvPrefix = "NTEK_"

type App struct {
	LogJSON         bool
	LogLevel        string
	HTTPPort        int
	AdminPort       int
	EnablePprof     bool
	PprofPerMinute  int
	EnablePyroscope bool
	EnableTracing   bool
	PyroServer      string
	PyroTenantID    string
	OTLPEndpoint    string
	TraceSample     float64
	StacktraceLevel string
	MaxErrorLinks   int
	DrainPeriod     time.Duration

	// client identity
	TrustedHops int

	// contact form limiter
	ContactWindow        time.Duration
	ContactMax           int
	ContactMessage       string
	ContactSweepInterval time.Duration

	// site-wide flood guard
	SiteRatePerSecond float64
	SiteRateBurst     int
	SiteRateTTL       time.Duration
	SiteMaxVisitors   int

	// outbound mail
	ResendAPIKey         string
	ResendAPIKeySSMParam string
	ResendEndpoint       string
	MailFrom             string
	MailTo               string
	MailTimeout          time.Duration
	MailDryRun           bool
}

// Register binds all config fields to the given FlagSet with defaults inline
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.IntVar(&c.HTTPPort, "http-port", 5000, "listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "admin listen TCP port (1..65535)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "Enable pprof profiling (on admin port only)")
	fs.IntVar(&c.PprofPerMinute, "pprof-rate-limit", 30, "pprof requests per minute per peer (0 disables the limit)")
	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "Enable OTLP tracing and push to otlp-endpoint")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "Enable pushing Pyroscope data to server set in -pyro-server")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth in logs (0 disables, up to 64)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url to push to")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "tenant (x-scope-orgid) to use for pyro-server")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP endpoint to push to (gRPC) (host:port)")
	fs.DurationVar(&c.DrainPeriod, "drain-period", 5*time.Second, "time to report not-ready before shutting listeners down")

	fs.IntVar(&c.TrustedHops, "trusted-hops", 1, "reverse proxies in front of the server whose X-Forwarded-For entries are trusted (0 ignores the header)")

	fs.DurationVar(&c.ContactWindow, "contact-window", 15*time.Minute, "contact form rate limit window")
	fs.IntVar(&c.ContactMax, "contact-max", 5, "contact form requests allowed per client per window")
	fs.StringVar(&c.ContactMessage, "contact-message", "Too many contact requests from this IP, please try again after 15 minutes.", "message returned when the contact form limit is hit")
	fs.DurationVar(&c.ContactSweepInterval, "contact-sweep-interval", 10*time.Minute, "how often expired contact limiter entries are removed")

	fs.Float64Var(&c.SiteRatePerSecond, "site-rate", 10, "site-wide requests per second per client (token refill rate)")
	fs.IntVar(&c.SiteRateBurst, "site-burst", 40, "site-wide burst per client")
	fs.DurationVar(&c.SiteRateTTL, "site-rate-ttl", 5*time.Minute, "evict idle site limiter entries after this long")
	fs.IntVar(&c.SiteMaxVisitors, "site-max-visitors", 100000, "max clients tracked by the site-wide limiter")

	fs.StringVar(&c.ResendAPIKey, "resend-api-key", "", "Resend API key (takes precedence over resend-api-key-ssm-param)")
	fs.StringVar(&c.ResendAPIKeySSMParam, "resend-api-key-ssm-param", "", "ssm SecureString parameter holding the Resend API key")
	fs.StringVar(&c.ResendEndpoint, "resend-endpoint", "https://api.resend.com/emails", "Resend send-email endpoint")
	fs.StringVar(&c.MailFrom, "mail-from", "onboarding@resend.dev", "sender address for contact form mail")
	fs.StringVar(&c.MailTo, "mail-to", "", "recipient for contact form mail (defaults to mail-from)")
	fs.DurationVar(&c.MailTimeout, "mail-timeout", 10*time.Second, "timeout for a single mail send (must be below the http write timeout)")
	fs.BoolVar(&c.MailDryRun, "mail-dry-run", false, "log contact mail instead of failing when no Resend API key is configured (development only)")
}

// FillFromEnv sets any flag not explicitly passed on the CLI from
// environment variables. Flag "foo-bar" maps to PREFIX_FOO_BAR.
// Precedence: cli flag > env var > default.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := prefix + strings.ReplaceAll(strings.ToUpper(f.Name), "-", "_")
		envVal, envSet := os.LookupEnv(key)
		if !envSet {
			return
		}
		if explicit[f.Name] {
			if logf != nil {
				// never echo secret values
				logf("flag -%s: cli value overrides env %s", f.Name, key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, envVal); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

// Recipient returns MailTo, falling back to MailFrom.
func (c App) Recipient() string {
	if c.MailTo != "" {
		return c.MailTo
	}
	return c.MailFrom
}

// Validate checks that config values are within expected ranges and formats.
// Returns an error describing all invalid fields, or nil if all valid.
func Validate(c App) error {
	var errs []error

	// Ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort))
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort))
	}
	if c.AdminPort == c.HTTPPort {
		errs = append(errs, fmt.Errorf("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort))
	}

	if c.PprofPerMinute < 0 {
		errs = append(errs, fmt.Errorf("PPROF_RATE_LIMIT must not be negative (got %d)", c.PprofPerMinute))
	}

	// Log levels
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL %q: %w", c.StacktraceLevel, err))
		}
	}
	if c.MaxErrorLinks < 0 || c.MaxErrorLinks > 64 {
		errs = append(errs, fmt.Errorf("MAX_ERROR_LINKS must be 0..64 (got %d)", c.MaxErrorLinks))
	}

	// Tracing sample
	if c.TraceSample < 0 || c.TraceSample > 1 {
		errs = append(errs, fmt.Errorf("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample))
	}

	// Pyroscope
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER required when ENABLE_PYROSCOPE=true"))
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("PYRO_SERVER must be a URL (got %q)", c.PyroServer))
		}
		if c.PyroTenantID == "" {
			errs = append(errs, fmt.Errorf("PYRO_TENANT required when ENABLE_PYROSCOPE=true"))
		}
	}

	// OTLP tracing (grpc exporter wants host:port, no scheme)
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT required when ENABLE_TRACING=true"))
		} else if _, _, err := net.SplitHostPort(c.OTLPEndpoint); err != nil {
			errs = append(errs, fmt.Errorf("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err))
		}
	}

	if c.DrainPeriod < 0 {
		errs = append(errs, fmt.Errorf("DRAIN_PERIOD must not be negative (got %s)", c.DrainPeriod))
	}
	if c.TrustedHops < 0 || c.TrustedHops > 8 {
		errs = append(errs, fmt.Errorf("TRUSTED_HOPS must be 0..8 (got %d)", c.TrustedHops))
	}

	// Contact limiter
	if c.ContactWindow <= 0 {
		errs = append(errs, fmt.Errorf("CONTACT_WINDOW must be positive (got %s)", c.ContactWindow))
	}
	if c.ContactMax < 1 {
		errs = append(errs, fmt.Errorf("CONTACT_MAX must be at least 1 (got %d)", c.ContactMax))
	}
	if strings.TrimSpace(c.ContactMessage) == "" {
		errs = append(errs, fmt.Errorf("CONTACT_MESSAGE must not be empty"))
	}
	if c.ContactSweepInterval <= 0 {
		errs = append(errs, fmt.Errorf("CONTACT_SWEEP_INTERVAL must be positive (got %s)", c.ContactSweepInterval))
	}

	// Site limiter
	if c.SiteRatePerSecond <= 0 {
		errs = append(errs, fmt.Errorf("SITE_RATE must be positive (got %g)", c.SiteRatePerSecond))
	}
	if c.SiteRateBurst < 1 {
		errs = append(errs, fmt.Errorf("SITE_BURST must be at least 1 (got %d)", c.SiteRateBurst))
	}
	if c.SiteRateTTL <= 0 {
		errs = append(errs, fmt.Errorf("SITE_RATE_TTL must be positive (got %s)", c.SiteRateTTL))
	}
	if c.SiteMaxVisitors < 1 {
		errs = append(errs, fmt.Errorf("SITE_MAX_VISITORS must be at least 1 (got %d)", c.SiteMaxVisitors))
	}

	// Mail
	if _, err := mail.ParseAddress(c.MailFrom); err != nil {
		errs = append(errs, fmt.Errorf("MAIL_FROM must be an email address (got %q)", c.MailFrom))
	}
	if c.MailTo != "" {
		if _, err := mail.ParseAddress(c.MailTo); err != nil {
			errs = append(errs, fmt.Errorf("MAIL_TO must be an email address (got %q)", c.MailTo))
		}
	}
	if u, err := url.Parse(c.ResendEndpoint); err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		errs = append(errs, fmt.Errorf("RESEND_ENDPOINT must be an http(s) URL (got %q)", c.ResendEndpoint))
	}
	if c.MailTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MAIL_TIMEOUT must be positive (got %s)", c.MailTimeout))
	}
	// the send runs inside the request, so it has to finish before the
	// server abandons the response
	if c.MailTimeout >= httpserver.DefaultWriteTimeout {
		errs = append(errs, fmt.Errorf("MAIL_TIMEOUT must be below the http write timeout of %s (got %s)",
			httpserver.DefaultWriteTimeout, c.MailTimeout))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
