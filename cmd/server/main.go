package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keithlinneman/ntek-web/internal/cfg"
	"github.com/keithlinneman/ntek-web/internal/contact"
	"github.com/keithlinneman/ntek-web/internal/health"
	"github.com/keithlinneman/ntek-web/internal/httpmw"
	"github.com/keithlinneman/ntek-web/internal/httpserver"
	"github.com/keithlinneman/ntek-web/internal/log"
	"github.com/keithlinneman/ntek-web/internal/mail"
	"github.com/keithlinneman/ntek-web/internal/metrics"
	"github.com/keithlinneman/ntek-web/internal/opshttp"
	"github.com/keithlinneman/ntek-web/internal/otelx"
	"github.com/keithlinneman/ntek-web/internal/prof"
	"github.com/keithlinneman/ntek-web/internal/ratelimit"
	"github.com/keithlinneman/ntek-web/internal/secrets"
	"github.com/keithlinneman/ntek-web/internal/sitehandler"
	"github.com/keithlinneman/ntek-web/internal/sitehttp"
	"github.com/keithlinneman/ntek-web/internal/webassets"
	v "github.com/keithlinneman/ntek-web/internal/version"
)

func main() {
	// ctx lives until main returns; background goroutines (limiter sweeps) stop with it
	ctx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf(
			"%s %s (commit=%s, commit_date=%s, build_id=%s, build_date=%s, go=%s, dirty=%v)\n",
			v.AppName, vi.Version, vi.Commit, vi.CommitDate, vi.BuildId, vi.BuildDate, vi.GoVersion,
			vi.VCSDirty != nil && *vi.VCSDirty,
		)
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Validate already checked both levels
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:             v.AppName,
		Version:         vi.Version,
		Commit:          vi.Commit,
		Level:           lvl,
		StacktraceLevel: stackLvl,
		JSON:            conf.LogJSON,
		MaxErrorLinks:   conf.MaxErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	// secrets are never logged, only whether they are set
	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"commit_date", vi.CommitDate,
		"build_id", vi.BuildId,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"vcs_dirty", vi.VCSDirty,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"trusted_hops", conf.TrustedHops,
		"contact_window", conf.ContactWindow.String(),
		"contact_max", conf.ContactMax,
		"site_rate", conf.SiteRatePerSecond,
		"site_burst", conf.SiteRateBurst,
		"mail_from", conf.MailFrom,
		"mail_to", conf.Recipient(),
		"resend_api_key_set", conf.ResendAPIKey != "",
		"resend_api_key_ssm_param", conf.ResendAPIKeySSMParam,
	)

	m := metrics.New()
	m.SetBuildInfo(v.AppName, "server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags:          prof.DefaultTags("server", vi),
		OnState:       m.SetProfilingActive,
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	defer stopProf()

	// Insecure: the collector runs on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// outbound mail: Resend when a key is available, otherwise every send fails
	// unless dry-run was asked for explicitly
	apiKey, keySource, err := secrets.LoadResendKey(ctx, secrets.Options{
		APIKey:   conf.ResendAPIKey,
		SSMParam: conf.ResendAPIKeySSMParam,
		Logger:   L,
	})
	if err != nil {
		L.Error(ctx, err, "failed to load Resend API key", "ssm_param", conf.ResendAPIKeySSMParam)
		os.Exit(1)
	}
	var sender mail.Sender
	switch {
	case apiKey != "":
		sender = mail.Instrument(
			mail.NewResend(apiKey,
				mail.WithEndpoint(conf.ResendEndpoint),
				mail.WithTimeout(conf.MailTimeout),
			),
			m.ObserveMailSend,
		)
		L.Info(ctx, "mail delivery via Resend", "key_source", string(keySource), "endpoint", conf.ResendEndpoint)
	case conf.MailDryRun:
		sender = mail.LogSender{L: L.With("component", "mail")}
		L.Warn(ctx, "mail dry run enabled, contact submissions will only be logged")
	default:
		sender = mail.Instrument(mail.Disabled{}, m.ObserveMailSend)
		L.Warn(ctx, "no Resend API key configured, contact submissions will fail")
	}

	// site content
	site, haveSite, err := webassets.Site()
	if err != nil {
		L.Error(ctx, err, "failed to hash embedded site")
		os.Exit(1)
	}
	siteOpts := &sitehandler.Options{
		Logger:     L,
		FallbackFS: webassets.FallbackFS(),
	}
	var siteInfo httpmw.SiteInfo
	if haveSite {
		siteOpts.SiteFS = site.FS
		siteInfo = site
		L.Info(ctx, "loaded embedded site",
			"site_version", site.SiteVersion(),
			"site_hash", site.SiteHash(),
			"files", site.Files(),
		)
	} else {
		L.Warn(ctx, "no embedded site build, serving maintenance page")
	}
	siteHandler, err := sitehandler.New(siteOpts)
	if err != nil {
		L.Error(ctx, err, "failed to create site handler")
		os.Exit(1)
	}

	var gate health.ShutdownGate
	readiness := health.All(
		gate.Probe(),
		health.Named("site", health.CheckFunc(func(context.Context) error {
			if !siteHandler.Ready() {
				return fmt.Errorf("no site content")
			}
			return nil
		})),
	)

	// contact form: fixed window per client ip
	contactLimiter := ratelimit.NewWindow(ctx,
		ratelimit.WithWindow(conf.ContactWindow),
		ratelimit.WithMax(conf.ContactMax),
		ratelimit.WithMessage(conf.ContactMessage),
		ratelimit.WithSweepInterval(conf.ContactSweepInterval),
		ratelimit.WithWindowOnDenied(func(string) {
			m.IncRateLimitDenied(metrics.LimiterContact)
		}),
		ratelimit.WithWindowOnFirstDenied(func(ip string, d ratelimit.Decision) {
			L.Warn(ctx, "contact rate limit triggered",
				"client.address", ip,
				"limit", d.Limit,
				"reset_at", d.ResetAt,
			)
		}),
		ratelimit.WithOnSweep(func(removed, remaining int) {
			m.ObserveSweep(removed, remaining)
			if removed > 0 {
				L.Debug(ctx, "contact limiter sweep", "removed", removed, "remaining", remaining)
			}
		}),
	)

	// site-wide token bucket per client ip
	siteLimiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.SiteRatePerSecond, conf.SiteRateBurst),
		ratelimit.WithTTL(conf.SiteRateTTL),
		ratelimit.WithMaxVisitors(conf.SiteMaxVisitors),
		ratelimit.WithOnDenied(func(string) {
			m.IncRateLimitDenied(metrics.LimiterSite)
		}),
		// logged once per visitor until it is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "site rate limit triggered", "client.address", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted")
		}),
		ratelimit.WithOnCleanup(func(remaining int) {
			m.SetRateLimitClients(metrics.LimiterSite, remaining)
		}),
	)

	contactHandler := contact.New(contact.Options{
		Sender:      sender,
		From:        conf.MailFrom,
		To:          conf.Recipient(),
		SendTimeout: conf.MailTimeout,
		Metrics:     m,
	})

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  siteLimiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		SiteInfo:     siteInfo,
		Routes: []httpserver.RouteRegistrar{
			// limiter runs before the body cap so oversized floods still count
			sitehttp.New(siteHandler, contactHandler,
				httpmw.Scope("contact"),
				contactLimiter.Middleware,
				httpmw.MaxBody(contact.MaxBodyBytes),
			),
		},
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener rejects public peers in middleware in case the
	// security group is ever misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, opshttp.Options{
		Port:           conf.AdminPort,
		Metrics:        m.Handler(),
		EnablePprof:    conf.EnablePprof,
		PprofPerMinute: conf.PprofPerMinute,
		Health:         health.Fixed(true, ""),
		Readiness:      readiness,
		OnPanic:        m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		// systemd kills us after its start timeout if this mattered
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	<-sigCtx.Done()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness so the proxy stops routing here, then let in-flight requests finish
	gate.Set("draining")
	if conf.DrainPeriod > 0 {
		L.Info(context.Background(), "draining", "period", conf.DrainPeriod.String())
		forceCh := make(chan os.Signal, 1)
		signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-time.After(conf.DrainPeriod):
			L.Info(context.Background(), "drain period complete")
		case <-forceCh:
			L.Warn(context.Background(), "second signal received, skipping drain")
		}
		signal.Stop(forceCh)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "ops http server shutdown")
	}

	// stops limiter sweeps
	cancelRun()

	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(context.Background(), err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

// notifySystemd sends READY=1 when started under a Type=notify unit.
func notifySystemd() error {
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return nil
}
