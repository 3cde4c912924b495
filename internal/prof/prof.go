// Package prof pushes continuous profiles to a Pyroscope server.
package prof

import (
	"context"
	"runtime"
	"sync"

	"github.com/grafana/pyroscope-go"

	"github.com/keithlinneman/ntek-web/internal/log"
	"github.com/keithlinneman/ntek-web/internal/version"
	"github.com/keithlinneman/ntek-web/internal/xerrors"
)

type Options struct {
	Enabled       bool
	AppName       string
	ServerAddress string
	AuthToken     string
	TenantID      string
	Tags          map[string]string
	// runtime sampling, 0 leaves the Go defaults (off)
	ProfileMutexFraction int
	BlockProfileRate     int
	// OnState reports whether the profiler is running, e.g. for a gauge
	OnState func(active bool)
}

// DefaultTags labels profiles with the build so flame graphs can be compared across releases.
func DefaultTags(component string, vi version.Info) map[string]string {
	tags := map[string]string{
		"app":       version.AppName,
		"component": component,
		"version":   vi.Version,
		"commit":    vi.Commit,
		"source":    "go-agent",
	}
	if vi.BuildId != "" {
		tags["build_id"] = vi.BuildId
	}
	return tags
}

func profileTypes(opts Options) []pyroscope.ProfileType {
	types := []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocObjects,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileInuseObjects,
		pyroscope.ProfileInuseSpace,
		pyroscope.ProfileGoroutines,
	}
	if opts.ProfileMutexFraction > 0 {
		types = append(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
	}
	if opts.BlockProfileRate > 0 {
		types = append(types, pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration)
	}
	return types
}

// Start begins profiling when enabled. The returned stop is never nil and
// may be called more than once.
func Start(ctx context.Context, opts Options) (func(), error) {
	L := log.FromContext(ctx)
	setState := func(active bool) {
		if opts.OnState != nil {
			opts.OnState(active)
		}
	}
	noop := func() {}

	if !opts.Enabled {
		L.Info(ctx, "pyroscope disabled")
		setState(false)
		return noop, nil
	}
	if opts.ServerAddress == "" {
		setState(false)
		return noop, xerrors.Newf("invalid server address (%q)", opts.ServerAddress)
	}

	if opts.ProfileMutexFraction > 0 {
		runtime.SetMutexProfileFraction(opts.ProfileMutexFraction)
	}
	if opts.BlockProfileRate > 0 {
		runtime.SetBlockProfileRate(opts.BlockProfileRate)
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: opts.AppName,
		ServerAddress:   opts.ServerAddress,
		AuthToken:       opts.AuthToken,
		TenantID:        opts.TenantID,
		Tags:            opts.Tags,
		ProfileTypes:    profileTypes(opts),
	})
	if err != nil {
		setState(false)
		return noop, xerrors.Wrap(err, "pyroscope start")
	}

	setState(true)
	L.Info(ctx, "pyroscope started",
		"server_address", opts.ServerAddress,
		"app_name", opts.AppName,
	)

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := profiler.Stop(); err != nil {
				L.Warn(context.Background(), "pyroscope stop", "error", err.Error())
			}
			setState(false)
			L.Info(context.Background(), "pyroscope stopped", "server_address", opts.ServerAddress)
		})
	}, nil
}
