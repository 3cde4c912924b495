package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/ntek-web/internal/log"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type Options struct {
	Logger log.Logger
	// SiteFS is the built site. nil serves the maintenance page for every request.
	SiteFS fs.FS
	// FallbackFS holds the maintenance page and a plain 404 page
	FallbackFS fs.FS

	IndexFile       string // default: "index.html"
	Site404File     string // default: "404.html", read from SiteFS
	MaintenanceFile string // default: "maintenance.html", read from FallbackFS
	Fallback404File string // default: "404.html", read from FallbackFS

	// DisableSPAFallback turns extensionless misses into 404s instead of
	// serving IndexFile for client-side routing.
	DisableSPAFallback bool

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.IndexFile == "" {
		o.IndexFile = "index.html"
	}
	if o.Site404File == "" {
		o.Site404File = "404.html"
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	// fail fast on boot if mispackaged
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	return nil
}
