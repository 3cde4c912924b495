package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/ntek-web/internal/pathutil"
)

type resolution struct {
	file       string
	redirectTo string
	// spa is set when file is the index served for a client-side route
	spa   bool
	found bool
}

// resolvePath maps a URL path to a file within fsys.
// Paths with an extension must name a real file. Extensionless paths try
// <path>/index.html (redirecting to the slash form) and otherwise fall back
// to the index for client-side routing when spa is true.
func resolvePath(urlPath string, fsys fs.FS, index string, spa bool) resolution {
	p := urlPath
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if !pathutil.Safe(p) {
		return resolution{}
	}

	trailingSlash := strings.HasSuffix(p, "/")
	clean := path.Clean(p)
	if trailingSlash && clean != "/" {
		clean += "/"
	}

	if clean == "/" {
		if existsFile(fsys, index) {
			return resolution{file: index, found: true}
		}
		return resolution{}
	}

	// directory -> <dir>/index.html, else the SPA index
	if strings.HasSuffix(clean, "/") {
		name := strings.TrimPrefix(clean, "/") + index
		if existsFile(fsys, name) {
			return resolution{file: name, found: true}
		}
		return spaFallback(fsys, index, spa)
	}

	// missing assets must 404 rather than return HTML with a 200
	if path.Ext(clean) != "" {
		name := strings.TrimPrefix(clean, "/")
		if existsFile(fsys, name) {
			return resolution{file: name, found: true}
		}
		return resolution{}
	}

	dirIndex := strings.TrimPrefix(clean, "/") + "/" + index
	if existsFile(fsys, dirIndex) {
		return resolution{redirectTo: clean + "/", found: true}
	}
	return spaFallback(fsys, index, spa)
}

func spaFallback(fsys fs.FS, index string, spa bool) resolution {
	if spa && existsFile(fsys, index) {
		return resolution{file: index, spa: true, found: true}
	}
	return resolution{}
}

func existsFile(fsys fs.FS, name string) bool {
	if fsys == nil || name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
