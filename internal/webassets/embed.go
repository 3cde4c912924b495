// Package webassets embeds the built marketing site and the fallback pages
// served when the site is missing or a path does not exist.
package webassets

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"sort"

	"github.com/keithlinneman/ntek-web/internal/version"
)

// site/ is replaced by the frontend build output at release time.
// Both directories must hold at least one file to satisfy go:embed.
//
//go:embed site fallback
var embedded embed.FS

func FallbackFS() fs.FS {
	sub, err := fs.Sub(embedded, "fallback")
	if err != nil {
		panic(fmt.Errorf("webassets: fallback subfs: %w", err))
	}
	return sub
}

// Bundle is the embedded site plus identifying metadata for response headers.
type Bundle struct {
	FS      fs.FS
	version string
	hash    string
	files   int
}

func (b *Bundle) SiteVersion() string { return b.version }
func (b *Bundle) SiteHash() string    { return b.hash }
func (b *Bundle) Files() int          { return b.files }

// Site returns the embedded site bundle. ok is false when the build output
// is missing index.html, in which case callers serve the maintenance page.
func Site() (*Bundle, bool, error) {
	sub, err := fs.Sub(embedded, "site")
	if err != nil {
		return nil, false, err
	}
	return NewBundle(sub, version.Version)
}

// NewBundle hashes fsys and wraps it as a Bundle.
func NewBundle(fsys fs.FS, ver string) (*Bundle, bool, error) {
	if _, err := fs.Stat(fsys, "index.html"); err != nil {
		return nil, false, nil
	}
	hash, n, err := HashFS(fsys)
	if err != nil {
		return nil, false, err
	}
	return &Bundle{FS: fsys, version: ver, hash: hash, files: n}, true, nil
}

// HashFS returns a sha256 over every regular file's path and content in
// lexical order, and the number of files hashed.
func HashFS(fsys fs.FS) (string, int, error) {
	var names []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return "", 0, fmt.Errorf("webassets: walk: %w", err)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		f, err := fsys.Open(name)
		if err != nil {
			return "", 0, fmt.Errorf("webassets: open %s: %w", name, err)
		}
		_, _ = io.WriteString(h, name)
		h.Write([]byte{0})
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", 0, fmt.Errorf("webassets: read %s: %w", name, err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), len(names), nil
}
