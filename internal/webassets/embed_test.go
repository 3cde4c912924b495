package webassets

import (
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"
)

func TestFallbackFS_Pages(t *testing.T) {
	fsys := FallbackFS()
	for _, name := range []string{"maintenance.html", "404.html"} {
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s is empty", name)
		}
	}
	data, _ := fs.ReadFile(fsys, "maintenance.html")
	if !strings.Contains(strings.ToLower(string(data)), "maintenance") {
		t.Fatal("maintenance.html doesn't mention maintenance")
	}
}

func TestSite_Embedded(t *testing.T) {
	b, ok, err := Site()
	if err != nil || !ok {
		t.Fatalf("Site() = %v, %v", ok, err)
	}
	if len(b.SiteHash()) != 64 {
		t.Fatalf("hash = %q", b.SiteHash())
	}
	if b.Files() < 1 {
		t.Fatalf("files = %d", b.Files())
	}
	if _, err := fs.Stat(b.FS, "assets/contact.js"); err != nil {
		t.Fatalf("contact.js missing: %v", err)
	}
}

func TestNewBundle_RequiresIndex(t *testing.T) {
	_, ok, err := NewBundle(fstest.MapFS{"about.html": {Data: []byte("x")}}, "v1")
	if ok || err != nil {
		t.Fatalf("ok=%v err=%v, want missing index", ok, err)
	}
}

func TestHashFS_Stable(t *testing.T) {
	a := fstest.MapFS{
		"index.html":     {Data: []byte("<h1>hi</h1>")},
		"assets/app.css": {Data: []byte("body{}")},
	}
	h1, n, err := HashFS(a)
	if err != nil || n != 2 {
		t.Fatalf("HashFS = %q %d %v", h1, n, err)
	}
	h2, _, _ := HashFS(a)
	if h1 != h2 {
		t.Fatal("hash not deterministic")
	}

	a["assets/app.css"] = &fstest.MapFile{Data: []byte("body{color:red}")}
	h3, _, _ := HashFS(a)
	if h3 == h1 {
		t.Fatal("content change did not change hash")
	}

	// moving content between files must change the hash too
	b := fstest.MapFS{
		"index.html":     {Data: []byte("<h1>hi</h1>body{}")},
		"assets/app.css": {Data: []byte("")},
	}
	h4, _, _ := HashFS(b)
	if h4 == h1 {
		t.Fatal("hash ignores file boundaries")
	}
}

func TestBundle_Metadata(t *testing.T) {
	b, ok, err := NewBundle(fstest.MapFS{"index.html": {Data: []byte("x")}}, "v1.2.3")
	if err != nil || !ok {
		t.Fatalf("NewBundle: %v %v", ok, err)
	}
	if b.SiteVersion() != "v1.2.3" {
		t.Fatalf("version = %q", b.SiteVersion())
	}
}
