package sitehandler

import "testing"

func TestResolvePath(t *testing.T) {
	fsys := siteFS()
	cases := []struct {
		in   string
		spa  bool
		want resolution
	}{
		{"", true, resolution{file: "index.html", found: true}},
		{"/", true, resolution{file: "index.html", found: true}},
		{"/assets/site.css", true, resolution{file: "assets/site.css", found: true}},
		{"/assets/../index.html", true, resolution{}},
		{"/assets/nope.css", true, resolution{}},
		{"/privacy", true, resolution{redirectTo: "/privacy/", found: true}},
		{"/privacy/", true, resolution{file: "privacy/index.html", found: true}},
		{"/contact", true, resolution{file: "index.html", spa: true, found: true}},
		{"/contact", false, resolution{}},
		{"/assets/", true, resolution{file: "index.html", spa: true, found: true}},
		{"//double//slash", true, resolution{file: "index.html", spa: true, found: true}},
		{"/a\x00b", true, resolution{}},
	}
	for _, tc := range cases {
		if got := resolvePath(tc.in, fsys, "index.html", tc.spa); got != tc.want {
			t.Errorf("resolvePath(%q, spa=%v) = %+v, want %+v", tc.in, tc.spa, got, tc.want)
		}
	}
}

func TestCacheControlForFile(t *testing.T) {
	o := &Options{}
	o.setDefaults()
	cases := map[string]string{
		"index.html":      "no-cache",
		"LICENSE":         "no-cache",
		"assets/site.css": "public, max-age=31536000, immutable",
		"assets/a.WOFF2":  "public, max-age=31536000, immutable",
		"robots.txt":      "public, max-age=3600",
		"sitemap.xml":     "public, max-age=3600",
	}
	for name, want := range cases {
		if got := cacheControlForFile(name, o); got != want {
			t.Errorf("%s: %q, want %q", name, got, want)
		}
	}
}
