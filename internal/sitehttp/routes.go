// Package sitehttp registers the public site routes: the contact form API
// and the static site as the router's fallback.
package sitehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/ntek-web/internal/httpmw"
)

// ContactPath is where the site's contact form posts.
const ContactPath = "/api/contact"

type Routes struct {
	Site    http.Handler
	Contact http.Handler
	// ContactMW wraps only the contact route, outermost first (rate limit, body cap)
	ContactMW []func(http.Handler) http.Handler
}

func New(site, contact http.Handler, contactMW ...func(http.Handler) http.Handler) *Routes {
	return &Routes{Site: site, Contact: contact, ContactMW: contactMW}
}

// RegisterRoutes should run last so the site becomes the final fallback.
func (rt *Routes) RegisterRoutes(r chi.Router) {
	if rt.Contact != nil {
		r.Method(http.MethodPost, ContactPath, httpmw.Chain(rt.Contact, rt.ContactMW...))
	}

	// NotFound rather than a wildcard so health and API routes keep priority
	if rt.Site != nil {
		r.NotFound(rt.Site.ServeHTTP)
		r.MethodNotAllowed(rt.Site.ServeHTTP)
	}
}
