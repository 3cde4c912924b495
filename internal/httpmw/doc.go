// Package httpmw provides HTTP middleware for the public ntek.app server.
//
// httpserver.NewHandler composes them outermost first: security headers,
// panic recovery, request ID, client IP resolution, site-wide rate limiting,
// OTEL tracing, trace and site headers, metrics, request-scoped logging, then
// the chi router where the contact endpoint adds its own window limiter.
//
// Request bodies, query strings and user agents are never logged. Contact
// submissions carry personal data and stay out of logs and spans.
package httpmw
