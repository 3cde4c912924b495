// Package ratelimit provides the in-memory, per-client rate limiters used by
// the public server.
//
// WindowLimiter guards the contact endpoint: each client gets a fixed number
// of submissions per window, counted from its first request, and expired
// windows are reclaimed by a periodic sweep.
//
// IPLimiter is a coarse token bucket applied to every route to blunt single
// ip floods before they reach handlers.
//
// Both are single-instance and process-local. They do not protect against
// distributed attacks or bandwidth-bill attacks; use an upstream WAF or CDN
// for those.
package ratelimit
