// Package health provides readiness and liveness probes and the HTTP
// handlers that expose them.
//
// Probes compose with [All] (AND) and [Any] (OR). [CheckFunc] adapts a plain function into a
// [Probe], and [Fixed] returns a static result.
//
// [ShutdownGate] fails readiness as soon as draining starts so the load
// balancer stops routing contact form posts before listeners close.
package health
