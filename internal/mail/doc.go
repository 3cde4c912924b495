// Package mail delivers contact form notifications.
//
// [ResendSender] posts to the Resend HTTP API. Without an API key the server
// wires [Disabled], which fails every send with [ErrDeliveryDisabled].
// [LogSender] is the dry-run sender for local development: it logs message
// metadata and reports success. [Instrument] wraps any [Sender] with a
// duration callback.
package mail
