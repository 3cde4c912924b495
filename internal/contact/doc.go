// Package contact handles contact form submissions: it validates the posted
// JSON, renders a notification email and hands it to a mail.Sender.
//
// Rate limiting is applied in front of the handler by the router; this
// package only sees requests that were admitted.
package contact
