package contact

import (
	"html"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// MinMessageLength is the shortest message accepted, in characters.
const MinMessageLength = 10

// Validation messages returned to the client verbatim.
const (
	MsgNameRequired  = "Name is required"
	MsgEmailInvalid  = "Valid email is required"
	MsgMessageLength = "Message must be at least 10 characters"
)

// Submission is the JSON body posted by the site's contact form.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ValidationError carries the first failed rule as a user-facing message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// Validate checks name, email and message in that order and reports the first failure.
func (s Submission) Validate() error {
	if s.Name == "" {
		return &ValidationError{Field: "name", Message: MsgNameRequired}
	}
	if !validEmail(s.Email) {
		return &ValidationError{Field: "email", Message: MsgEmailInvalid}
	}
	if utf8.RuneCountInString(s.Message) < MinMessageLength {
		return &ValidationError{Field: "message", Message: MsgMessageLength}
	}
	return nil
}

// validEmail accepts a bare addr-spec only: no display name, angle brackets
// or surrounding whitespace
func validEmail(s string) bool {
	if s == "" {
		return false
	}
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// Subject returns the notification subject line.
func (s Submission) Subject() string {
	return "Contact Form: " + strings.TrimSpace(s.Name)
}

// HTML renders the notification body. Every field is escaped and message
// newlines become <br> so the submitter cannot inject markup.
func (s Submission) HTML() string {
	msg := html.EscapeString(s.Message)
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\n", "<br>")

	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>\n")
	b.WriteString("<p><strong>Name:</strong> " + html.EscapeString(strings.TrimSpace(s.Name)) + "</p>\n")
	b.WriteString("<p><strong>Email:</strong> " + html.EscapeString(strings.TrimSpace(s.Email)) + "</p>\n")
	b.WriteString("<p><strong>Message:</strong></p>\n")
	b.WriteString("<p>" + msg + "</p>\n")
	return b.String()
}
