// Package email sends transactional order notifications. Failures are
// logged by the caller and never block an order transition; delivery runs
// off the event queue, not inside the request.
package email

import "context"

// Email represents an email message to be sent. From is a bare address;
// FromName is the optional display name. Senders combine the two, so neither
// may carry a pre-formatted "Name <addr>" value.
type Email struct {
	To       []string
	From     string
	FromName string
	Subject  string
	TextBody string
}

// Sender defines the interface for sending emails.
// Implementations can use SMTP, Postmark, Resend, SES, etc.
type Sender interface {
	// Send sends an email message.
	// Returns the message ID from the email provider (if available).
	Send(ctx context.Context, email *Email) (string, error)
}
