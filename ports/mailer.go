package ports

import "context"

// Mailer sends multipart email messages
type Mailer interface {
	// Send delivers a message with plain text and HTML alternatives
	Send(ctx context.Context, to, subject, textBody, htmlBody string) error
}
