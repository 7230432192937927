package smtp

import (
	"context"
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"strings"
	"time"

	"openach/internal/config"
	"openach/internal/errors"
	"openach/ports"
)

// MailerImpl delivers multipart messages over SMTP with PLAIN auth
type MailerImpl struct {
	host     string
	port     int
	username string
	password string
	from     string
}

// NewMailer creates a Mailer from SMTP configuration
func NewMailer(cfg config.SMTPConfig) ports.Mailer {
	return &MailerImpl{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     cfg.From,
	}
}

// Send delivers a message with plain text and HTML alternatives
func (m *MailerImpl) Send(ctx context.Context, to, subject, textBody, htmlBody string) error {
	msg, err := m.buildMessage(to, subject, textBody, htmlBody)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, m.host)
	}

	// net/smtp has no context support, so honor cancellation around the
	// blocking send
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(addr, auth, m.from, []string{to}, msg)
	}()

	select {
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "mail send cancelled")
	case err := <-done:
		if err != nil {
			return errors.Wrap(err, "failed to send mail")
		}
		return nil
	}
}

func (m *MailerImpl) buildMessage(to, subject, textBody, htmlBody string) ([]byte, error) {
	boundary := fmt.Sprintf("part-%d", time.Now().UnixNano())

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", boundary)
	b.WriteString("\r\n")

	if err := writePart(&b, boundary, "text/plain; charset=utf-8", textBody); err != nil {
		return nil, err
	}
	if err := writePart(&b, boundary, "text/html; charset=utf-8", htmlBody); err != nil {
		return nil, err
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)

	return []byte(b.String()), nil
}

func writePart(b *strings.Builder, boundary, contentType, body string) error {
	fmt.Fprintf(b, "--%s\r\n", boundary)
	fmt.Fprintf(b, "Content-Type: %s\r\n", contentType)
	b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	b.WriteString("\r\n")

	w := quotedprintable.NewWriter(b)
	if _, err := w.Write([]byte(body)); err != nil {
		return errors.Wrap(err, "failed to encode mail body")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "failed to encode mail body")
	}
	b.WriteString("\r\n")
	return nil
}
