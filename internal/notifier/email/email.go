// Package email implements an SMTP-based email notifier
package email

import (
	"context"
	"fmt"
	"html"
	"net/smtp"
	"strings"
	"time"

	"github.com/newthinker/pulse/internal/core"
	"github.com/newthinker/pulse/internal/notifier"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Email implements the Notifier interface for SMTP email
type Email struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       []string
	sendMail sendFunc
	now      func() time.Time
}

// New creates a new Email notifier
func New(host string, port int, username, password, from string, to []string) *Email {
	if port == 0 {
		port = 587
	}
	return &Email{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
		to:       to,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}
}

func (e *Email) Name() string { return "email" }

func (e *Email) Send(ctx context.Context, event core.SignalEvent) error {
	subject := fmt.Sprintf("PULSE Signal: %s %s", event.Subject, event.Kind)
	return e.sendEmail(ctx, subject, formatEvent(event))
}

func (e *Email) SendBatch(ctx context.Context, events []core.SignalEvent) error {
	if len(events) == 0 {
		return nil
	}

	subject := fmt.Sprintf("PULSE Digest: %d Signals", len(events))

	var sb strings.Builder
	sb.WriteString("<html><body>")
	sb.WriteString("<h2>" + html.EscapeString(notifier.DigestHeader) + "</h2>")
	sb.WriteString(fmt.Sprintf("<p>Generated at: %s UTC</p>", e.now().UTC().Format("2006-01-02 15:04:05")))
	sb.WriteString("<hr>")

	for _, event := range events {
		sb.WriteString(formatEventHTML(event))
		sb.WriteString("<hr>")
	}

	sb.WriteString("</body></html>")

	return e.sendEmail(ctx, subject, sb.String())
}

func formatEvent(event core.SignalEvent) string {
	return fmt.Sprintf(`
PULSE Signal

Subject: %s
Kind: %s
Strength: %.2f
Source: %s
Evidence: %s
Time: %s
`,
		event.Subject,
		event.Kind,
		event.Strength,
		event.Source,
		event.Evidence,
		event.Time.UTC().Format("2006-01-02 15:04:05"),
	)
}

func kindColor(k core.Kind) string {
	switch k {
	case core.KindShort, core.KindNegative:
		return "#dc3545"
	default:
		return "#28a745"
	}
}

func formatEventHTML(event core.SignalEvent) string {
	evidence := strings.ReplaceAll(html.EscapeString(event.Evidence), "\n", "<br>")
	return fmt.Sprintf(`
<div style="margin: 10px 0;">
  <h3 style="color: %s;">%s - %s</h3>
  <p><strong>Strength:</strong> %.2f</p>
  <p><strong>Source:</strong> %s</p>
  <p>%s</p>
  <p><small>%s</small></p>
</div>
`,
		kindColor(event.Kind),
		html.EscapeString(event.Subject),
		event.Kind,
		event.Strength,
		html.EscapeString(event.Source),
		evidence,
		event.Time.UTC().Format("2006-01-02 15:04:05"),
	)
}

func (e *Email) sendEmail(ctx context.Context, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("email: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.username != "" {
		auth = smtp.PlainAuth("", e.username, e.password, e.host)
	}

	contentType := "text/plain"
	if strings.Contains(body, "<html>") {
		contentType = "text/html"
	}

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: %s\r\n"+
		"MIME-Version: 1.0\r\n"+
		"Content-Type: %s; charset=UTF-8\r\n"+
		"\r\n"+
		"%s",
		e.from,
		strings.Join(e.to, ","),
		subject,
		contentType,
		body,
	)

	if err := e.sendMail(addr, auth, e.from, e.to, []byte(msg)); err != nil {
		return fmt.Errorf("email: send failed: %w", err)
	}
	return nil
}
