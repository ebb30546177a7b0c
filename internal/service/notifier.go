package service

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/usamatauqir381/questxcopilot/internal/config"
)

// Notifier delivers one-time codes to candidates
type Notifier interface {
	SendCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// LogNotifier writes codes to the process log. Used when no mail relay is configured.
type LogNotifier struct{}

func (LogNotifier) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	log.Printf("[Notifier] Code for %s is %s (expires %s)", email, code, expiresAt.Format(time.RFC3339))
	return nil
}

// SMTPNotifier sends codes through an SMTP relay, upgrading to TLS when offered
type SMTPNotifier struct {
	cfg     config.SMTPConfig
	subject string
}

// NewSMTPNotifier creates a mail notifier for the given relay
func NewSMTPNotifier(cfg config.SMTPConfig, subject string) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, subject: subject}
}

// NewNotifier picks the SMTP notifier when a relay is configured, else the log notifier
func NewNotifier(cfg config.SMTPConfig, subject string) Notifier {
	if cfg.Enabled() {
		return NewSMTPNotifier(cfg, subject)
	}
	log.Printf("[Notifier] SMTP not configured, codes will be logged")
	return LogNotifier{}
}

func (n *SMTPNotifier) SendCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	addr := net.JoinHostPort(n.cfg.Host, strconv.Itoa(n.cfg.Port))

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if n.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := c.Rcpt(email); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	minutes := int(time.Until(expiresAt).Round(time.Minute) / time.Minute)
	if _, err := w.Write([]byte(n.message(email, code, minutes))); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return c.Quit()
}

func (n *SMTPNotifier) message(to, code string, minutes int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", n.subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&b, "Your one-time code is: %s\r\nIt expires in %d minutes.\r\n", code, minutes)
	return b.String()
}
