// Package mailer sends the site's outgoing mail (testimonial notices,
// donation receipts, the pending digest, admin welcomes) over SMTP.
package mailer

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Pass     string
	From     string
	FromName string
}

// Mailer delivers through one SMTP relay. A Mailer without a host is
// disabled and callers skip it.
type Mailer struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config, log *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, log: log}
}

// Sender is what handlers and jobs depend on, so tests can capture mail.
type Sender interface {
	Send(email Email) error
}

func (m *Mailer) Enabled() bool {
	return m != nil && m.cfg.Host != ""
}

// FromName is the sender display name, also used as the site name in
// message bodies.
func (m *Mailer) FromName() string {
	if m == nil {
		return ""
	}
	return m.cfg.FromName
}

type Email struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string // optional; sent as multipart/alternative with TextBody
}

func (m *Mailer) Send(email Email) error {
	msg, err := m.compose(email)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.User != "" && m.cfg.Pass != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Pass, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{email.To}, msg); err != nil {
		m.log.Error("send mail failed", zap.String("to", email.To), zap.String("subject", email.Subject), zap.Error(err))
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Info("mail sent", zap.String("to", email.To), zap.String("subject", email.Subject))
	return nil
}

// compose renders the RFC 5322 message. Header values are stripped of line
// breaks and the subject is Q-encoded so non-ASCII names survive.
func (m *Mailer) compose(email Email) ([]byte, error) {
	to, err := mail.ParseAddress(oneLine(email.To))
	if err != nil {
		return nil, fmt.Errorf("recipient %q: %w", email.To, err)
	}
	from := (&mail.Address{Name: m.cfg.FromName, Address: m.cfg.From}).String()

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to.String())
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", oneLine(email.Subject)))
	buf.WriteString("MIME-Version: 1.0\r\n")

	if email.HTMLBody == "" {
		buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		buf.WriteString(email.TextBody)
		return buf.Bytes(), nil
	}

	w := multipart.NewWriter(&buf)
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", w.Boundary())
	for _, part := range []struct{ ctype, body string }{
		{"text/plain; charset=UTF-8", email.TextBody},
		{"text/html; charset=UTF-8", email.HTMLBody},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{"Content-Type": {part.ctype}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.body)); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func oneLine(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\r", " ", "\n", " ").Replace(s))
}
