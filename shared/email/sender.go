package email

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/smtp"

	"channel-insights/internal/models"
	"channel-insights/shared/config"
)

//go:embed digest.html.tmpl
var digestTemplate string

var tmpl = template.Must(template.New("digest").Parse(digestTemplate))

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type Sender struct {
	config   *config.EmailConfig
	sendMail sendFunc
}

func NewSender(cfg *config.EmailConfig) *Sender {
	return &Sender{
		config:   cfg,
		sendMail: smtp.SendMail,
	}
}

// SendDigest renders and mails a digest. A digest without entries is not sent.
func (s *Sender) SendDigest(digest *models.Digest) error {
	if digest == nil {
		return fmt.Errorf("digest cannot be nil")
	}

	if len(digest.Entries) == 0 {
		return nil
	}

	subject := fmt.Sprintf("YouTube Analytics Digest (%s)", digest.RangeLabel)
	if digest.Failed > 0 {
		subject += fmt.Sprintf(" - %d report(s) unavailable", digest.Failed)
	}

	body, err := RenderDigest(digest)
	if err != nil {
		return fmt.Errorf("failed to generate email body: %w", err)
	}

	return s.SendHTML(subject, body)
}

// SendHTML sends an email with custom HTML content
func (s *Sender) SendHTML(subject, htmlBody string) error {
	auth := smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.SMTPServer)

	to := []string{s.config.ToEmail}
	msg := []byte(fmt.Sprintf(`To: %s
From: %s
Subject: %s
MIME-Version: 1.0
Content-Type: text/html; charset=UTF-8

%s`, s.config.ToEmail, s.config.FromEmail, subject, htmlBody))

	addr := fmt.Sprintf("%s:%d", s.config.SMTPServer, s.config.SMTPPort)
	return s.sendMail(addr, auth, s.config.FromEmail, to, msg)
}

// RenderDigest produces the HTML body of a digest.
func RenderDigest(digest *models.Digest) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, digest); err != nil {
		return "", err
	}
	return buf.String(), nil
}
