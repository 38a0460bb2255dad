package services

import (
	"fmt"
	"html"
	"net/smtp"
	"time"

	"github.com/dimitrije/family-core/internal/config"
)

type sendMailFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

type EmailService struct {
	cfg      config.SMTPConfig
	sendMail sendMailFunc
}

func NewEmailService(cfg config.SMTPConfig) *EmailService {
	return &EmailService{cfg: cfg, sendMail: smtp.SendMail}
}

func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.From != ""
}

// Send is a no-op when SMTP is not configured.
func (s *EmailService) Send(to, subject, body string) error {
	if !s.IsConfigured() {
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	return s.sendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg))
}

// SendFamilyInvite mails the join link. The PIN is never included; the owner
// shares it through another channel.
func (s *EmailService) SendFamilyInvite(to, familyName, joinLink string, validFor time.Duration) error {
	subject := fmt.Sprintf("You've been invited to join %s", familyName)
	body := fmt.Sprintf(`
		<html>
		<body>
			<h2>Family Invitation</h2>
			<p>Hi,</p>
			<p>You have been invited to join the family <strong>%s</strong>.</p>
			<p><a href="%s">Open this link</a> and enter the family PIN you were given. The link is valid for %d minutes.</p>
		</body>
		</html>
	`, html.EscapeString(familyName), html.EscapeString(joinLink), int(validFor.Minutes()))

	return s.Send(to, subject, body)
}
