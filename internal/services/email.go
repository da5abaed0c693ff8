package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"
	"time"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/dimitrije/agency-api/internal/logging"
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
	return s.cfg.IsConfigured()
}

// Send delivers an HTML message. Without SMTP settings the message is logged
// and dropped.
func (s *EmailService) Send(ctx context.Context, to, subject, body string) error {
	if !s.IsConfigured() {
		logging.FromContext(ctx).Info("smtp not configured, email skipped", "to", to, "subject", subject)
		return nil
	}

	addr := fmt.Sprintf("%s:%s", s.cfg.Host, s.cfg.Port)
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		s.cfg.From, to, subject, body)

	if err := s.sendMail(addr, auth, s.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

type InvitationEmail struct {
	To          string
	TenantName  string
	ProjectName string
	InviterName string
	Role        string
	AcceptURL   string
	ExpiresAt   time.Time
}

var invitationTmpl = template.Must(template.New("invitation").Parse(`<html>
<body>
	<h2>You're invited to {{.TenantName}}</h2>
	<p>Hi,</p>
	<p><strong>{{.InviterName}}</strong> has invited you to join <strong>{{.TenantName}}</strong>
	{{- if .ProjectName}} on the project <strong>{{.ProjectName}}</strong>{{end}} as {{.Role}}.</p>
	<p><a href="{{.AcceptURL}}">View and respond to this invitation</a></p>
	<p>This invitation expires on {{.ExpiresAt.Format "Jan 2, 2006 15:04 MST"}}.</p>
</body>
</html>`))

func (s *EmailService) SendInvitation(ctx context.Context, e InvitationEmail) error {
	var body bytes.Buffer
	if err := invitationTmpl.Execute(&body, e); err != nil {
		return fmt.Errorf("render invitation email: %w", err)
	}

	subject := fmt.Sprintf("You've been invited to join %s", e.TenantName)
	return s.Send(ctx, e.To, subject, body.String())
}
