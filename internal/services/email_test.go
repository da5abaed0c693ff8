package services

import (
	"context"
	"errors"
	"net/smtp"
	"testing"
	"time"

	"github.com/dimitrije/agency-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smtpConfig() config.SMTPConfig {
	return config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     "587",
		Username: "user@example.com",
		Password: "password",
		From:     "noreply@example.com",
	}
}

func TestEmailService_IsConfigured(t *testing.T) {
	assert.True(t, NewEmailService(smtpConfig()).IsConfigured())

	cfg := smtpConfig()
	cfg.Password = ""
	assert.False(t, NewEmailService(cfg).IsConfigured())
}

func TestEmailService_Send_NotConfigured(t *testing.T) {
	svc := NewEmailService(config.SMTPConfig{})
	svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail must not be called without configuration")
		return nil
	}

	assert.NoError(t, svc.Send(context.Background(), "a@example.com", "hi", "body"))
}

func TestEmailService_SendInvitation(t *testing.T) {
	svc := NewEmailService(smtpConfig())

	var gotAddr string
	var gotTo []string
	var gotMsg string
	svc.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	err := svc.SendInvitation(context.Background(), InvitationEmail{
		To:          "invitee@example.com",
		TenantName:  "Acme <Studio>",
		ProjectName: "Website",
		InviterName: "Olivia",
		Role:        "member",
		AcceptURL:   "https://app.example.com/invitations/tok",
		ExpiresAt:   time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	})

	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"invitee@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: You've been invited to join Acme <Studio>")
	assert.Contains(t, gotMsg, "Acme &lt;Studio&gt;")
	assert.Contains(t, gotMsg, "on the project <strong>Website</strong>")
	assert.Contains(t, gotMsg, "https://app.example.com/invitations/tok")
}

func TestEmailService_SendInvitation_Failure(t *testing.T) {
	svc := NewEmailService(smtpConfig())
	svc.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := svc.SendInvitation(context.Background(), InvitationEmail{To: "x@example.com", TenantName: "Acme"})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
