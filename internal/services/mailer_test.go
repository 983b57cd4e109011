package services

import "testing"

func TestNewMailerFromEnv(t *testing.T) {
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_USER", "alerts@example.com")
	t.Setenv("SMTP_PASSWORD", "secret")
	t.Setenv("ESCALATION_EMAIL", "ops@example.com")

	m, err := NewMailerFromEnv()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.host != "smtp.example.com" {
		t.Errorf("host = %q", m.host)
	}
	if m.port != "587" {
		t.Errorf("port = %q, want default 587", m.port)
	}
	if m.escalationTo != "ops@example.com" {
		t.Errorf("escalationTo = %q", m.escalationTo)
	}
}

func TestNewMailerFromEnvMissingConfig(t *testing.T) {
	t.Setenv("SMTP_HOST", "")
	t.Setenv("ESCALATION_EMAIL", "ops@example.com")
	if _, err := NewMailerFromEnv(); err == nil {
		t.Error("expected error when SMTP_HOST is missing")
	}

	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("ESCALATION_EMAIL", "")
	if _, err := NewMailerFromEnv(); err == nil {
		t.Error("expected error when ESCALATION_EMAIL is missing")
	}
}

func TestSendEscalationEmailNilMailer(t *testing.T) {
	var m *Mailer
	if err := m.SendEscalationEmail(nil); err == nil {
		t.Error("nil mailer should return an error, not panic")
	}
}
