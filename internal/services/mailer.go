package services

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strings"

	"reading-reports-backend/internal/models"
)

// Mailer delivers escalation notifications over SMTP.
type Mailer struct {
	host         string
	port         string
	user         string
	password     string
	escalationTo string
}

// NewMailerFromEnv builds a Mailer from SMTP_* environment variables.
// Returns an error when the host or escalation recipient is missing, so the
// caller can run with escalation email disabled.
func NewMailerFromEnv() (*Mailer, error) {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return nil, fmt.Errorf("SMTP_HOST not configured")
	}

	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	escalationTo := os.Getenv("ESCALATION_EMAIL")
	if escalationTo == "" {
		return nil, fmt.Errorf("ESCALATION_EMAIL not configured")
	}

	return &Mailer{
		host:         host,
		port:         port,
		user:         os.Getenv("SMTP_USER"),
		password:     os.Getenv("SMTP_PASSWORD"),
		escalationTo: escalationTo,
	}, nil
}

// SendEscalationEmail notifies the escalation contact about an anomaly that
// has been open past the threshold. Safe on a nil receiver.
func (m *Mailer) SendEscalationEmail(anomaly *models.Anomaly) error {
	if m == nil {
		return fmt.Errorf("mailer not configured")
	}

	assignedTo := "Unassigned"
	if anomaly.AssignedToName != nil && *anomaly.AssignedToName != "" {
		assignedTo = *anomaly.AssignedToName
	}

	subject := fmt.Sprintf("ESCALATION: %s - %s (Day %d)", anomaly.Type, anomaly.Location, anomaly.DaysOpen)

	var body strings.Builder
	body.WriteString("An anomaly has been escalated due to being unresolved for ")
	body.WriteString(fmt.Sprintf("%d days.\r\n\r\n", anomaly.DaysOpen))
	body.WriteString("ANOMALY DETAILS:\r\n")
	body.WriteString(fmt.Sprintf("- Type: %s\r\n", anomaly.Type))
	body.WriteString(fmt.Sprintf("- Location: %s\r\n", anomaly.Location))
	body.WriteString(fmt.Sprintf("- Priority: %s\r\n", strings.ToUpper(anomaly.Priority)))
	body.WriteString(fmt.Sprintf("- Reported by: %s\r\n", anomaly.ReportedByName))
	body.WriteString(fmt.Sprintf("- Assigned to: %s\r\n", assignedTo))
	body.WriteString(fmt.Sprintf("- Description: %s\r\n", anomaly.Description))
	body.WriteString(fmt.Sprintf("- Created: %s\r\n", anomaly.CreatedAt.Format("2006-01-02 15:04")))
	body.WriteString(fmt.Sprintf("- Days Open: %d\r\n\r\n", anomaly.DaysOpen))
	body.WriteString("Please take immediate action to resolve this issue.\r\n\r\n")
	body.WriteString("Best regards,\r\nReading Reports System\r\n")

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s",
		m.user, m.escalationTo, subject, body.String())

	addr := m.host + ":" + m.port
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}

	if err := smtp.SendMail(addr, auth, m.user, []string{m.escalationTo}, []byte(msg)); err != nil {
		return fmt.Errorf("error sending escalation email: %w", err)
	}

	log.Printf("✅ Escalation email sent for anomaly %s (%s)", anomaly.ID, anomaly.Type)
	return nil
}
