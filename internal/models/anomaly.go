package models

import "time"

const (
	AnomalyStatusNew        = "new"
	AnomalyStatusPending    = "pending"
	AnomalyStatusInProgress = "in_progress"
	AnomalyStatusEscalated  = "escalated"
	AnomalyStatusResolved   = "resolved"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// An anomaly left open this many whole days qualifies for escalation.
const EscalationThresholdDays = 4

// AnomalyTypes is the canonical list of field issue categories. The type
// column itself is free text; this list backs the /anomalies/types endpoint.
var AnomalyTypes = []string{
	"Faulty meters",
	"Power theft",
	"Rebilling issues",
	"Debits",
	"Misallocated accounts",
	"Meters replaced with prepaid",
	"Other anomaly",
}

type Anomaly struct {
	ID                    string     `json:"id" db:"id"`
	Type                  string     `json:"type" db:"type"`
	Location              string     `json:"location" db:"location"`
	Description           string     `json:"description" db:"description"`
	Priority              string     `json:"priority" db:"priority"`
	Status                string     `json:"status" db:"status"`
	ReportedByID          string     `json:"reported_by_id" db:"reported_by_id"`
	ReportedByName        string     `json:"reported_by_name" db:"reported_by_name"` // snapshot at creation
	AssignedToID          *string    `json:"assigned_to_id" db:"assigned_to_id"`
	AssignedToName        *string    `json:"assigned_to_name" db:"assigned_to_name"`
	MeterReadingID        *string    `json:"meter_reading_id" db:"meter_reading_id"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at" db:"updated_at"`
	ResolvedAt            *time.Time `json:"resolved_at" db:"resolved_at"`
	EscalatedAt           *time.Time `json:"escalated_at" db:"escalated_at"`
	DaysOpen              int        `json:"days_open" db:"days_open"`
	EscalationSent        bool       `json:"escalation_sent" db:"escalation_sent"`
	EscalationEmailSentAt *time.Time `json:"escalation_email_sent_at" db:"escalation_email_sent_at"`
}

// CalculateDaysOpen returns the whole-day age of the anomaly: frozen at
// resolution time once resolved, otherwise measured against now.
func (a *Anomaly) CalculateDaysOpen(now time.Time) int {
	if a.ResolvedAt != nil {
		return int(a.ResolvedAt.Sub(a.CreatedAt).Hours() / 24)
	}
	return int(now.Sub(a.CreatedAt).Hours() / 24)
}

// ShouldEscalate reports whether the anomaly qualifies for escalation:
// open 4+ whole days, not yet notified, and not resolved.
func (a *Anomaly) ShouldEscalate(now time.Time) bool {
	return a.CalculateDaysOpen(now) >= EscalationThresholdDays &&
		!a.EscalationSent &&
		a.Status != AnomalyStatusResolved
}
