package handlers

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"reading-reports-backend/internal/models"
)

func TestResolveReportWindowDefaults(t *testing.T) {
	today := time.Date(2026, time.August, 29, 15, 30, 0, 0, time.UTC)
	midnight := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		reportType string
		wantFrom   time.Time
		wantTo     time.Time
	}{
		{"daily", midnight, midnight},
		{"weekly", midnight.AddDate(0, 0, -7), midnight},
		{"monthly", time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), midnight},
		{"yearly", time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC), midnight},
	}

	for _, tt := range tests {
		t.Run(tt.reportType, func(t *testing.T) {
			from, to, err := resolveReportWindow(tt.reportType, "", "", today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Errorf("window = [%v, %v], want [%v, %v]", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}
}

func TestResolveReportWindowExplicitRange(t *testing.T) {
	today := time.Date(2026, time.August, 29, 0, 0, 0, 0, time.UTC)

	from, to, err := resolveReportWindow("daily", "2026-02-01", "2026-02-15", today)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if from.Format(dateLayout) != "2026-02-01" || to.Format(dateLayout) != "2026-02-15" {
		t.Errorf("explicit range not honored: [%v, %v]", from, to)
	}
}

func TestResolveReportWindowErrors(t *testing.T) {
	today := time.Now()

	if _, _, err := resolveReportWindow("quarterly", "", "", today); err == nil {
		t.Error("expected error for unknown report type")
	}
	if _, _, err := resolveReportWindow("daily", "not-a-date", "2026-02-15", today); err == nil {
		t.Error("expected error for malformed from_date")
	}
	if _, _, err := resolveReportWindow("daily", "2026-02-01", "15/02/2026", today); err == nil {
		t.Error("expected error for malformed to_date")
	}
}

func TestAverageCoverage(t *testing.T) {
	if got := averageCoverage(nil); got != 0 {
		t.Errorf("averageCoverage(nil) = %v, want 0", got)
	}

	readings := []models.MeterReading{
		{ItinCoverage: 90},
		{ItinCoverage: 95},
		{ItinCoverage: 100.5},
	}
	if got := averageCoverage(readings); got != 95.17 {
		t.Errorf("averageCoverage = %v, want 95.17", got)
	}
}

func TestWriteCSVReportStructure(t *testing.T) {
	comments := "route flooded"
	assignee := "Mackenzie"
	resolvedAt := time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC)

	readings := []models.MeterReading{
		{
			StaffNumber:  "85891",
			StaffName:    "User",
			ReadingDate:  time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
			ItinCoverage: 100, TargetCoverage: 100,
			Status:    models.ReadingStatusComplete,
			Comments:  &comments,
			CreatedAt: time.Date(2026, time.March, 2, 18, 0, 0, 0, time.UTC),
		},
		{
			StaffNumber:  "80909",
			StaffName:    "Omweri",
			ReadingDate:  time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
			ItinCoverage: 85, TargetCoverage: 100,
			Status:    models.ReadingStatusDelayed,
			CreatedAt: time.Date(2026, time.March, 2, 18, 30, 0, 0, time.UTC),
		},
	}
	anomalies := []models.Anomaly{
		{
			Type: "Power theft", Location: "Zone 4", Description: "bypassed meter",
			Priority: models.PriorityHigh, Status: models.AnomalyStatusResolved,
			ReportedByName: "User", AssignedToName: &assignee,
			DaysOpen: 2, CreatedAt: time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC),
			ResolvedAt: &resolvedAt,
		},
		{
			Type: "Faulty meters", Location: "Zone 1", Description: "display blank",
			Priority: models.PriorityMedium, Status: models.AnomalyStatusEscalated,
			ReportedByName: "Omweri", DaysOpen: 5, EscalationSent: true,
			CreatedAt: time.Date(2026, time.February, 25, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	if err := writeCSVReport(&buf, readings, anomalies); err != nil {
		t.Fatalf("writeCSVReport failed: %v", err)
	}

	out := buf.String()
	for _, block := range []string{"=== METER READINGS ===", "=== ANOMALIES ===", "=== SUMMARY ==="} {
		if !strings.Contains(out, block) {
			t.Errorf("report missing block %q", block)
		}
	}
	if !strings.Contains(out, "Unassigned") {
		t.Error("unassigned anomaly should show Unassigned")
	}

	reader := csv.NewReader(strings.NewReader(out))
	reader.FieldsPerRecord = -1 // block headers and data rows differ in width
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("report is not valid CSV: %v", err)
	}

	rows := map[string]string{}
	inSummary := false
	for _, record := range records {
		if len(record) == 1 && record[0] == "=== SUMMARY ===" {
			inSummary = true
			continue
		}
		if inSummary && len(record) == 2 {
			rows[record[0]] = record[1]
		}
	}

	want := map[string]string{
		"Total Readings":       "2",
		"Completed Readings":   "1",
		"Pending Readings":     "0",
		"Delayed Readings":     "1",
		"Average Coverage (%)": "92.5",
		"Total Anomalies":      "2",
		"Resolved Anomalies":   "1",
		"Escalated Anomalies":  "1",
	}
	for metric, value := range want {
		if rows[metric] != value {
			t.Errorf("summary %q = %q, want %q", metric, rows[metric], value)
		}
	}
}

func TestWriteCSVReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCSVReport(&buf, nil, nil); err != nil {
		t.Fatalf("writeCSVReport failed on empty data: %v", err)
	}
	if !strings.Contains(buf.String(), "Average Coverage (%),0") {
		t.Error("empty report should show zero average coverage")
	}
}
