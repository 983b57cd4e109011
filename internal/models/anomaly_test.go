package models

import (
	"testing"
	"time"
)

func TestCalculateDaysOpen(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		created time.Time
		want    int
	}{
		{"just created", now, 0},
		{"under a day", now.Add(-23 * time.Hour), 0},
		{"exactly one day", now.Add(-24 * time.Hour), 1},
		{"two and a half days", now.Add(-60 * time.Hour), 2},
		{"five days", now.AddDate(0, 0, -5), 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Anomaly{CreatedAt: tt.created}
			if got := a.CalculateDaysOpen(now); got != tt.want {
				t.Errorf("CalculateDaysOpen = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCalculateDaysOpenFrozenAtResolution(t *testing.T) {
	created := time.Date(2026, time.March, 1, 8, 0, 0, 0, time.UTC)
	resolved := created.AddDate(0, 0, 2)
	a := &Anomaly{CreatedAt: created, ResolvedAt: &resolved, Status: AnomalyStatusResolved}

	// A week after resolution, days open stays at 2.
	now := resolved.AddDate(0, 0, 7)
	if got := a.CalculateDaysOpen(now); got != 2 {
		t.Errorf("CalculateDaysOpen after resolution = %d, want 2", got)
	}
}

func TestShouldEscalate(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	resolved := now.Add(-time.Hour)

	tests := []struct {
		name    string
		anomaly Anomaly
		want    bool
	}{
		{
			"five days old and open",
			Anomaly{CreatedAt: now.AddDate(0, 0, -5), Status: AnomalyStatusNew},
			true,
		},
		{
			"exactly four days",
			Anomaly{CreatedAt: now.AddDate(0, 0, -4), Status: AnomalyStatusPending},
			true,
		},
		{
			"two days old",
			Anomaly{CreatedAt: now.AddDate(0, 0, -2), Status: AnomalyStatusNew},
			false,
		},
		{
			"already notified",
			Anomaly{CreatedAt: now.AddDate(0, 0, -6), Status: AnomalyStatusEscalated, EscalationSent: true},
			false,
		},
		{
			"resolved",
			Anomaly{CreatedAt: now.AddDate(0, 0, -6), Status: AnomalyStatusResolved, ResolvedAt: &resolved},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.anomaly.ShouldEscalate(now); got != tt.want {
				t.Errorf("ShouldEscalate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShouldEscalateMonotonicInAge(t *testing.T) {
	created := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	a := &Anomaly{CreatedAt: created, Status: AnomalyStatusNew}

	flipped := false
	for day := 0; day <= 10; day++ {
		now := created.AddDate(0, 0, day)
		got := a.ShouldEscalate(now)
		if got {
			flipped = true
		}
		if flipped && !got {
			t.Fatalf("escalation eligibility regressed at day %d", day)
		}
	}
	if !flipped {
		t.Fatal("anomaly never became eligible for escalation")
	}
}

func TestAnomalyTypesList(t *testing.T) {
	if len(AnomalyTypes) != 7 {
		t.Fatalf("expected 7 anomaly types, got %d", len(AnomalyTypes))
	}
	seen := map[string]bool{}
	for _, at := range AnomalyTypes {
		if at == "" {
			t.Error("empty anomaly type")
		}
		if seen[at] {
			t.Errorf("duplicate anomaly type %q", at)
		}
		seen[at] = true
	}
	if !seen["Other anomaly"] {
		t.Error("catch-all type missing")
	}
}
