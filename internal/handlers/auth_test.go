package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"reading-reports-backend/internal/models"
)

func TestClassifyLogin(t *testing.T) {
	active := &models.Staff{StaffNumber: "53050", IsActive: true}
	inactive := &models.Staff{StaffNumber: "53050", IsActive: false}

	tests := []struct {
		name       string
		staff      *models.Staff
		lookupErr  error
		pin        string
		wantStatus int
		wantMsg    string
	}{
		{"valid credentials", active, nil, "5305", http.StatusOK, ""},
		{"unknown staff number", &models.Staff{}, sql.ErrNoRows, "5305", http.StatusUnauthorized, "Invalid staff number or PIN"},
		{"wrong pin", active, nil, "0000", http.StatusUnauthorized, "Invalid staff number or PIN"},
		{"database failure", &models.Staff{}, errors.New("connection reset"), "5305", http.StatusInternalServerError, "Database error"},
		{"deactivated account", inactive, nil, "5305", http.StatusUnauthorized, "Account is deactivated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := classifyLogin(tt.staff, tt.lookupErr, tt.pin)
			if status != tt.wantStatus {
				t.Errorf("status = %d, want %d", status, tt.wantStatus)
			}
			if message != tt.wantMsg {
				t.Errorf("message = %q, want %q", message, tt.wantMsg)
			}
		})
	}
}

func TestClassifyLoginChecksPinBeforeActive(t *testing.T) {
	// A deactivated account with a wrong PIN must report bad credentials,
	// not reveal that the account exists but is deactivated.
	inactive := &models.Staff{StaffNumber: "53050", IsActive: false}
	status, message := classifyLogin(inactive, nil, "0000")
	if status != http.StatusUnauthorized || message != "Invalid staff number or PIN" {
		t.Errorf("got %d %q, want 401 with the collapsed credentials message", status, message)
	}
}
