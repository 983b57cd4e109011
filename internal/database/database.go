package database

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

func Connect(dbURL string) (*sqlx.DB, error) {
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🔌 DATABASE CONNECTION ATTEMPT")
	log.Printf("   📍 Database URL length: %d characters", len(dbURL))
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Printf("❌ sqlx.Connect() failed: %v", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		log.Printf("❌ Ping() failed: %v", err)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("✅ DATABASE CONNECTION SUCCESSFUL")
	return db, nil
}

func Migrate(db *sqlx.DB) error {
	migrations := []string{
		// Create staff table
		// The pin column is vestigial: logins always derive the PIN from
		// staff_number. The column is kept for bulk-load compatibility.
		`CREATE TABLE IF NOT EXISTS staff (
			id TEXT PRIMARY KEY,
			staff_number TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			pin TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'reader' CHECK(role IN ('reader', 'supervisor', 'engineer')),
			email TEXT,
			security_question TEXT,
			security_answer TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_login TIMESTAMPTZ,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Create meter_readings table
		// reading_date is intentionally NOT unique per staff: duplicate
		// submissions for the same date create independent rows.
		`CREATE TABLE IF NOT EXISTS meter_readings (
			id TEXT PRIMARY KEY,
			staff_id TEXT NOT NULL,
			staff_name TEXT NOT NULL,
			staff_number TEXT NOT NULL,
			itin_coverage DOUBLE PRECISION NOT NULL,
			target_coverage DOUBLE PRECISION NOT NULL DEFAULT 100,
			status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending', 'complete', 'delayed', 'escalated')),
			reading_date DATE NOT NULL,
			closed_premise INT NOT NULL DEFAULT 0,
			meter_not_on_site INT NOT NULL DEFAULT 0,
			suspected_misallocated INT NOT NULL DEFAULT 0,
			other_reason INT NOT NULL DEFAULT 0,
			comments TEXT,
			excel_file_path TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			FOREIGN KEY (staff_id) REFERENCES staff(id) ON DELETE CASCADE
		)`,

		// Create anomalies table
		`CREATE TABLE IF NOT EXISTS anomalies (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			location TEXT NOT NULL,
			description TEXT NOT NULL,
			priority TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('low', 'medium', 'high', 'urgent')),
			status TEXT NOT NULL DEFAULT 'new' CHECK(status IN ('new', 'pending', 'in_progress', 'escalated', 'resolved')),
			reported_by_id TEXT NOT NULL,
			reported_by_name TEXT NOT NULL,
			assigned_to_id TEXT,
			assigned_to_name TEXT,
			meter_reading_id TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved_at TIMESTAMPTZ,
			escalated_at TIMESTAMPTZ,
			days_open INT NOT NULL DEFAULT 0,
			escalation_sent BOOLEAN NOT NULL DEFAULT FALSE,
			escalation_email_sent_at TIMESTAMPTZ,
			FOREIGN KEY (reported_by_id) REFERENCES staff(id) ON DELETE CASCADE,
			FOREIGN KEY (assigned_to_id) REFERENCES staff(id) ON DELETE SET NULL,
			FOREIGN KEY (meter_reading_id) REFERENCES meter_readings(id) ON DELETE SET NULL
		)`,

		// Create indexes
		`CREATE INDEX IF NOT EXISTS idx_staff_staff_number ON staff(staff_number)`,
		`CREATE INDEX IF NOT EXISTS idx_staff_is_active ON staff(is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_meter_readings_staff_id ON meter_readings(staff_id)`,
		`CREATE INDEX IF NOT EXISTS idx_meter_readings_reading_date ON meter_readings(reading_date)`,
		`CREATE INDEX IF NOT EXISTS idx_meter_readings_status ON meter_readings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_reported_by_id ON anomalies(reported_by_id)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_assigned_to_id ON anomalies(assigned_to_id)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_status ON anomalies(status)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_created_at ON anomalies(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_escalation_sent ON anomalies(escalation_sent)`,
		`CREATE INDEX IF NOT EXISTS idx_anomalies_type ON anomalies(type)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
