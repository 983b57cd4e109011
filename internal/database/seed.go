package database

import (
	"log"

	"reading-reports-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedStaff(db *sqlx.DB) error {
	// Check if staff already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM staff"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Staff already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding sample staff...")

	securityAnswer, err := bcrypt.GenerateFromPassword([]byte("sample"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	staff := []map[string]interface{}{
		{"staff_number": "001", "name": "Martin Mackenzie", "role": models.RoleReader, "email": "martin.mackenzie@kenyapower.co.ke"},
		{"staff_number": "002", "name": "Arnold Chogo", "role": models.RoleReader, "email": "arnold.chogo@kenyapower.co.ke"},
		{"staff_number": "003", "name": "Samwel Nyamori", "role": models.RoleReader, "email": "samwel.nyamori@kenyapower.co.ke"},
		{"staff_number": "013", "name": "Godfrey Kopilo", "role": models.RoleSupervisor, "email": "godfrey.kopilo@kenyapower.co.ke"},
		{"staff_number": "014", "name": "Paul Odhiambo", "role": models.RoleSupervisor, "email": "paul.odhiambo@kenyapower.co.ke"},
		{"staff_number": "015", "name": "Cynthia Odhiambo", "role": models.RoleEngineer, "email": "cynthia.odhiambo@kenyapower.co.ke"},
	}

	for _, member := range staff {
		staffNumber := member["staff_number"].(string)
		row := map[string]interface{}{
			"id":           uuid.New().String(),
			"staff_number": staffNumber,
			"name":         member["name"],
			// Stored pin is informational only; the auth check recomputes it.
			"pin":               models.DerivedPin(staffNumber),
			"role":              member["role"],
			"email":             member["email"],
			"security_question": "What is your mother's maiden name?",
			"security_answer":   string(securityAnswer),
		}

		query := `
			INSERT INTO staff (id, staff_number, name, pin, role, email, security_question, security_answer)
			VALUES (:id, :staff_number, :name, :pin, :role, :email, :security_question, :security_answer)
		`
		if _, err := db.NamedExec(query, row); err != nil {
			return err
		}
		log.Printf("  ✓ Created staff: %s %s (%s)", staffNumber, member["name"], member["role"])
	}

	log.Println("✓ Successfully seeded sample staff")
	return nil
}
