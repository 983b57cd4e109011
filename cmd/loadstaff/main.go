package main

import (
	"fmt"
	"log"
	"os"

	"reading-reports-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// Maintenance tool: wipes the staff table and loads the current field
// roster. PINs are derived from staff numbers; the stored pin column is
// informational only.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	roster := []struct {
		StaffNumber string
		Name        string
		Role        string
	}{
		{"85891", "User", models.RoleReader},
		{"80909", "Omweri", models.RoleReader},
		{"86002", "Samwel", models.RoleReader},
		{"53050", "Mackenzie", models.RoleSupervisor},
		{"85915", "Moenga", models.RoleReader},
	}

	securityAnswer, err := bcrypt.GenerateFromPassword([]byte("sample"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash security answer: %v", err)
	}

	tx, err := db.Beginx()
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback()

	// Clear existing staff
	if _, err := tx.Exec("DELETE FROM staff"); err != nil {
		log.Fatalf("Failed to clear staff table: %v", err)
	}

	for _, member := range roster {
		_, err := tx.Exec(`
			INSERT INTO staff (id, staff_number, name, pin, role, security_question, security_answer)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.New().String(), member.StaffNumber, member.Name,
			models.DerivedPin(member.StaffNumber), member.Role,
			"What is your mother's maiden name?", string(securityAnswer))
		if err != nil {
			log.Fatalf("Failed to insert staff %s: %v", member.StaffNumber, err)
		}
		log.Printf("  ✓ Loaded staff: %s %s (%s)", member.StaffNumber, member.Name, member.Role)
	}

	if err := tx.Commit(); err != nil {
		log.Fatalf("Failed to commit staff reload: %v", err)
	}

	var summary struct {
		Total       int `db:"total"`
		Readers     int `db:"readers"`
		Supervisors int `db:"supervisors"`
		Engineers   int `db:"engineers"`
	}
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN role = 'reader' THEN 1 END) AS readers,
			COUNT(CASE WHEN role = 'supervisor' THEN 1 END) AS supervisors,
			COUNT(CASE WHEN role = 'engineer' THEN 1 END) AS engineers
		FROM staff
	`
	if err := db.Get(&summary, query); err != nil {
		log.Fatalf("Failed to query summary: %v", err)
	}

	fmt.Println("\n============================================================")
	fmt.Println("STAFF RELOAD SUMMARY")
	fmt.Println("============================================================")
	fmt.Printf("Total staff loaded:      %d\n", summary.Total)
	fmt.Printf("Readers:                 %d\n", summary.Readers)
	fmt.Printf("Supervisors:             %d\n", summary.Supervisors)
	fmt.Printf("Engineers:               %d\n", summary.Engineers)
	fmt.Println("============================================================")
}
