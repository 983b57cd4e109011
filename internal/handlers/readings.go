package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"reading-reports-backend/internal/middleware"
	"reading-reports-backend/internal/models"
	"reading-reports-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const dateLayout = "2006-01-02"

func GetReadings(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var readings []models.MeterReading
		var err error
		if claims.Role == models.RoleReader {
			// Readers can only see their own readings
			err = db.Select(&readings, `
				SELECT * FROM meter_readings
				WHERE staff_id = $1
				ORDER BY reading_date DESC
			`, claims.StaffID)
		} else {
			// Supervisors and engineers can see all readings
			err = db.Select(&readings, `SELECT * FROM meter_readings ORDER BY reading_date DESC`)
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch readings")
			return
		}

		anomalyCounts, err := anomalyCountsByReading(db)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch anomaly counts")
			return
		}

		responses := make([]models.MeterReadingResponse, len(readings))
		for i, reading := range readings {
			responses[i] = reading.ToMeterReadingResponse(anomalyCounts[reading.ID])
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"readings": responses})
	}
}

// anomalyCountsByReading returns the number of anomalies linked to each
// meter reading.
func anomalyCountsByReading(db *sqlx.DB) (map[string]int, error) {
	rows, err := db.Queryx(`
		SELECT meter_reading_id, COUNT(*) AS n
		FROM anomalies
		WHERE meter_reading_id IS NOT NULL
		GROUP BY meter_reading_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var readingID string
		var n int
		if err := rows.Scan(&readingID, &n); err != nil {
			return nil, err
		}
		counts[readingID] = n
	}
	return counts, rows.Err()
}

type CreateReadingRequest struct {
	ItinCoverage          float64 `json:"itin_coverage"`
	TargetCoverage        float64 `json:"target_coverage"`
	ReadingDate           string  `json:"reading_date"`
	ClosedPremise         int     `json:"closed_premise"`
	MeterNotOnSite        int     `json:"meter_not_on_site"`
	SuspectedMisallocated int     `json:"suspected_misallocated"`
	OtherReason           int     `json:"other_reason"`
	Comments              string  `json:"comments"`
	ExcelFilePath         *string `json:"excel_file_path"`
}

func CreateReading(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var req CreateReadingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		readingDate, err := time.Parse(dateLayout, req.ReadingDate)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "reading_date must be in YYYY-MM-DD format")
			return
		}

		var staff models.Staff
		err = db.Get(&staff, "SELECT * FROM staff WHERE id = $1", claims.StaffID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if req.TargetCoverage == 0 {
			req.TargetCoverage = 100
		}

		now := time.Now()
		reading := models.MeterReading{
			ID:                    uuid.New().String(),
			StaffID:               staff.ID,
			StaffName:             staff.Name,
			StaffNumber:           staff.StaffNumber,
			ItinCoverage:          req.ItinCoverage,
			TargetCoverage:        req.TargetCoverage,
			Status:                models.DeriveReadingStatus(req.ItinCoverage, req.TargetCoverage),
			ReadingDate:           readingDate,
			ClosedPremise:         req.ClosedPremise,
			MeterNotOnSite:        req.MeterNotOnSite,
			SuspectedMisallocated: req.SuspectedMisallocated,
			OtherReason:           req.OtherReason,
			Comments:              &req.Comments,
			ExcelFilePath:         req.ExcelFilePath,
			CreatedAt:             now,
			UpdatedAt:             now,
		}

		_, err = db.NamedExec(`
			INSERT INTO meter_readings (
				id, staff_id, staff_name, staff_number, itin_coverage, target_coverage,
				status, reading_date, closed_premise, meter_not_on_site,
				suspected_misallocated, other_reason, comments, excel_file_path,
				created_at, updated_at
			) VALUES (
				:id, :staff_id, :staff_name, :staff_number, :itin_coverage, :target_coverage,
				:status, :reading_date, :closed_premise, :meter_not_on_site,
				:suspected_misallocated, :other_reason, :comments, :excel_file_path,
				:created_at, :updated_at
			)
		`, &reading)
		if err != nil {
			log.Printf("❌ Failed to insert reading: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to submit reading")
			return
		}

		log.Printf("✅ Reading submitted: %s %.1f%%/%.1f%% → %s", staff.StaffNumber,
			reading.ItinCoverage, reading.TargetCoverage, reading.Status)
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Reading submitted successfully",
			"reading": reading.ToMeterReadingResponse(0),
		})
	}
}

type UpdateReadingRequest struct {
	ItinCoverage *float64 `json:"itin_coverage"`
	Status       *string  `json:"status"`
	Comments     *string  `json:"comments"`
}

// canModifyReading reports whether the caller may update the reading.
// Readers may only update rows they own.
func canModifyReading(claims middleware.StaffClaims, reading *models.MeterReading) bool {
	if claims.Role == models.RoleReader {
		return reading.StaffID == claims.StaffID
	}
	return true
}

// applyReadingPatch applies the patchable fields and refreshes updated_at.
func applyReadingPatch(reading *models.MeterReading, req UpdateReadingRequest, now time.Time) {
	if req.ItinCoverage != nil {
		reading.ItinCoverage = *req.ItinCoverage
	}
	if req.Status != nil {
		reading.Status = *req.Status
	}
	if req.Comments != nil {
		reading.Comments = req.Comments
	}
	reading.UpdatedAt = now
}

func UpdateReading(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			utils.RespondError(w, http.StatusBadRequest, "Reading id is required")
			return
		}

		var req UpdateReadingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var reading models.MeterReading
		err := db.Get(&reading, "SELECT * FROM meter_readings WHERE id = $1", id)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Reading not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if !canModifyReading(claims, &reading) {
			utils.RespondError(w, http.StatusForbidden, "Permission denied")
			return
		}

		applyReadingPatch(&reading, req, time.Now())

		_, err = db.Exec(`
			UPDATE meter_readings
			SET itin_coverage = $1, status = $2, comments = $3, updated_at = $4
			WHERE id = $5
		`, reading.ItinCoverage, reading.Status, reading.Comments, reading.UpdatedAt, id)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update reading")
			return
		}

		anomalyCounts, err := anomalyCountsByReading(db)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch anomaly counts")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Reading updated successfully",
			"reading": reading.ToMeterReadingResponse(anomalyCounts[reading.ID]),
		})
	}
}

// allowedUploadExtensions is the spreadsheet extension allow-list.
var allowedUploadExtensions = map[string]bool{
	".xlsx": true,
	".xls":  true,
	".csv":  true,
}

func allowedUploadFile(filename string) bool {
	return allowedUploadExtensions[strings.ToLower(filepath.Ext(filename))]
}

// sanitizeFilename strips any path components and reduces the name to a
// safe character set.
func sanitizeFilename(filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

func uploadDir() string {
	dir := os.Getenv("UPLOAD_DIR")
	if dir == "" {
		dir = filepath.Join("static", "uploads")
	}
	return dir
}

const maxUploadBytes = 10 << 20 // 10 MiB

// UploadReadingFile stores an uploaded spreadsheet under the uploads path.
// The file content is never opened or parsed.
func UploadReadingFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.GetStaffFromContext(r); !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "No file provided")
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()

		if header.Filename == "" {
			utils.RespondError(w, http.StatusBadRequest, "No file selected")
			return
		}

		if !allowedUploadFile(header.Filename) {
			utils.RespondError(w, http.StatusBadRequest, "Invalid file type")
			return
		}

		// Timestamp prefix avoids collisions between repeated uploads
		filename := time.Now().Format("20060102_150405_") + sanitizeFilename(header.Filename)

		dir := uploadDir()
		if err := os.MkdirAll(dir, 0o755); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to prepare upload directory")
			return
		}

		dst, err := os.Create(filepath.Join(dir, filename))
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to store file")
			return
		}
		defer dst.Close()

		if _, err := io.Copy(dst, file); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to store file")
			return
		}

		log.Printf("✅ Spreadsheet stored: %s", filename)
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"message":   "File uploaded successfully",
			"filename":  filename,
			"file_path": "/uploads/" + filename,
		})
	}
}

type readingCounts struct {
	Total     int `db:"total"`
	Completed int `db:"completed"`
	Pending   int `db:"pending"`
	Delayed   int `db:"delayed"`
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func GetReadingStats(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		countsQuery := `
			SELECT
				COUNT(*) AS total,
				COUNT(CASE WHEN status = 'complete' THEN 1 END) AS completed,
				COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending,
				COUNT(CASE WHEN status = 'delayed' THEN 1 END) AS delayed
			FROM meter_readings
		`
		// Average coverage is always over the current-month subset
		avgQuery := `
			SELECT COALESCE(AVG(itin_coverage), 0)
			FROM meter_readings
			WHERE reading_date >= $1
		`

		today := time.Now()
		firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())

		var counts readingCounts
		var avgCoverage float64
		var err error
		if claims.Role == models.RoleReader {
			err = db.Get(&counts, countsQuery+" WHERE staff_id = $1", claims.StaffID)
			if err == nil {
				err = db.Get(&avgCoverage, avgQuery+" AND staff_id = $2", firstOfMonth, claims.StaffID)
			}
		} else {
			err = db.Get(&counts, countsQuery)
			if err == nil {
				err = db.Get(&avgCoverage, avgQuery, firstOfMonth)
			}
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch reading stats")
			return
		}

		var activeStaff int
		if err := db.Get(&activeStaff, "SELECT COUNT(*) FROM staff WHERE is_active = TRUE"); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch staff count")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"total_readings":     counts.Total,
			"completed_readings": counts.Completed,
			"pending_readings":   counts.Pending,
			"delayed_readings":   counts.Delayed,
			"average_coverage":   round2(avgCoverage),
			"active_staff":       activeStaff,
		})
	}
}
