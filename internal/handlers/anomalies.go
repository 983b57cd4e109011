package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"reading-reports-backend/internal/middleware"
	"reading-reports-backend/internal/models"
	"reading-reports-backend/internal/services"
	"reading-reports-backend/internal/websocket"
	"reading-reports-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func GetAnomalies(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var anomalies []models.Anomaly
		var err error
		if claims.Role == models.RoleReader {
			// Readers can only see anomalies they reported
			err = db.Select(&anomalies, `
				SELECT * FROM anomalies
				WHERE reported_by_id = $1
				ORDER BY created_at DESC
			`, claims.StaffID)
		} else {
			// Supervisors and engineers can see all anomalies
			err = db.Select(&anomalies, `SELECT * FROM anomalies ORDER BY created_at DESC`)
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch anomalies")
			return
		}

		// Refresh the stored days_open counters while we have the rows
		now := time.Now()
		for i := range anomalies {
			daysOpen := anomalies[i].CalculateDaysOpen(now)
			if daysOpen != anomalies[i].DaysOpen {
				anomalies[i].DaysOpen = daysOpen
				if _, err := db.Exec("UPDATE anomalies SET days_open = $1 WHERE id = $2", daysOpen, anomalies[i].ID); err != nil {
					log.Printf("⚠️ Failed to refresh days_open for anomaly %s: %v", anomalies[i].ID, err)
				}
			}
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"anomalies": anomalies})
	}
}

type CreateAnomalyRequest struct {
	Type           string  `json:"type"`
	Location       string  `json:"location"`
	Description    string  `json:"description"`
	Priority       string  `json:"priority"`
	AssignedToID   *string `json:"assigned_to_id"`
	MeterReadingID *string `json:"meter_reading_id"`
}

func CreateAnomaly(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var req CreateAnomalyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Type == "" || req.Location == "" || req.Description == "" {
			utils.RespondError(w, http.StatusBadRequest, "Type, location and description are required")
			return
		}

		var reporter models.Staff
		err := db.Get(&reporter, "SELECT * FROM staff WHERE id = $1", claims.StaffID)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Staff member not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if req.Priority == "" {
			req.Priority = models.PriorityMedium
		}

		now := time.Now()
		anomaly := models.Anomaly{
			ID:             uuid.New().String(),
			Type:           req.Type,
			Location:       req.Location,
			Description:    req.Description,
			Priority:       req.Priority,
			Status:         models.AnomalyStatusNew,
			ReportedByID:   reporter.ID,
			ReportedByName: reporter.Name,
			MeterReadingID: req.MeterReadingID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}

		// Optional immediate assignment: the assignee must exist, and an
		// assigned anomaly starts out pending instead of new.
		if req.AssignedToID != nil && *req.AssignedToID != "" {
			var assignee models.Staff
			if err := db.Get(&assignee, "SELECT * FROM staff WHERE id = $1", *req.AssignedToID); err == nil {
				anomaly.AssignedToID = &assignee.ID
				anomaly.AssignedToName = &assignee.Name
				anomaly.Status = models.AnomalyStatusPending
			}
		}

		_, err = db.NamedExec(`
			INSERT INTO anomalies (
				id, type, location, description, priority, status,
				reported_by_id, reported_by_name, assigned_to_id, assigned_to_name,
				meter_reading_id, created_at, updated_at, days_open, escalation_sent
			) VALUES (
				:id, :type, :location, :description, :priority, :status,
				:reported_by_id, :reported_by_name, :assigned_to_id, :assigned_to_name,
				:meter_reading_id, :created_at, :updated_at, :days_open, :escalation_sent
			)
		`, &anomaly)
		if err != nil {
			log.Printf("❌ Failed to insert anomaly: %v", err)
			utils.RespondError(w, http.StatusInternalServerError, "Failed to report anomaly")
			return
		}

		hub.BroadcastAnomalyEvent("anomaly_created", anomaly)

		log.Printf("✅ Anomaly reported: %s at %s by %s", anomaly.Type, anomaly.Location, reporter.StaffNumber)
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Anomaly reported successfully",
			"anomaly": anomaly,
		})
	}
}

type UpdateAnomalyRequest struct {
	Status       *string `json:"status"`
	Description  *string `json:"description"`
	AssignedToID *string `json:"assigned_to_id"`
	Priority     *string `json:"priority"`
}

// canModifyAnomaly reports whether the caller may update the anomaly.
// Readers may only touch their own reports.
func canModifyAnomaly(claims middleware.StaffClaims, anomaly *models.Anomaly) bool {
	if claims.Role == models.RoleReader {
		return anomaly.ReportedByID == claims.StaffID
	}
	return true
}

// applyAnomalyPatch applies the requested field changes. Status and
// description are open to any authorized caller, and resolving stamps
// resolved_at. Priority changes and the returned assignee id are honored
// only for supervisors and engineers.
func applyAnomalyPatch(claims middleware.StaffClaims, anomaly *models.Anomaly, req UpdateAnomalyRequest, now time.Time) (assigneeID *string) {
	if req.Status != nil {
		anomaly.Status = *req.Status
		if *req.Status == models.AnomalyStatusResolved {
			anomaly.ResolvedAt = &now
		}
	}
	if req.Description != nil {
		anomaly.Description = *req.Description
	}

	if claims.Role == models.RoleSupervisor || claims.Role == models.RoleEngineer {
		if req.Priority != nil {
			anomaly.Priority = *req.Priority
		}
		if req.AssignedToID != nil && *req.AssignedToID != "" {
			assigneeID = req.AssignedToID
		}
	}

	anomaly.UpdatedAt = now
	return assigneeID
}

func UpdateAnomaly(db *sqlx.DB, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		id := chi.URLParam(r, "id")
		if id == "" {
			utils.RespondError(w, http.StatusBadRequest, "Anomaly id is required")
			return
		}

		var req UpdateAnomalyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var anomaly models.Anomaly
		err := db.Get(&anomaly, "SELECT * FROM anomalies WHERE id = $1", id)
		if err == sql.ErrNoRows {
			utils.RespondError(w, http.StatusNotFound, "Anomaly not found")
			return
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Database error")
			return
		}

		if !canModifyAnomaly(claims, &anomaly) {
			utils.RespondError(w, http.StatusForbidden, "Permission denied")
			return
		}

		now := time.Now()
		if assigneeID := applyAnomalyPatch(claims, &anomaly, req, now); assigneeID != nil {
			var assignee models.Staff
			if err := db.Get(&assignee, "SELECT * FROM staff WHERE id = $1", *assigneeID); err == nil {
				anomaly.AssignedToID = &assignee.ID
				anomaly.AssignedToName = &assignee.Name
			}
		}

		_, err = db.NamedExec(`
			UPDATE anomalies
			SET status = :status, description = :description, priority = :priority,
			    assigned_to_id = :assigned_to_id, assigned_to_name = :assigned_to_name,
			    resolved_at = :resolved_at, updated_at = :updated_at
			WHERE id = :id
		`, &anomaly)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to update anomaly")
			return
		}

		hub.BroadcastAnomalyEvent("anomaly_updated", anomaly)

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "Anomaly updated successfully",
			"anomaly": anomaly,
		})
	}
}

// EscalateAnomalies sweeps open anomalies and escalates those past the age
// threshold. The status/flag write is guarded on escalation_sent so two
// concurrent sweeps cannot both claim the same anomaly.
func EscalateAnomalies(db *sqlx.DB, mailer *services.Mailer, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var candidates []models.Anomaly
		err := db.Select(&candidates, `
			SELECT * FROM anomalies
			WHERE status != 'resolved' AND escalation_sent = FALSE
		`)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch anomalies")
			return
		}

		now := time.Now()
		escalatedCount := 0

		for i := range candidates {
			anomaly := &candidates[i]

			anomaly.DaysOpen = anomaly.CalculateDaysOpen(now)
			if _, err := db.Exec("UPDATE anomalies SET days_open = $1 WHERE id = $2", anomaly.DaysOpen, anomaly.ID); err != nil {
				log.Printf("⚠️ Failed to refresh days_open for anomaly %s: %v", anomaly.ID, err)
			}

			if !anomaly.ShouldEscalate(now) {
				continue
			}

			// Notification failure skips the anomaly, the sweep continues.
			// The email deliberately precedes the guarded claim below: an
			// anomaly is never marked escalated without a delivered email,
			// at the cost of a possible duplicate email if two sweeps race.
			if err := mailer.SendEscalationEmail(anomaly); err != nil {
				log.Printf("⚠️ Failed to send escalation email for anomaly %s: %v", anomaly.ID, err)
				continue
			}

			res, err := db.Exec(`
				UPDATE anomalies
				SET escalation_sent = TRUE, escalated_at = $1, escalation_email_sent_at = $1,
				    status = 'escalated', updated_at = $1
				WHERE id = $2 AND escalation_sent = FALSE
			`, now, anomaly.ID)
			if err != nil {
				log.Printf("⚠️ Failed to mark anomaly %s escalated: %v", anomaly.ID, err)
				continue
			}
			affected, _ := res.RowsAffected()
			if affected == 0 {
				// A concurrent sweep already escalated this one
				continue
			}

			anomaly.EscalationSent = true
			anomaly.EscalatedAt = &now
			anomaly.EscalationEmailSentAt = &now
			anomaly.Status = models.AnomalyStatusEscalated
			hub.BroadcastAnomalyEvent("anomaly_escalated", *anomaly)
			escalatedCount++
		}

		log.Printf("✅ Escalation sweep complete: %d anomalies escalated", escalatedCount)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"message":         fmt.Sprintf("Escalation check completed. %d anomalies escalated.", escalatedCount),
			"escalated_count": escalatedCount,
		})
	}
}

type anomalyCounts struct {
	Total     int `db:"total"`
	Pending   int `db:"pending"`
	Resolved  int `db:"resolved"`
	Escalated int `db:"escalated"`
}

type anomalyTypeCount struct {
	Type  string `json:"type" db:"type"`
	Count int    `json:"count" db:"count"`
}

func GetAnomalyStats(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		countsQuery := `
			SELECT
				COUNT(*) AS total,
				COUNT(CASE WHEN status = 'pending' THEN 1 END) AS pending,
				COUNT(CASE WHEN status = 'resolved' THEN 1 END) AS resolved,
				COUNT(CASE WHEN status = 'escalated' THEN 1 END) AS escalated
			FROM anomalies
		`

		var counts anomalyCounts
		var err error
		if claims.Role == models.RoleReader {
			err = db.Get(&counts, countsQuery+" WHERE reported_by_id = $1", claims.StaffID)
		} else {
			err = db.Get(&counts, countsQuery)
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch anomaly stats")
			return
		}

		var typeCounts []anomalyTypeCount
		err = db.Select(&typeCounts, `
			SELECT type, COUNT(*) AS count
			FROM anomalies
			GROUP BY type
			ORDER BY type
		`)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch anomaly type counts")
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"total_anomalies":     counts.Total,
			"pending_anomalies":   counts.Pending,
			"resolved_anomalies":  counts.Resolved,
			"escalated_anomalies": counts.Escalated,
			"anomaly_types":       typeCounts,
		})
	}
}

// GetAnomalyTypes returns the canonical anomaly category labels.
func GetAnomalyTypes() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"types": models.AnomalyTypes})
	}
}
