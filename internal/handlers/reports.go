package handlers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"reading-reports-backend/internal/middleware"
	"reading-reports-backend/internal/models"
	"reading-reports-backend/pkg/utils"

	"github.com/jmoiron/sqlx"
)

// resolveReportWindow picks the date range for a report. Explicit from/to
// override entirely when both are supplied; otherwise the report type
// selects a default window ending today.
func resolveReportWindow(reportType, fromStr, toStr string, today time.Time) (time.Time, time.Time, error) {
	today = time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())

	var from, to time.Time
	var err error
	if fromStr != "" {
		from, err = time.Parse(dateLayout, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from_date: %w", err)
		}
	}
	if toStr != "" {
		to, err = time.Parse(dateLayout, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to_date: %w", err)
		}
	}

	if !from.IsZero() && !to.IsZero() {
		return from, to, nil
	}

	switch reportType {
	case "daily":
		return today, today, nil
	case "weekly":
		return today.AddDate(0, 0, -7), today, nil
	case "monthly":
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), today, nil
	case "yearly":
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location()), today, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("invalid report type: %s", reportType)
	}
}

// averageCoverage returns the mean itin coverage rounded to two decimals,
// and 0 for an empty set.
func averageCoverage(readings []models.MeterReading) float64 {
	if len(readings) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range readings {
		sum += r.ItinCoverage
	}
	return math.Round(sum/float64(len(readings))*100) / 100
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// writeCSVReport writes the three report blocks: readings, anomalies, and
// the scalar summary.
func writeCSVReport(buf *bytes.Buffer, readings []models.MeterReading, anomalies []models.Anomaly) error {
	writer := csv.NewWriter(buf)

	writer.Write([]string{"=== METER READINGS ==="})
	writer.Write([]string{"Staff Number", "Staff Name", "Reading Date", "ITIN Coverage (%)",
		"Target Coverage (%)", "Status", "Closed Premise", "Meter Not on Site",
		"Suspected Misallocated", "Other Reason", "Comments", "Created At"})

	completed, pending, delayed := 0, 0, 0
	for _, reading := range readings {
		comments := ""
		if reading.Comments != nil {
			comments = *reading.Comments
		}
		writer.Write([]string{
			reading.StaffNumber,
			reading.StaffName,
			reading.ReadingDate.Format(dateLayout),
			formatFloat(reading.ItinCoverage),
			formatFloat(reading.TargetCoverage),
			reading.Status,
			strconv.Itoa(reading.ClosedPremise),
			strconv.Itoa(reading.MeterNotOnSite),
			strconv.Itoa(reading.SuspectedMisallocated),
			strconv.Itoa(reading.OtherReason),
			comments,
			reading.CreatedAt.Format("2006-01-02 15:04:05"),
		})

		switch reading.Status {
		case models.ReadingStatusComplete:
			completed++
		case models.ReadingStatusPending:
			pending++
		case models.ReadingStatusDelayed:
			delayed++
		}
	}

	writer.Write([]string{})
	writer.Write([]string{"=== ANOMALIES ==="})
	writer.Write([]string{"Type", "Location", "Description", "Priority", "Status",
		"Reported By", "Assigned To", "Days Open", "Created At",
		"Resolved At", "Escalated"})

	resolved, escalated := 0, 0
	for _, anomaly := range anomalies {
		assignedTo := "Unassigned"
		if anomaly.AssignedToName != nil && *anomaly.AssignedToName != "" {
			assignedTo = *anomaly.AssignedToName
		}
		resolvedAt := ""
		if anomaly.ResolvedAt != nil {
			resolvedAt = anomaly.ResolvedAt.Format("2006-01-02 15:04:05")
		}
		escalatedFlag := "No"
		if anomaly.EscalationSent {
			escalatedFlag = "Yes"
			escalated++
		}
		if anomaly.Status == models.AnomalyStatusResolved {
			resolved++
		}
		writer.Write([]string{
			anomaly.Type,
			anomaly.Location,
			anomaly.Description,
			anomaly.Priority,
			anomaly.Status,
			anomaly.ReportedByName,
			assignedTo,
			strconv.Itoa(anomaly.DaysOpen),
			anomaly.CreatedAt.Format("2006-01-02 15:04:05"),
			resolvedAt,
			escalatedFlag,
		})
	}

	writer.Write([]string{})
	writer.Write([]string{"=== SUMMARY ==="})
	writer.Write([]string{"Metric", "Value"})
	writer.Write([]string{"Total Readings", strconv.Itoa(len(readings))})
	writer.Write([]string{"Completed Readings", strconv.Itoa(completed)})
	writer.Write([]string{"Pending Readings", strconv.Itoa(pending)})
	writer.Write([]string{"Delayed Readings", strconv.Itoa(delayed)})
	writer.Write([]string{"Average Coverage (%)", formatFloat(averageCoverage(readings))})
	writer.Write([]string{"Total Anomalies", strconv.Itoa(len(anomalies))})
	writer.Write([]string{"Resolved Anomalies", strconv.Itoa(resolved)})
	writer.Write([]string{"Escalated Anomalies", strconv.Itoa(escalated)})

	writer.Flush()
	return writer.Error()
}

type GenerateReportRequest struct {
	ReportType string `json:"report_type"` // daily, weekly, monthly, yearly
	Format     string `json:"format"`      // csv only
	FromDate   string `json:"from_date"`
	ToDate     string `json:"to_date"`
}

func GenerateReport(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		var req GenerateReportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.ReportType == "" {
			utils.RespondError(w, http.StatusBadRequest, "Report type is required")
			return
		}

		from, to, err := resolveReportWindow(req.ReportType, req.FromDate, req.ToDate, time.Now())
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		// Anomalies are filtered on created_at, inclusive through the end of
		// the to-date
		anomaliesUntil := to.AddDate(0, 0, 1)

		var readings []models.MeterReading
		var anomalies []models.Anomaly
		if claims.Role == models.RoleReader {
			err = db.Select(&readings, `
				SELECT * FROM meter_readings
				WHERE staff_id = $1 AND reading_date >= $2 AND reading_date <= $3
				ORDER BY reading_date
			`, claims.StaffID, from, to)
			if err == nil {
				err = db.Select(&anomalies, `
					SELECT * FROM anomalies
					WHERE reported_by_id = $1 AND created_at >= $2 AND created_at < $3
					ORDER BY created_at
				`, claims.StaffID, from, anomaliesUntil)
			}
		} else {
			err = db.Select(&readings, `
				SELECT * FROM meter_readings
				WHERE reading_date >= $1 AND reading_date <= $2
				ORDER BY reading_date
			`, from, to)
			if err == nil {
				err = db.Select(&anomalies, `
					SELECT * FROM anomalies
					WHERE created_at >= $1 AND created_at < $2
					ORDER BY created_at
				`, from, anomaliesUntil)
			}
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch report data")
			return
		}

		var buf bytes.Buffer
		if err := writeCSVReport(&buf, readings, anomalies); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to generate report")
			return
		}

		filename := fmt.Sprintf("reading_reports_%s_%s_%s.csv",
			req.ReportType, from.Format(dateLayout), to.Format(dateLayout))

		log.Printf("✅ Report generated: %s (%d readings, %d anomalies)", filename, len(readings), len(anomalies))

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}

func GetDashboardStats(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetStaffFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		now := time.Now()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		var readings []models.MeterReading
		var anomalies []models.Anomaly
		var activeStaff int
		var err error
		if claims.Role == models.RoleReader {
			err = db.Select(&readings, `
				SELECT * FROM meter_readings
				WHERE staff_id = $1 AND reading_date >= $2
			`, claims.StaffID, firstOfMonth)
			if err == nil {
				err = db.Select(&anomalies, `
					SELECT * FROM anomalies
					WHERE reported_by_id = $1 AND created_at >= $2
				`, claims.StaffID, firstOfMonth)
			}
			activeStaff = 1 // just the current reader
		} else {
			err = db.Select(&readings, `
				SELECT * FROM meter_readings WHERE reading_date >= $1
			`, firstOfMonth)
			if err == nil {
				err = db.Select(&anomalies, `
					SELECT * FROM anomalies WHERE created_at >= $1
				`, firstOfMonth)
			}
			if err == nil {
				err = db.Get(&activeStaff, "SELECT COUNT(*) FROM staff WHERE is_active = TRUE")
			}
		}
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to fetch dashboard stats")
			return
		}

		avgCoverage := 0.0
		if len(readings) > 0 {
			sum := 0.0
			for _, reading := range readings {
				sum += reading.ItinCoverage
			}
			avgCoverage = math.Round(sum/float64(len(readings))*10) / 10
		}

		readingsToday, completedItins, pendingReviews := 0, 0, 0
		for _, reading := range readings {
			if reading.ReadingDate.Format(dateLayout) == today.Format(dateLayout) {
				readingsToday++
			}
			switch reading.Status {
			case models.ReadingStatusComplete:
				completedItins++
			case models.ReadingStatusPending:
				pendingReviews++
			}
		}

		pendingAnomalies, escalatedIssues := 0, 0
		for _, anomaly := range anomalies {
			if anomaly.Status == models.AnomalyStatusNew || anomaly.Status == models.AnomalyStatusPending {
				pendingAnomalies++
			}
			if anomaly.EscalationSent {
				escalatedIssues++
			}
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"itin_coverage":        avgCoverage,
			"active_readers":       activeStaff,
			"pending_anomalies":    pendingAnomalies,
			"escalated_issues":     escalatedIssues,
			"total_readings_today": readingsToday,
			"completed_itins":      completedItins,
			"pending_reviews":      pendingReviews,
		})
	}
}
