package models

import "time"

const (
	ReadingStatusPending   = "pending"
	ReadingStatusComplete  = "complete"
	ReadingStatusDelayed   = "delayed"
	ReadingStatusEscalated = "escalated" // declared for parity with anomalies; never set by reading logic
)

// Coverage at or above this floor (but below target) counts as pending.
const pendingCoverageFloor = 90.0

type MeterReading struct {
	ID                    string    `json:"id" db:"id"`
	StaffID               string    `json:"staff_id" db:"staff_id"`
	StaffName             string    `json:"staff_name" db:"staff_name"`     // snapshot at creation, never resynced
	StaffNumber           string    `json:"staff_number" db:"staff_number"` // snapshot at creation
	ItinCoverage          float64   `json:"itin_coverage" db:"itin_coverage"`
	TargetCoverage        float64   `json:"target_coverage" db:"target_coverage"`
	Status                string    `json:"status" db:"status"`
	ReadingDate           time.Time `json:"-" db:"reading_date"`
	ClosedPremise         int       `json:"closed_premise" db:"closed_premise"`
	MeterNotOnSite        int       `json:"meter_not_on_site" db:"meter_not_on_site"`
	SuspectedMisallocated int       `json:"suspected_misallocated" db:"suspected_misallocated"`
	OtherReason           int       `json:"other_reason" db:"other_reason"`
	Comments              *string   `json:"comments" db:"comments"`
	ExcelFilePath         *string   `json:"excel_file_path" db:"excel_file_path"`
	CreatedAt             time.Time `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time `json:"updated_at" db:"updated_at"`
}

// DeriveReadingStatus computes the initial status of a submission from its
// coverage versus the target. Exactly one branch applies for any pair of
// values: complete at or above target, pending from 90 up to target,
// delayed below 90.
func DeriveReadingStatus(itinCoverage, targetCoverage float64) string {
	switch {
	case itinCoverage >= targetCoverage:
		return ReadingStatusComplete
	case itinCoverage >= pendingCoverageFloor:
		return ReadingStatusPending
	default:
		return ReadingStatusDelayed
	}
}

type MeterReadingResponse struct {
	ID                    string    `json:"id"`
	StaffID               string    `json:"staff_id"`
	StaffName             string    `json:"staff_name"`
	StaffNumber           string    `json:"staff_number"`
	ItinCoverage          float64   `json:"itin_coverage"`
	TargetCoverage        float64   `json:"target_coverage"`
	Status                string    `json:"status"`
	ReadingDate           string    `json:"reading_date"`
	ClosedPremise         int       `json:"closed_premise"`
	MeterNotOnSite        int       `json:"meter_not_on_site"`
	SuspectedMisallocated int       `json:"suspected_misallocated"`
	OtherReason           int       `json:"other_reason"`
	Comments              *string   `json:"comments"`
	ExcelFilePath         *string   `json:"excel_file_path"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
	Anomalies             int       `json:"anomalies"`
}

func (m *MeterReading) ToMeterReadingResponse(anomalyCount int) MeterReadingResponse {
	return MeterReadingResponse{
		ID:                    m.ID,
		StaffID:               m.StaffID,
		StaffName:             m.StaffName,
		StaffNumber:           m.StaffNumber,
		ItinCoverage:          m.ItinCoverage,
		TargetCoverage:        m.TargetCoverage,
		Status:                m.Status,
		ReadingDate:           m.ReadingDate.Format("2006-01-02"),
		ClosedPremise:         m.ClosedPremise,
		MeterNotOnSite:        m.MeterNotOnSite,
		SuspectedMisallocated: m.SuspectedMisallocated,
		OtherReason:           m.OtherReason,
		Comments:              m.Comments,
		ExcelFilePath:         m.ExcelFilePath,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		Anomalies:             anomalyCount,
	}
}
