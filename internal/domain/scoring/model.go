package scoring

import (
	"time"

	"github.com/google/uuid"

	"github.com/MatanKJaffe/CFSCalculator/internal/domain/facts"
)

// PatientRecord is one patient's raw input rows: assessment observations
// and free-text diagnosis entries, already grouped by patient number.
type PatientRecord struct {
	PatientNum  string              `json:"patient_num"`
	Assessments []facts.Observation `json:"assessments,omitempty"`
	Diagnoses   []facts.Diagnosis   `json:"diagnoses,omitempty"`
}

// Result is one patient's scored outcome, including the full fact snapshot
// the matched rule saw, so a reviewer can reconstruct why the score fired.
type Result struct {
	ID           uuid.UUID              `json:"id"`
	RunID        uuid.UUID              `json:"run_id"`
	PatientNum   string                 `json:"patient_num"`
	Score        int                    `json:"score"`
	Description  string                 `json:"description"`
	RulePriority int                    `json:"rule_priority"`
	RuleName     string                 `json:"rule_name"`
	Facts        map[string]interface{} `json:"facts"`
	CreatedAt    time.Time              `json:"created_at"`
}

// BatchSummary aggregates one scoring run.
type BatchSummary struct {
	RunID     uuid.UUID   `json:"run_id"`
	Patients  int         `json:"patients"`
	Defaulted int         `json:"defaulted"`
	ByScore   map[int]int `json:"by_score"`
}
