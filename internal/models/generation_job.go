package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// GenerationJobStatus tracks the lifecycle of an asynchronous timetable run.
type GenerationJobStatus string

const (
	GenerationJobPending   GenerationJobStatus = "PENDING"
	GenerationJobRunning   GenerationJobStatus = "RUNNING"
	GenerationJobCompleted GenerationJobStatus = "COMPLETED"
	GenerationJobFailed    GenerationJobStatus = "FAILED"
)

// GenerationJob records one generation request and its outcome. Unresolved,
// Violations and Stats carry engine output as JSON for later inspection.
type GenerationJob struct {
	ID            string              `db:"id" json:"id"`
	Semester      string              `db:"semester" json:"semester"`
	Strategy      string              `db:"strategy" json:"strategy"`
	Status        GenerationJobStatus `db:"status" json:"status"`
	Score         float64             `db:"score" json:"score"`
	HardSatisfied bool                `db:"hard_satisfied" json:"hard_satisfied"`
	Unresolved    types.JSONText      `db:"unresolved" json:"unresolved"`
	Violations    types.JSONText      `db:"violations" json:"violations"`
	Stats         types.JSONText      `db:"stats" json:"stats"`
	Error         *string             `db:"error" json:"error,omitempty"`
	RequestedBy   string              `db:"requested_by" json:"requested_by"`
	StartedAt     *time.Time          `db:"started_at" json:"started_at,omitempty"`
	FinishedAt    *time.Time          `db:"finished_at" json:"finished_at,omitempty"`
	CreatedAt     time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `db:"updated_at" json:"updated_at"`
}
