package dto

import "time"

// GenerateTimetableRequest starts an asynchronous generation run for a
// semester. Budgets and weights default from server configuration when zero.
type GenerateTimetableRequest struct {
	Semester          string  `json:"semester" validate:"required"`
	Strategy          string  `json:"strategy" validate:"omitempty,oneof=balanced rooms instructors students"`
	SearchBudget      int     `json:"searchBudget" validate:"omitempty,min=1"`
	OptimizerBudget   int     `json:"optimizerBudget" validate:"omitempty,min=1"`
	PreferenceWeight  float64 `json:"preferenceWeight" validate:"omitempty,min=0"`
	CompactnessWeight float64 `json:"compactnessWeight" validate:"omitempty,min=0"`
	UtilizationWeight float64 `json:"utilizationWeight" validate:"omitempty,min=0"`
}

// GenerateTimetableResponse acknowledges a queued run.
type GenerateTimetableResponse struct {
	JobID    string `json:"jobId"`
	Semester string `json:"semester"`
	Status   string `json:"status"`
}

// AssignmentView is one placed session in job and timetable responses.
type AssignmentView struct {
	CourseID     string `json:"courseId"`
	Session      int    `json:"session"`
	RoomID       string `json:"roomId"`
	SlotID       string `json:"slotId"`
	InstructorID string `json:"instructorId"`
}

// ViolationView reports a hard or soft rule breach on one or more assignments.
type ViolationView struct {
	Kind        string           `json:"kind"`
	Severity    string           `json:"severity"`
	Message     string           `json:"message"`
	Assignments []AssignmentView `json:"assignments,omitempty"`
}

// RunStatsView summarises search effort for one run.
type RunStatsView struct {
	Retractions              int  `json:"retractions"`
	SearchBudgetExhausted    bool `json:"searchBudgetExhausted"`
	SwapEvaluations          int  `json:"swapEvaluations"`
	SwapsApplied             int  `json:"swapsApplied"`
	OptimizerBudgetExhausted bool `json:"optimizerBudgetExhausted"`
}

// GenerationJobResponse reports job progress and, once completed, the
// resulting schedule quality.
type GenerationJobResponse struct {
	JobID         string           `json:"jobId"`
	Semester      string           `json:"semester"`
	Strategy      string           `json:"strategy"`
	Status        string           `json:"status"`
	Score         float64          `json:"score"`
	HardSatisfied bool             `json:"hardSatisfied"`
	Unresolved    []string         `json:"unresolved,omitempty"`
	Violations    []ViolationView  `json:"violations,omitempty"`
	Assignments   []AssignmentView `json:"assignments,omitempty"`
	Stats         *RunStatsView    `json:"stats,omitempty"`
	Error         string           `json:"error,omitempty"`
	StartedAt     *time.Time       `json:"startedAt,omitempty"`
	FinishedAt    *time.Time       `json:"finishedAt,omitempty"`
}

// TimetableStatisticsResponse aggregates one semester's published schedule.
type TimetableStatisticsResponse struct {
	Semester         string             `json:"semester"`
	TotalCourses     int                `json:"totalCourses"`
	ScheduledCourses int                `json:"scheduledCourses"`
	Unresolved       []string           `json:"unresolved"`
	TotalSessions    int                `json:"totalSessions"`
	PlacedSessions   int                `json:"placedSessions"`
	RoomUtilization  map[string]float64 `json:"roomUtilization"`
	InstructorLoad   map[string]int     `json:"instructorLoad"`
	SoftScore        float64            `json:"softScore"`
	HardViolations   int                `json:"hardViolations"`
	SoftViolations   int                `json:"softViolations"`
	Run              RunStatsView       `json:"run"`
}
