package engine

import "sort"

// Assignment binds one session of a course to a room, time slot and
// instructor. A course with N required sessions produces N assignments.
type Assignment struct {
	CourseID     string `json:"courseId"`
	Session      int    `json:"session"`
	RoomID       string `json:"roomId"`
	SlotID       string `json:"slotId"`
	InstructorID string `json:"instructorId"`
}

// Severity distinguishes rejecting rules from scored preferences.
type Severity string

const (
	SeverityHard Severity = "HARD"
	SeveritySoft Severity = "SOFT"
)

// ViolationKind enumerates the constraint checks the engine performs.
type ViolationKind string

const (
	ViolationRoomCapacity          ViolationKind = "ROOM_CAPACITY"
	ViolationRoomCapability        ViolationKind = "ROOM_CAPABILITY"
	ViolationRoomConflict          ViolationKind = "ROOM_TIME_CONFLICT"
	ViolationRoomUnavailable       ViolationKind = "ROOM_UNAVAILABLE"
	ViolationInstructorConflict    ViolationKind = "INSTRUCTOR_TIME_CONFLICT"
	ViolationInstructorDailyCap    ViolationKind = "INSTRUCTOR_DAILY_CAP"
	ViolationInstructorUnavailable ViolationKind = "INSTRUCTOR_UNAVAILABLE"
	ViolationCourseWindow          ViolationKind = "COURSE_TIME_WINDOW"
	ViolationPreferredSlotMiss     ViolationKind = "PREFERRED_SLOT_MISS"
)

// Violation tags the assignments breaking a constraint.
type Violation struct {
	Kind        ViolationKind `json:"kind"`
	Severity    Severity      `json:"severity"`
	Assignments []Assignment  `json:"assignments"`
	Message     string        `json:"message"`
}

// RunStats records how much of the search and optimisation budgets a run
// consumed.
type RunStats struct {
	Retractions              int  `json:"retractions"`
	SearchBudgetExhausted    bool `json:"searchBudgetExhausted"`
	SwapEvaluations          int  `json:"swapEvaluations"`
	SwapsApplied             int  `json:"swapsApplied"`
	OptimizerBudgetExhausted bool `json:"optimizerBudgetExhausted"`
}

// Result is the outcome of one generation run: a best-effort assignment set
// plus everything the caller needs to judge it.
type Result struct {
	Assignments   []Assignment `json:"assignments"`
	Unresolved    []string     `json:"unresolved"`
	Score         float64      `json:"score"`
	Violations    []Violation  `json:"violations"`
	HardSatisfied bool         `json:"hardSatisfied"`
	Stats         RunStats     `json:"stats"`
}

// sortAssignments orders assignments by course ID then session index, the
// canonical result order.
func sortAssignments(assignments []Assignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if assignments[i].CourseID == assignments[j].CourseID {
			return assignments[i].Session < assignments[j].Session
		}
		return assignments[i].CourseID < assignments[j].CourseID
	})
}
