package dto

// CheckConflictRequest asks whether a proposed placement collides with the
// published timetable for a semester.
type CheckConflictRequest struct {
	Semester     string `json:"semester" validate:"required"`
	SlotID       string `json:"slotId" validate:"required"`
	RoomID       string `json:"roomId" validate:"required"`
	InstructorID string `json:"instructorId" validate:"required"`
}

// ConflictCheckResponse lists colliding entries, if any.
type ConflictCheckResponse struct {
	Conflicting bool           `json:"conflicting"`
	Conflicts   []ConflictView `json:"conflicts"`
}

// ConflictView describes one collision with an existing entry.
type ConflictView struct {
	EntryID      string `json:"entryId"`
	CourseID     string `json:"courseId"`
	RoomID       string `json:"roomId"`
	SlotID       string `json:"slotId"`
	InstructorID string `json:"instructorId"`
	Dimension    string `json:"dimension"`
}
