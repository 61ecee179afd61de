package models

import "time"

// TimetableEntry is one placed session of a published timetable.
type TimetableEntry struct {
	ID           string    `db:"id" json:"id"`
	Semester     string    `db:"semester" json:"semester"`
	JobID        string    `db:"job_id" json:"job_id"`
	CourseID     string    `db:"course_id" json:"course_id"`
	Session      int       `db:"session" json:"session"`
	RoomID       string    `db:"room_id" json:"room_id"`
	SlotID       string    `db:"slot_id" json:"slot_id"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// TimetableFilter describes query params for listing timetable entries.
type TimetableFilter struct {
	Semester     string
	CourseID     string
	InstructorID string
	RoomID       string
	Day          *int
	Page         int
	PageSize     int
}

// TimetableConflict describes an existing entry colliding with a proposed one.
// Dimension names the shared resource: room or instructor.
type TimetableConflict struct {
	EntryID      string `json:"entry_id"`
	CourseID     string `json:"course_id"`
	RoomID       string `json:"room_id"`
	SlotID       string `json:"slot_id"`
	InstructorID string `json:"instructor_id"`
	Dimension    string `json:"dimension"`
}
