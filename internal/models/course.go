package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Course is an offering that must be placed on the timetable. Sessions is
// the number of weekly meetings; AllowedSlots optionally restricts placement
// to specific time slot IDs.
type Course struct {
	ID              string         `db:"id" json:"id"`
	Code            string         `db:"code" json:"code"`
	Name            string         `db:"name" json:"name"`
	Semester        string         `db:"semester" json:"semester"`
	Sessions        int            `db:"sessions" json:"sessions"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	Enrolled        int            `db:"enrolled" json:"enrolled"`
	RequiredTags    types.JSONText `db:"required_tags" json:"required_tags"`
	AllowedSlots    types.JSONText `db:"allowed_slots" json:"allowed_slots"`
	InstructorID    string         `db:"instructor_id" json:"instructor_id"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// CourseFilter describes query params for listing courses.
type CourseFilter struct {
	Semester     string
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
