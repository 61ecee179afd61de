package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Instructor teaches courses. UnavailableSlots and PreferredSlots hold JSON
// arrays of time slot IDs; MaxPerDay of zero means unlimited.
type Instructor struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Email            string         `db:"email" json:"email"`
	MaxPerDay        int            `db:"max_per_day" json:"max_per_day"`
	UnavailableSlots types.JSONText `db:"unavailable_slots" json:"unavailable_slots"`
	PreferredSlots   types.JSONText `db:"preferred_slots" json:"preferred_slots"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// InstructorFilter describes query params for listing instructors.
type InstructorFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
