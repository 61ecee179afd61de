package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Room is a teaching space. Tags name the capabilities it offers (lab,
// projector, piano); UnavailableSlots holds a JSON array of slot IDs.
type Room struct {
	ID               string         `db:"id" json:"id"`
	Name             string         `db:"name" json:"name"`
	Capacity         int            `db:"capacity" json:"capacity"`
	Tags             types.JSONText `db:"tags" json:"tags"`
	UnavailableSlots types.JSONText `db:"unavailable_slots" json:"unavailable_slots"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// RoomFilter describes query params for listing rooms.
type RoomFilter struct {
	MinCapacity int
	Tag         string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
