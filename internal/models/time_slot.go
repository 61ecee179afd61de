package models

import "time"

// TimeSlot is a bookable interval on the weekly grid. Day is ISO weekday
// (1 = Monday); StartMinute and EndMinute are minutes from midnight.
type TimeSlot struct {
	ID          string    `db:"id" json:"id"`
	Label       string    `db:"label" json:"label"`
	Day         int       `db:"day" json:"day"`
	StartMinute int       `db:"start_minute" json:"start_minute"`
	EndMinute   int       `db:"end_minute" json:"end_minute"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
