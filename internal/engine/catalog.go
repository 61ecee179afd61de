// Package engine implements the timetable generation core: a constraint
// model over an immutable catalog snapshot, course prioritisation
// strategies, a bounded backtracking slot search and a local soft-score
// optimiser. The package is pure: it never touches storage or transport.
package engine

import (
	"fmt"
	"sort"
)

// Course describes one course to be scheduled within a generation run.
type Course struct {
	ID           string
	Name         string
	Sessions     int // required weekly session count
	Duration     int // session duration in minutes
	Enrolled     int
	RequiredTags []string // room capability tags the course needs
	InstructorID string
	Windows      []string // acceptable slot IDs; empty means unrestricted
}

// Instructor captures availability and preference inputs for scheduling.
type Instructor struct {
	ID          string
	Name        string
	Unavailable []string // blocked slot IDs
	Preferred   []string // ordered slot IDs, strongest preference first
	MaxPerDay   int      // hard sessions-per-day cap; 0 means uncapped
}

// Room is a schedulable location with capacity and capability tags.
type Room struct {
	ID          string
	Name        string
	Capacity    int
	Tags        []string
	Unavailable []string // maintenance or reservation slot IDs
}

// TimeSlot is a discrete teaching window on one day of the week.
type TimeSlot struct {
	ID    string
	Day   int // 1 = Monday .. 7 = Sunday
	Start int // minutes from midnight
	End   int
}

// Overlaps reports whether two slots occupy intersecting wall-clock time.
func (s TimeSlot) Overlaps(o TimeSlot) bool {
	if s.Day != o.Day {
		return false
	}
	return max(s.Start, o.Start) < min(s.End, o.End)
}

// Catalog is the read-only problem instance for one generation run.
type Catalog struct {
	Courses     map[string]Course
	Instructors map[string]Instructor
	Rooms       map[string]Room
	Slots       map[string]TimeSlot
}

// InputError flags a malformed or inconsistent catalog entity. Validation
// fails fast before any search work begins.
type InputError struct {
	Entity string
	ID     string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Entity, e.ID, e.Reason)
}

// Validate checks referential integrity and basic shape of the catalog.
// Entities are visited in ascending ID order so the first reported error is
// deterministic.
func (c *Catalog) Validate() error {
	for _, slot := range c.SlotList() {
		if slot.Day < 1 || slot.Day > 7 {
			return &InputError{Entity: "time slot", ID: slot.ID, Reason: "day must be between 1 and 7"}
		}
		if slot.Start >= slot.End {
			return &InputError{Entity: "time slot", ID: slot.ID, Reason: "start must precede end"}
		}
	}
	for _, room := range c.RoomList() {
		if room.Capacity <= 0 {
			return &InputError{Entity: "room", ID: room.ID, Reason: "capacity must be positive"}
		}
		for _, slotID := range room.Unavailable {
			if _, ok := c.Slots[slotID]; !ok {
				return &InputError{Entity: "room", ID: room.ID, Reason: fmt.Sprintf("unknown unavailable slot %q", slotID)}
			}
		}
	}
	for _, instructor := range c.InstructorList() {
		for _, slotID := range instructor.Unavailable {
			if _, ok := c.Slots[slotID]; !ok {
				return &InputError{Entity: "instructor", ID: instructor.ID, Reason: fmt.Sprintf("unknown unavailable slot %q", slotID)}
			}
		}
		for _, slotID := range instructor.Preferred {
			if _, ok := c.Slots[slotID]; !ok {
				return &InputError{Entity: "instructor", ID: instructor.ID, Reason: fmt.Sprintf("unknown preferred slot %q", slotID)}
			}
		}
		if instructor.MaxPerDay < 0 {
			return &InputError{Entity: "instructor", ID: instructor.ID, Reason: "max sessions per day cannot be negative"}
		}
	}
	for _, course := range c.CourseList() {
		if course.Sessions <= 0 {
			return &InputError{Entity: "course", ID: course.ID, Reason: "required session count must be positive"}
		}
		if course.Enrolled < 0 {
			return &InputError{Entity: "course", ID: course.ID, Reason: "enrolled count cannot be negative"}
		}
		if _, ok := c.Instructors[course.InstructorID]; !ok {
			return &InputError{Entity: "course", ID: course.ID, Reason: fmt.Sprintf("unknown instructor %q", course.InstructorID)}
		}
		for _, slotID := range course.Windows {
			if _, ok := c.Slots[slotID]; !ok {
				return &InputError{Entity: "course", ID: course.ID, Reason: fmt.Sprintf("unknown window slot %q", slotID)}
			}
		}
	}
	return nil
}

// CourseList returns courses ordered by ascending ID.
func (c *Catalog) CourseList() []Course {
	list := make([]Course, 0, len(c.Courses))
	for _, course := range c.Courses {
		list = append(list, course)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// InstructorList returns instructors ordered by ascending ID.
func (c *Catalog) InstructorList() []Instructor {
	list := make([]Instructor, 0, len(c.Instructors))
	for _, instructor := range c.Instructors {
		list = append(list, instructor)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// RoomList returns rooms ordered by ascending ID.
func (c *Catalog) RoomList() []Room {
	list := make([]Room, 0, len(c.Rooms))
	for _, room := range c.Rooms {
		list = append(list, room)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// SlotList returns time slots ordered by ascending ID.
func (c *Catalog) SlotList() []TimeSlot {
	list := make([]TimeSlot, 0, len(c.Slots))
	for _, slot := range c.Slots {
		list = append(list, slot)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// overlapTable precomputes, for every slot, the set of slot IDs that overlap
// it (itself included). Overlap is a derived relation, never stored.
func overlapTable(slots map[string]TimeSlot) map[string][]string {
	table := make(map[string][]string, len(slots))
	ids := make([]string, 0, len(slots))
	for id := range slots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, a := range ids {
		for _, b := range ids {
			if slots[a].Overlaps(slots[b]) {
				table[a] = append(table[a], b)
			}
		}
	}
	return table
}

func hasAllTags(room Room, required []string) bool {
	if len(required) == 0 {
		return true
	}
	tags := make(map[string]struct{}, len(room.Tags))
	for _, tag := range room.Tags {
		tags[tag] = struct{}{}
	}
	for _, tag := range required {
		if _, ok := tags[tag]; !ok {
			return false
		}
	}
	return true
}
