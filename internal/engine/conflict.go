package engine

import "fmt"

type roomSlotKey struct {
	RoomID string
	SlotID string
}

type instructorSlotKey struct {
	InstructorID string
	SlotID       string
}

type instructorDayKey struct {
	InstructorID string
	Day          int
}

// Tracker is the incremental conflict detector. It indexes placements by
// (room, slot) and (instructor, slot) composite keys so collision lookups
// stay O(1) in the number of overlapping slots, and it keeps the placement
// order so the search can retract the most recent assignment first.
type Tracker struct {
	cat      *Catalog
	overlaps map[string][]string

	roomSlots       map[roomSlotKey]Assignment
	instructorSlots map[instructorSlotKey]Assignment
	dailyLoad       map[instructorDayKey]int
	roomLoad        map[string]int

	// static blocks expanded across overlapping slots
	roomBlocked       map[roomSlotKey]bool
	instructorBlocked map[instructorSlotKey]bool
	windows           map[string]map[string]bool

	order []Assignment
}

// NewTracker builds the conflict index for a validated catalog.
func NewTracker(cat *Catalog) *Tracker {
	t := &Tracker{
		cat:               cat,
		overlaps:          overlapTable(cat.Slots),
		roomSlots:         make(map[roomSlotKey]Assignment),
		instructorSlots:   make(map[instructorSlotKey]Assignment),
		dailyLoad:         make(map[instructorDayKey]int),
		roomLoad:          make(map[string]int),
		roomBlocked:       make(map[roomSlotKey]bool),
		instructorBlocked: make(map[instructorSlotKey]bool),
		windows:           make(map[string]map[string]bool),
	}
	for _, room := range cat.Rooms {
		for _, slotID := range room.Unavailable {
			for _, ov := range t.overlaps[slotID] {
				t.roomBlocked[roomSlotKey{room.ID, ov}] = true
			}
		}
	}
	for _, instructor := range cat.Instructors {
		for _, slotID := range instructor.Unavailable {
			for _, ov := range t.overlaps[slotID] {
				t.instructorBlocked[instructorSlotKey{instructor.ID, ov}] = true
			}
		}
	}
	for _, course := range cat.Courses {
		if len(course.Windows) == 0 {
			continue
		}
		set := make(map[string]bool, len(course.Windows))
		for _, slotID := range course.Windows {
			set[slotID] = true
		}
		t.windows[course.ID] = set
	}
	return t
}

// Place records an assignment in the index. The caller must have verified
// hard legality first.
func (t *Tracker) Place(a Assignment) {
	t.roomSlots[roomSlotKey{a.RoomID, a.SlotID}] = a
	t.instructorSlots[instructorSlotKey{a.InstructorID, a.SlotID}] = a
	t.dailyLoad[instructorDayKey{a.InstructorID, t.cat.Slots[a.SlotID].Day}]++
	t.roomLoad[a.RoomID]++
	t.order = append(t.order, a)
}

// Retract removes a previously placed assignment from the index.
func (t *Tracker) Retract(a Assignment) {
	delete(t.roomSlots, roomSlotKey{a.RoomID, a.SlotID})
	delete(t.instructorSlots, instructorSlotKey{a.InstructorID, a.SlotID})
	dayKey := instructorDayKey{a.InstructorID, t.cat.Slots[a.SlotID].Day}
	if t.dailyLoad[dayKey] > 0 {
		t.dailyLoad[dayKey]--
	}
	if t.roomLoad[a.RoomID] > 0 {
		t.roomLoad[a.RoomID]--
	}
	for i := len(t.order) - 1; i >= 0; i-- {
		if t.order[i] == a {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Assignments returns the placed assignments in placement order.
func (t *Tracker) Assignments() []Assignment {
	out := make([]Assignment, len(t.order))
	copy(out, t.order)
	return out
}

// Check evaluates every hard constraint against the candidate and reports
// all violations in one call, so callers can log complete diagnostics even
// though the search only needs the boolean outcome.
func (t *Tracker) Check(cand Assignment) []Violation {
	var violations []Violation
	course, ok := t.cat.Courses[cand.CourseID]
	if !ok {
		return []Violation{{Kind: ViolationCourseWindow, Severity: SeverityHard, Assignments: []Assignment{cand}, Message: fmt.Sprintf("unknown course %q", cand.CourseID)}}
	}
	room := t.cat.Rooms[cand.RoomID]
	slot := t.cat.Slots[cand.SlotID]

	if room.Capacity < course.Enrolled {
		violations = append(violations, Violation{
			Kind:        ViolationRoomCapacity,
			Severity:    SeverityHard,
			Assignments: []Assignment{cand},
			Message:     fmt.Sprintf("room %s seats %d, course %s enrolls %d", room.ID, room.Capacity, course.ID, course.Enrolled),
		})
	}
	if !hasAllTags(room, course.RequiredTags) {
		violations = append(violations, Violation{
			Kind:        ViolationRoomCapability,
			Severity:    SeverityHard,
			Assignments: []Assignment{cand},
			Message:     fmt.Sprintf("room %s lacks required capabilities for course %s", room.ID, course.ID),
		})
	}
	if set, restricted := t.windows[course.ID]; restricted && !set[cand.SlotID] {
		violations = append(violations, Violation{
			Kind:        ViolationCourseWindow,
			Severity:    SeverityHard,
			Assignments: []Assignment{cand},
			Message:     fmt.Sprintf("slot %s is outside the acceptable windows of course %s", cand.SlotID, course.ID),
		})
	}
	if t.roomBlocked[roomSlotKey{cand.RoomID, cand.SlotID}] {
		violations = append(violations, Violation{
			Kind:        ViolationRoomUnavailable,
			Severity:    SeverityHard,
			Assignments: []Assignment{cand},
			Message:     fmt.Sprintf("room %s is unavailable during slot %s", room.ID, cand.SlotID),
		})
	}
	if t.instructorBlocked[instructorSlotKey{cand.InstructorID, cand.SlotID}] {
		violations = append(violations, Violation{
			Kind:        ViolationInstructorUnavailable,
			Severity:    SeverityHard,
			Assignments: []Assignment{cand},
			Message:     fmt.Sprintf("instructor %s is unavailable during slot %s", cand.InstructorID, cand.SlotID),
		})
	}
	for _, ov := range t.overlaps[cand.SlotID] {
		if occupied, exists := t.roomSlots[roomSlotKey{cand.RoomID, ov}]; exists {
			violations = append(violations, Violation{
				Kind:        ViolationRoomConflict,
				Severity:    SeverityHard,
				Assignments: []Assignment{cand, occupied},
				Message:     fmt.Sprintf("room %s already occupied by course %s in an overlapping slot", room.ID, occupied.CourseID),
			})
		}
		if occupied, exists := t.instructorSlots[instructorSlotKey{cand.InstructorID, ov}]; exists {
			violations = append(violations, Violation{
				Kind:        ViolationInstructorConflict,
				Severity:    SeverityHard,
				Assignments: []Assignment{cand, occupied},
				Message:     fmt.Sprintf("instructor %s already teaches course %s in an overlapping slot", cand.InstructorID, occupied.CourseID),
			})
		}
	}
	if instructor, exists := t.cat.Instructors[cand.InstructorID]; exists && instructor.MaxPerDay > 0 {
		if t.dailyLoad[instructorDayKey{cand.InstructorID, slot.Day}] >= instructor.MaxPerDay {
			capped := t.sameDayAssignments(cand.InstructorID, slot.Day)
			violations = append(violations, Violation{
				Kind:        ViolationInstructorDailyCap,
				Severity:    SeverityHard,
				Assignments: append([]Assignment{cand}, capped...),
				Message:     fmt.Sprintf("instructor %s would exceed %d sessions on day %d", cand.InstructorID, instructor.MaxPerDay, slot.Day),
			})
		}
	}
	return violations
}

// blockers returns the already placed assignments that stand in the way of
// the candidate, most recently placed first. Used by the backtracking step.
func (t *Tracker) blockers(cand Assignment) []Assignment {
	seen := make(map[Assignment]bool)
	var out []Assignment
	for _, v := range t.Check(cand) {
		for _, a := range v.Assignments {
			if a == cand || seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	// placement order is authoritative for recency
	recency := make(map[Assignment]int, len(t.order))
	for i, a := range t.order {
		recency[a] = i
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if recency[out[j]] > recency[out[i]] {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}

func (t *Tracker) sameDayAssignments(instructorID string, day int) []Assignment {
	var out []Assignment
	for _, a := range t.order {
		if a.InstructorID == instructorID && t.cat.Slots[a.SlotID].Day == day {
			out = append(out, a)
		}
	}
	return out
}
