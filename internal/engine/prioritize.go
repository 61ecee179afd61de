package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Strategy selects the course-ordering heuristic for a generation run.
type Strategy string

const (
	// StrategyBalanced schedules harder-to-place courses first, blending
	// room/slot scarcity with enrolment size.
	StrategyBalanced Strategy = "balanced"
	// StrategyRooms groups courses sharing capability requirements so
	// scarce specialised rooms fill before general-purpose ones.
	StrategyRooms Strategy = "rooms"
	// StrategyInstructors front-loads instructors with the fewest free
	// slots or the strongest preferences.
	StrategyInstructors Strategy = "instructors"
	// StrategyStudents prioritises high-enrolment courses so they are not
	// pushed into undesirable leftover slots.
	StrategyStudents Strategy = "students"
)

// ParseStrategy validates a strategy selector supplied by the caller.
func ParseStrategy(raw string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(raw))) {
	case StrategyBalanced, "":
		return StrategyBalanced, nil
	case StrategyRooms:
		return StrategyRooms, nil
	case StrategyInstructors:
		return StrategyInstructors, nil
	case StrategyStudents:
		return StrategyStudents, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", raw)
	}
}

// Order returns the catalog's courses in scheduling priority order for the
// given strategy. All strategies are deterministic: ties break by ascending
// course ID.
func Order(cat *Catalog, strategy Strategy) []Course {
	courses := cat.CourseList()
	switch strategy {
	case StrategyRooms:
		orderByRooms(cat, courses)
	case StrategyInstructors:
		orderByInstructors(cat, courses)
	case StrategyStudents:
		orderByStudents(courses)
	default:
		orderBalanced(cat, courses)
	}
	return courses
}

// orderBalanced sorts by eligible (room, slot) pair scarcity ascending, then
// enrolment descending: the fewer legal placements a course has, the earlier
// it is attempted, which reduces late-stage backtracking.
func orderBalanced(cat *Catalog, courses []Course) {
	pairs := make(map[string]int, len(courses))
	for _, course := range courses {
		pairs[course.ID] = eligiblePairCount(cat, course)
	}
	sort.SliceStable(courses, func(i, j int) bool {
		if pairs[courses[i].ID] != pairs[courses[j].ID] {
			return pairs[courses[i].ID] < pairs[courses[j].ID]
		}
		if courses[i].Enrolled != courses[j].Enrolled {
			return courses[i].Enrolled > courses[j].Enrolled
		}
		return courses[i].ID < courses[j].ID
	})
}

// orderByRooms clusters courses by their capability-tag signature, scarcest
// room pool first, so specialised rooms are consumed by the courses that
// actually need them.
func orderByRooms(cat *Catalog, courses []Course) {
	roomPool := make(map[string]int)
	signature := make(map[string]string, len(courses))
	for _, course := range courses {
		key := tagSignature(course.RequiredTags)
		signature[course.ID] = key
		if _, ok := roomPool[key]; !ok {
			count := 0
			for _, room := range cat.Rooms {
				if hasAllTags(room, course.RequiredTags) {
					count++
				}
			}
			roomPool[key] = count
		}
	}
	sort.SliceStable(courses, func(i, j int) bool {
		si, sj := signature[courses[i].ID], signature[courses[j].ID]
		if roomPool[si] != roomPool[sj] {
			return roomPool[si] < roomPool[sj]
		}
		if si != sj {
			return si < sj
		}
		if courses[i].Enrolled != courses[j].Enrolled {
			return courses[i].Enrolled > courses[j].Enrolled
		}
		return courses[i].ID < courses[j].ID
	})
}

// orderByInstructors ranks courses whose instructors have the fewest free
// slots first, then by preference strength, raising the odds their best
// slots are still open.
func orderByInstructors(cat *Catalog, courses []Course) {
	free := make(map[string]int, len(courses))
	prefs := make(map[string]int, len(courses))
	for _, course := range courses {
		instructor := cat.Instructors[course.InstructorID]
		free[course.ID] = len(cat.Slots) - len(instructor.Unavailable)
		prefs[course.ID] = len(instructor.Preferred)
	}
	sort.SliceStable(courses, func(i, j int) bool {
		if free[courses[i].ID] != free[courses[j].ID] {
			return free[courses[i].ID] < free[courses[j].ID]
		}
		if prefs[courses[i].ID] != prefs[courses[j].ID] {
			return prefs[courses[i].ID] > prefs[courses[j].ID]
		}
		return courses[i].ID < courses[j].ID
	})
}

// orderByStudents sorts by enrolment descending.
func orderByStudents(courses []Course) {
	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].Enrolled != courses[j].Enrolled {
			return courses[i].Enrolled > courses[j].Enrolled
		}
		return courses[i].ID < courses[j].ID
	})
}

// eligiblePairCount counts the (room, slot) pairs a course could legally
// occupy in an empty timetable.
func eligiblePairCount(cat *Catalog, course Course) int {
	rooms := 0
	for _, room := range cat.Rooms {
		if room.Capacity >= course.Enrolled && hasAllTags(room, course.RequiredTags) {
			rooms++
		}
	}
	slots := len(cat.Slots)
	if len(course.Windows) > 0 {
		slots = len(course.Windows)
	}
	return rooms * slots
}

func tagSignature(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	sorted := make([]string, len(tags))
	copy(sorted, tags)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
