package engine

// Statistics summarises one generation run for the caller. Produced by a
// pure aggregation over the catalog and result; nothing is mutated.
type Statistics struct {
	TotalCourses     int                `json:"totalCourses"`
	ScheduledCourses int                `json:"scheduledCourses"`
	Unresolved       []string           `json:"unresolved"`
	TotalSessions    int                `json:"totalSessions"`
	PlacedSessions   int                `json:"placedSessions"`
	RoomUtilization  map[string]float64 `json:"roomUtilization"` // percent of slots occupied
	InstructorLoad   map[string]int     `json:"instructorLoad"`  // sessions per instructor
	SoftScore        float64            `json:"softScore"`
	HardViolations   int                `json:"hardViolations"`
	SoftViolations   int                `json:"softViolations"` // preferred-slot misses
	Run              RunStats           `json:"run"`
}

// Summarize aggregates room utilisation, instructor load and violation
// counts from a finished run.
func Summarize(cat *Catalog, res *Result) Statistics {
	stats := Statistics{
		TotalCourses:    len(cat.Courses),
		Unresolved:      append([]string(nil), res.Unresolved...),
		RoomUtilization: make(map[string]float64, len(cat.Rooms)),
		InstructorLoad:  make(map[string]int, len(cat.Instructors)),
		SoftScore:       res.Score,
		HardViolations:  len(res.Violations),
		Run:             res.Stats,
	}

	for _, course := range cat.Courses {
		stats.TotalSessions += course.Sessions
	}
	stats.PlacedSessions = len(res.Assignments)

	unresolved := make(map[string]bool, len(res.Unresolved))
	for _, id := range res.Unresolved {
		unresolved[id] = true
	}
	for id := range cat.Courses {
		if !unresolved[id] {
			stats.ScheduledCourses++
		}
	}

	roomSessions := make(map[string]int, len(cat.Rooms))
	for _, a := range res.Assignments {
		roomSessions[a.RoomID]++
		stats.InstructorLoad[a.InstructorID]++
		if missesPreference(cat, a) {
			stats.SoftViolations++
		}
	}
	totalSlots := len(cat.Slots)
	for id := range cat.Rooms {
		if totalSlots == 0 {
			stats.RoomUtilization[id] = 0
			continue
		}
		stats.RoomUtilization[id] = float64(roomSessions[id]) / float64(totalSlots) * 100
	}
	for id := range cat.Instructors {
		if _, ok := stats.InstructorLoad[id]; !ok {
			stats.InstructorLoad[id] = 0
		}
	}
	return stats
}

// missesPreference reports whether the assignment ignores the instructor's
// preferred slots. Instructors without preferences never miss.
func missesPreference(cat *Catalog, a Assignment) bool {
	instructor, ok := cat.Instructors[a.InstructorID]
	if !ok || len(instructor.Preferred) == 0 {
		return false
	}
	for _, slotID := range instructor.Preferred {
		if slotID == a.SlotID {
			return false
		}
	}
	return true
}
