package engine

import "sort"

// Default budgets. Both are configuration, not invariants: callers tune
// them per catalog size.
const (
	DefaultSearchBudget    = 64
	DefaultOptimizerBudget = 400
)

type pendingSession struct {
	CourseID string
	Session  int
}

type candidate struct {
	RoomID string
	SlotID string
	Score  float64
}

// searchState threads the bounded backtracking budget through one run.
type searchState struct {
	cat     *Catalog
	model   *Model
	tracker *Tracker

	priority map[string]int
	budget   int
	stats    RunStats

	unresolved map[string]bool
	pending    []pendingSession
}

// search places every session of every prioritised course, backtracking
// within budget when a session cannot be placed. It always terminates: each
// retraction consumes budget and the candidate enumeration is finite.
func search(cat *Catalog, model *Model, ordered []Course, budget int) (*Tracker, RunStats, map[string]bool) {
	s := &searchState{
		cat:        cat,
		model:      model,
		tracker:    NewTracker(cat),
		priority:   make(map[string]int, len(ordered)),
		budget:     budget,
		unresolved: make(map[string]bool),
	}
	for i, course := range ordered {
		s.priority[course.ID] = i
	}

	for _, course := range ordered {
		for session := 0; session < course.Sessions; session++ {
			if s.placeSession(course, session, true) {
				continue
			}
			// remaining sessions of this course are unresolved; move on
			s.unresolved[course.ID] = true
			break
		}
	}

	// sessions retracted during backtracking get one more placement pass,
	// without further retractions
	for _, p := range s.pending {
		if s.alreadyPlaced(p) {
			continue
		}
		course := s.cat.Courses[p.CourseID]
		if !s.placeSession(course, p.Session, false) {
			s.unresolved[p.CourseID] = true
		}
	}

	return s.tracker, s.stats, s.unresolved
}

func (s *searchState) placeSession(course Course, session int, allowBacktrack bool) bool {
	candidates := s.candidates(course)
	for _, c := range candidates {
		a := Assignment{CourseID: course.ID, Session: session, RoomID: c.RoomID, SlotID: c.SlotID, InstructorID: course.InstructorID}
		if s.model.HardSatisfied(s.tracker, a) {
			s.tracker.Place(a)
			return true
		}
	}
	if !allowBacktrack {
		return false
	}

	for _, c := range candidates {
		a := Assignment{CourseID: course.ID, Session: session, RoomID: c.RoomID, SlotID: c.SlotID, InstructorID: course.InstructorID}
		if s.evict(a) && s.model.HardSatisfied(s.tracker, a) {
			s.tracker.Place(a)
			return true
		}
		if s.budget <= 0 {
			s.stats.SearchBudgetExhausted = true
			return false
		}
	}
	return false
}

// evict retracts lower-priority assignments blocking the candidate, most
// recently placed first, spending search budget per retraction. Returns
// true when at least one blocker was removed.
func (s *searchState) evict(cand Assignment) bool {
	evicted := false
	for s.budget > 0 {
		victim, ok := s.nextVictim(cand)
		if !ok {
			break
		}
		s.budget--
		s.stats.Retractions++
		s.tracker.Retract(victim)
		s.pending = append(s.pending, pendingSession{CourseID: victim.CourseID, Session: victim.Session})
		evicted = true
	}
	if s.budget <= 0 {
		s.stats.SearchBudgetExhausted = true
	}
	return evicted
}

// nextVictim picks the blocker belonging to the lowest-priority course,
// breaking ties by recency (most recently placed first, which is how the
// tracker already orders blockers). Sessions of the candidate's own course
// are never retracted. The victim is re-queued and retried once the main
// pass finishes.
func (s *searchState) nextVictim(cand Assignment) (Assignment, bool) {
	var victim Assignment
	found := false
	for _, blocker := range s.tracker.blockers(cand) {
		if blocker.CourseID == cand.CourseID {
			continue
		}
		if !found || s.priority[blocker.CourseID] > s.priority[victim.CourseID] {
			victim = blocker
			found = true
		}
	}
	return victim, found
}

// candidates enumerates feasible (room, slot) pairs for the course, ranked
// best-first by incremental soft score with deterministic tie-breaks:
// lowest room ID, then lowest slot ID.
func (s *searchState) candidates(course Course) []candidate {
	var slots []TimeSlot
	if len(course.Windows) > 0 {
		windowed := make([]TimeSlot, 0, len(course.Windows))
		for _, slotID := range course.Windows {
			windowed = append(windowed, s.cat.Slots[slotID])
		}
		sort.Slice(windowed, func(i, j int) bool { return windowed[i].ID < windowed[j].ID })
		slots = windowed
	} else {
		slots = s.cat.SlotList()
	}

	var out []candidate
	for _, room := range s.cat.RoomList() {
		if room.Capacity < course.Enrolled || !hasAllTags(room, course.RequiredTags) {
			continue
		}
		for _, slot := range slots {
			if s.tracker.roomBlocked[roomSlotKey{room.ID, slot.ID}] {
				continue
			}
			if s.tracker.instructorBlocked[instructorSlotKey{course.InstructorID, slot.ID}] {
				continue
			}
			a := Assignment{CourseID: course.ID, RoomID: room.ID, SlotID: slot.ID, InstructorID: course.InstructorID}
			out = append(out, candidate{RoomID: room.ID, SlotID: slot.ID, Score: s.model.CandidateScore(s.tracker, a)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].RoomID != out[j].RoomID {
			return out[i].RoomID < out[j].RoomID
		}
		return out[i].SlotID < out[j].SlotID
	})
	return out
}

func (s *searchState) alreadyPlaced(p pendingSession) bool {
	for _, a := range s.tracker.order {
		if a.CourseID == p.CourseID && a.Session == p.Session {
			return true
		}
	}
	return false
}
