package engine

// Weights tune the soft-constraint scoring. Hard constraints are rejecting
// and carry no weight: a candidate failing any hard check is never placed.
type Weights struct {
	InstructorPreference float64 `json:"instructorPreference"`
	Compactness          float64 `json:"compactness"`
	Utilization          float64 `json:"utilization"`
}

// DefaultWeights favour instructor preferences first, compact daily
// schedules second and even room utilisation last.
func DefaultWeights() Weights {
	return Weights{
		InstructorPreference: 2.0,
		Compactness:          1.0,
		Utilization:          0.5,
	}
}

func (w Weights) isZero() bool {
	return w.InstructorPreference == 0 && w.Compactness == 0 && w.Utilization == 0
}

// Model evaluates candidate placements against the constraint set. Hard
// checks delegate to the tracker; soft scores are computed incrementally
// from the tracker's indexes without rescanning the assignment set.
type Model struct {
	weights Weights
}

// NewModel builds a constraint model. Zero weights fall back to defaults.
func NewModel(weights Weights) *Model {
	if weights.isZero() {
		weights = DefaultWeights()
	}
	return &Model{weights: weights}
}

// HardSatisfied reports whether the candidate passes every hard constraint
// given the assignments already placed.
func (m *Model) HardSatisfied(t *Tracker, cand Assignment) bool {
	return len(t.Check(cand)) == 0
}

// CandidateScore returns the incremental soft score of placing the
// candidate on top of the tracker's current state. Higher is better.
func (m *Model) CandidateScore(t *Tracker, cand Assignment) float64 {
	return m.weights.InstructorPreference*preferenceScore(t, cand) +
		m.weights.Compactness*compactnessScore(t, cand) +
		m.weights.Utilization*utilizationScore(t, cand)
}

// TotalScore replays the assignment set in canonical order and accumulates
// the incremental score of each placement. Deterministic for a given set.
func (m *Model) TotalScore(cat *Catalog, assignments []Assignment) float64 {
	ordered := make([]Assignment, len(assignments))
	copy(ordered, assignments)
	sortAssignments(ordered)

	t := NewTracker(cat)
	var total float64
	for _, a := range ordered {
		total += m.CandidateScore(t, a)
		t.Place(a)
	}
	return total
}

// preferenceScore rewards slots the instructor listed as preferred, scaled
// by list position so the strongest preference scores 1.0.
func preferenceScore(t *Tracker, cand Assignment) float64 {
	instructor, ok := t.cat.Instructors[cand.InstructorID]
	if !ok || len(instructor.Preferred) == 0 {
		return 0
	}
	for i, slotID := range instructor.Preferred {
		if slotID == cand.SlotID {
			return 1.0 - float64(i)/float64(len(instructor.Preferred))
		}
	}
	return 0
}

// compactnessScore rewards placements abutting the instructor's existing
// sessions on the same day, nudging daily schedules together.
func compactnessScore(t *Tracker, cand Assignment) float64 {
	slot := t.cat.Slots[cand.SlotID]
	var adjacent float64
	for key, a := range t.instructorSlots {
		if key.InstructorID != cand.InstructorID || a == cand {
			continue
		}
		other := t.cat.Slots[a.SlotID]
		if other.Day != slot.Day {
			continue
		}
		if other.End == slot.Start || slot.End == other.Start {
			adjacent += 0.5
		}
	}
	return min(adjacent, 1.0)
}

// utilizationScore prefers rooms with fewer existing bookings so usage
// spreads evenly across the catalog.
func utilizationScore(t *Tracker, cand Assignment) float64 {
	return 1.0 / float64(1+t.roomLoad[cand.RoomID])
}
