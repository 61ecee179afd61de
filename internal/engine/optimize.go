package engine

// Improve runs bounded pairwise-swap local search over the result's
// (room, slot) pairs. A swap is applied only when it is hard-constraint
// legal and strictly improves the soft score, so the returned result is
// never worse than the input and never gains a hard violation. This is
// hill climbing, not global optimisation.
func Improve(cat *Catalog, model *Model, res *Result, budget int) *Result {
	if budget <= 0 {
		budget = DefaultOptimizerBudget
	}
	assignments := make([]Assignment, len(res.Assignments))
	copy(assignments, res.Assignments)
	sortAssignments(assignments)

	score := model.TotalScore(cat, assignments)
	remaining := budget
	stats := res.Stats

	improvedInPass := true
pass:
	for improvedInPass && remaining > 0 {
		improvedInPass = false
		for i := 0; i < len(assignments); i++ {
			for j := i + 1; j < len(assignments); j++ {
				if remaining == 0 {
					// pass cut short; convergence unconfirmed
					stats.OptimizerBudgetExhausted = true
					break pass
				}
				remaining--
				stats.SwapEvaluations++

				trial := swapPlacements(assignments, i, j)
				if !hardLegal(cat, trial) {
					continue
				}
				trialScore := model.TotalScore(cat, trial)
				if trialScore > score {
					assignments = trial
					score = trialScore
					stats.SwapsApplied++
					improvedInPass = true
				}
			}
		}
	}
	// budget spent on the exact last pair of an improving pass: the
	// follow-up pass never ran
	if remaining == 0 && improvedInPass {
		stats.OptimizerBudgetExhausted = true
	}

	out := *res
	out.Assignments = assignments
	out.Score = score
	out.Stats = stats
	return &out
}

// swapPlacements returns a copy with the (room, slot) pairs of positions i
// and j exchanged. Course, session and instructor bindings stay put.
func swapPlacements(assignments []Assignment, i, j int) []Assignment {
	trial := make([]Assignment, len(assignments))
	copy(trial, assignments)
	trial[i].RoomID, trial[j].RoomID = trial[j].RoomID, trial[i].RoomID
	trial[i].SlotID, trial[j].SlotID = trial[j].SlotID, trial[i].SlotID
	return trial
}

// hardLegal replays the assignment set against a fresh tracker and reports
// whether every placement passes all hard constraints.
func hardLegal(cat *Catalog, assignments []Assignment) bool {
	t := NewTracker(cat)
	for _, a := range assignments {
		if len(t.Check(a)) > 0 {
			return false
		}
		t.Place(a)
	}
	return true
}

// auditHardConstraints re-checks a final assignment set and returns any
// residual hard violations. A clean run returns nil.
func auditHardConstraints(cat *Catalog, assignments []Assignment) []Violation {
	t := NewTracker(cat)
	var violations []Violation
	for _, a := range assignments {
		violations = append(violations, t.Check(a)...)
		t.Place(a)
	}
	return violations
}
