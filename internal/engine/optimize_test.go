package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImproveSwapsMutuallyPreferredSlots(t *testing.T) {
	// each instructor holds the slot the other one prefers; a single swap
	// fixes both preferences at once
	cat := &Catalog{
		Courses: map[string]Course{
			"c-a": {ID: "c-a", Sessions: 1, Enrolled: 10, InstructorID: "i-1"},
			"c-b": {ID: "c-b", Sessions: 1, Enrolled: 10, InstructorID: "i-2"},
		},
		Instructors: map[string]Instructor{
			"i-1": {ID: "i-1", Preferred: []string{"ts-2"}},
			"i-2": {ID: "i-2", Preferred: []string{"ts-1"}},
		},
		Rooms: map[string]Room{"r-1": {ID: "r-1", Capacity: 40}, "r-2": {ID: "r-2", Capacity: 40}},
		Slots: map[string]TimeSlot{
			"ts-1": {ID: "ts-1", Day: 1, Start: 480, End: 540},
			"ts-2": {ID: "ts-2", Day: 2, Start: 480, End: 540},
		},
	}
	model := NewModel(DefaultWeights())
	initial := &Result{
		Assignments: []Assignment{
			{CourseID: "c-a", Session: 0, RoomID: "r-1", SlotID: "ts-1", InstructorID: "i-1"},
			{CourseID: "c-b", Session: 0, RoomID: "r-2", SlotID: "ts-2", InstructorID: "i-2"},
		},
	}
	initial.Score = model.TotalScore(cat, initial.Assignments)

	improved := Improve(cat, model, initial, 50)

	assert.Greater(t, improved.Score, initial.Score)
	assert.GreaterOrEqual(t, improved.Stats.SwapsApplied, 1)
	placements := map[string]string{}
	for _, a := range improved.Assignments {
		placements[a.CourseID] = a.SlotID
	}
	assert.Equal(t, "ts-2", placements["c-a"])
	assert.Equal(t, "ts-1", placements["c-b"])
	assert.True(t, hardLegal(cat, improved.Assignments))
	assert.False(t, improved.Stats.OptimizerBudgetExhausted, "converged with budget left")
}

func TestImproveFlagsBudgetExhaustedMidPass(t *testing.T) {
	// every instructor already holds their preferred slot, so no swap
	// improves; three assignments give three pairs and a budget of two
	// cuts the verification pass short
	cat := &Catalog{
		Courses: map[string]Course{
			"c-a": {ID: "c-a", Sessions: 1, Enrolled: 10, InstructorID: "i-1"},
			"c-b": {ID: "c-b", Sessions: 1, Enrolled: 10, InstructorID: "i-2"},
			"c-c": {ID: "c-c", Sessions: 1, Enrolled: 10, InstructorID: "i-3"},
		},
		Instructors: map[string]Instructor{
			"i-1": {ID: "i-1", Preferred: []string{"ts-1"}},
			"i-2": {ID: "i-2", Preferred: []string{"ts-2"}},
			"i-3": {ID: "i-3", Preferred: []string{"ts-3"}},
		},
		Rooms: map[string]Room{
			"r-1": {ID: "r-1", Capacity: 40},
			"r-2": {ID: "r-2", Capacity: 40},
			"r-3": {ID: "r-3", Capacity: 40},
		},
		Slots: map[string]TimeSlot{
			"ts-1": {ID: "ts-1", Day: 1, Start: 480, End: 540},
			"ts-2": {ID: "ts-2", Day: 2, Start: 480, End: 540},
			"ts-3": {ID: "ts-3", Day: 3, Start: 480, End: 540},
		},
	}
	model := NewModel(DefaultWeights())
	initial := &Result{
		Assignments: []Assignment{
			{CourseID: "c-a", Session: 0, RoomID: "r-1", SlotID: "ts-1", InstructorID: "i-1"},
			{CourseID: "c-b", Session: 0, RoomID: "r-2", SlotID: "ts-2", InstructorID: "i-2"},
			{CourseID: "c-c", Session: 0, RoomID: "r-3", SlotID: "ts-3", InstructorID: "i-3"},
		},
	}
	initial.Score = model.TotalScore(cat, initial.Assignments)

	improved := Improve(cat, model, initial, 2)

	assert.True(t, improved.Stats.OptimizerBudgetExhausted)
	assert.Equal(t, 2, improved.Stats.SwapEvaluations)
	assert.Equal(t, initial.Assignments, improved.Assignments)
	assert.Equal(t, initial.Score, improved.Score)
}

func TestImproveNeverDegradesScoreOrLegality(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	gen := NewGenerator(nil)
	model := NewModel(DefaultWeights())

	for run := 0; run < 15; run++ {
		cat := randomCatalog(rng)
		res, err := gen.Generate(cat, Options{})
		require.NoError(t, err)

		improved := Improve(cat, model, res, 100)
		assert.GreaterOrEqual(t, improved.Score, res.Score, "run %d", run)
		assert.True(t, hardLegal(cat, improved.Assignments), "run %d", run)
		assert.Len(t, improved.Assignments, len(res.Assignments), "swaps must not add or drop sessions")
	}
}

func TestImproveRespectsBudget(t *testing.T) {
	cat := fixtureCatalog()
	res, err := NewGenerator(nil).Generate(cat, Options{})
	require.NoError(t, err)

	model := NewModel(DefaultWeights())
	improved := Improve(cat, model, res, 1)
	assert.LessOrEqual(t, improved.Stats.SwapEvaluations-res.Stats.SwapEvaluations, 1)
}

func TestImproveLeavesSingleAssignmentAlone(t *testing.T) {
	cat := &Catalog{
		Courses:     map[string]Course{"c-1": {ID: "c-1", Sessions: 1, Enrolled: 5, InstructorID: "i-1"}},
		Instructors: map[string]Instructor{"i-1": {ID: "i-1"}},
		Rooms:       map[string]Room{"r-1": {ID: "r-1", Capacity: 10}},
		Slots:       map[string]TimeSlot{"ts-1": {ID: "ts-1", Day: 1, Start: 480, End: 540}},
	}
	model := NewModel(DefaultWeights())
	initial := &Result{Assignments: []Assignment{{CourseID: "c-1", Session: 0, RoomID: "r-1", SlotID: "ts-1", InstructorID: "i-1"}}}
	initial.Score = model.TotalScore(cat, initial.Assignments)

	improved := Improve(cat, model, initial, 10)
	assert.Equal(t, initial.Assignments, improved.Assignments)
	assert.Equal(t, initial.Score, improved.Score)
}
