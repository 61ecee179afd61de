package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeAggregatesRun(t *testing.T) {
	cat := fixtureCatalog()
	ada := cat.Instructors["i-ada"]
	ada.Preferred = []string{"ts-tue-08"}
	cat.Instructors["i-ada"] = ada

	res := &Result{
		Assignments: []Assignment{
			{CourseID: "c-algebra", Session: 0, RoomID: "r-100", SlotID: "ts-mon-08", InstructorID: "i-ada"},
			{CourseID: "c-algebra", Session: 1, RoomID: "r-100", SlotID: "ts-tue-08", InstructorID: "i-ada"},
			{CourseID: "c-biolab", Session: 0, RoomID: "r-lab", SlotID: "ts-mon-08", InstructorID: "i-ben"},
		},
		Score:         3.5,
		HardSatisfied: true,
		Stats:         RunStats{Retractions: 2},
	}

	stats := Summarize(cat, res)

	assert.Equal(t, 2, stats.TotalCourses)
	assert.Equal(t, 2, stats.ScheduledCourses)
	assert.Empty(t, stats.Unresolved)
	assert.Equal(t, 3, stats.TotalSessions)
	assert.Equal(t, 3, stats.PlacedSessions)
	assert.Equal(t, 3.5, stats.SoftScore)
	assert.Equal(t, 0, stats.HardViolations)
	assert.Equal(t, 2, stats.Run.Retractions)

	// 5 slots in the fixture: two sessions in r-100 is 40%, one in r-lab 20%
	assert.InDelta(t, 40.0, stats.RoomUtilization["r-100"], 1e-9)
	assert.InDelta(t, 20.0, stats.RoomUtilization["r-lab"], 1e-9)

	assert.Equal(t, 2, stats.InstructorLoad["i-ada"])
	assert.Equal(t, 1, stats.InstructorLoad["i-ben"])

	// i-ada prefers ts-tue-08 and got it only once
	assert.Equal(t, 1, stats.SoftViolations)
}

func TestSummarizeCountsUnresolvedCourses(t *testing.T) {
	cat := fixtureCatalog()
	res := &Result{
		Assignments: []Assignment{
			{CourseID: "c-biolab", Session: 0, RoomID: "r-lab", SlotID: "ts-mon-08", InstructorID: "i-ben"},
		},
		Unresolved: []string{"c-algebra"},
	}

	stats := Summarize(cat, res)

	assert.Equal(t, 1, stats.ScheduledCourses)
	assert.Equal(t, []string{"c-algebra"}, stats.Unresolved)
	assert.Equal(t, 1, stats.PlacedSessions)
	assert.Equal(t, 3, stats.TotalSessions)
}

func TestSummarizeZeroFillsIdleResources(t *testing.T) {
	cat := fixtureCatalog()
	res := &Result{}

	stats := Summarize(cat, res)

	assert.Equal(t, 0, stats.InstructorLoad["i-ada"])
	assert.Equal(t, 0, stats.InstructorLoad["i-ben"])
	assert.Zero(t, stats.RoomUtilization["r-100"])
	assert.Zero(t, stats.RoomUtilization["r-lab"])
	assert.Equal(t, 0, stats.PlacedSessions)
	assert.Equal(t, 2, stats.TotalCourses)
	require.Len(t, stats.RoomUtilization, 2)
}
