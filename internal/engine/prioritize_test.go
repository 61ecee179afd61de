package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyBalanced, s)

	s, err = ParseStrategy(" Rooms ")
	require.NoError(t, err)
	assert.Equal(t, StrategyRooms, s)

	_, err = ParseStrategy("genetic")
	require.Error(t, err)
}

func TestOrderBalancedPutsScarceCoursesFirst(t *testing.T) {
	cat := fixtureCatalog()
	// small enough to fit both rooms, so c-algebra has twice the pairs
	algebra := cat.Courses["c-algebra"]
	algebra.Enrolled = 20
	cat.Courses["c-algebra"] = algebra

	ordered := Order(cat, StrategyBalanced)
	require.Len(t, ordered, 2)
	// c-biolab fits only the lab room, so its eligible pair count is lower
	assert.Equal(t, "c-biolab", ordered[0].ID)
	assert.Equal(t, "c-algebra", ordered[1].ID)
}

func TestOrderStudentsSortsByEnrollment(t *testing.T) {
	cat := fixtureCatalog()

	ordered := Order(cat, StrategyStudents)
	require.Len(t, ordered, 2)
	assert.Equal(t, "c-algebra", ordered[0].ID, "30 enrolled beats 20")
}

func TestOrderInstructorsPrefersConstrainedInstructors(t *testing.T) {
	cat := fixtureCatalog()
	ben := cat.Instructors["i-ben"]
	ben.Unavailable = []string{"ts-mon-08", "ts-mon-09", "ts-mon-10"}
	cat.Instructors["i-ben"] = ben

	ordered := Order(cat, StrategyInstructors)
	assert.Equal(t, "c-biolab", ordered[0].ID, "instructor with fewest free slots goes first")
}

func TestOrderRoomsGroupsByCapabilitySignature(t *testing.T) {
	cat := fixtureCatalog()
	cat.Courses["c-chemlab"] = Course{ID: "c-chemlab", Name: "Chemistry Lab", Sessions: 1, Enrolled: 18, RequiredTags: []string{"lab"}, InstructorID: "i-ada"}

	ordered := Order(cat, StrategyRooms)
	require.Len(t, ordered, 3)
	// lab courses cluster ahead of the untagged course: only one lab room exists
	assert.Equal(t, "c-biolab", ordered[0].ID)
	assert.Equal(t, "c-chemlab", ordered[1].ID)
	assert.Equal(t, "c-algebra", ordered[2].ID)
}

func TestOrderTiesBreakByCourseID(t *testing.T) {
	cat := fixtureCatalog()
	// identical scheduling profile, different IDs
	cat.Courses["c-zeta"] = Course{ID: "c-zeta", Sessions: 2, Enrolled: 30, InstructorID: "i-ada"}
	cat.Courses["c-alpha"] = Course{ID: "c-alpha", Sessions: 2, Enrolled: 30, InstructorID: "i-ada"}

	ordered := Order(cat, StrategyStudents)
	var tied []string
	for _, c := range ordered {
		if c.Enrolled == 30 {
			tied = append(tied, c.ID)
		}
	}
	assert.Equal(t, []string{"c-algebra", "c-alpha", "c-zeta"}, tied)
}

func TestOrderIsDeterministic(t *testing.T) {
	cat := fixtureCatalog()
	for _, strategy := range []Strategy{StrategyBalanced, StrategyRooms, StrategyInstructors, StrategyStudents} {
		first := Order(cat, strategy)
		second := Order(cat, strategy)
		assert.Equal(t, first, second, "strategy %s must be stable", strategy)
	}
}
