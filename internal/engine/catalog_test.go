package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlotOverlaps(t *testing.T) {
	mondayMorning := TimeSlot{ID: "ts-1", Day: 1, Start: 480, End: 540}
	mondayLate := TimeSlot{ID: "ts-2", Day: 1, Start: 540, End: 600}
	mondayWide := TimeSlot{ID: "ts-3", Day: 1, Start: 500, End: 620}
	tuesday := TimeSlot{ID: "ts-4", Day: 2, Start: 480, End: 540}

	assert.False(t, mondayMorning.Overlaps(mondayLate), "abutting slots do not overlap")
	assert.True(t, mondayMorning.Overlaps(mondayWide))
	assert.True(t, mondayLate.Overlaps(mondayWide))
	assert.False(t, mondayMorning.Overlaps(tuesday), "different days never overlap")
	assert.True(t, mondayMorning.Overlaps(mondayMorning))
}

func TestCatalogValidateDanglingInstructor(t *testing.T) {
	cat := fixtureCatalog()
	course := cat.Courses["c-algebra"]
	course.InstructorID = "missing"
	cat.Courses["c-algebra"] = course

	err := cat.Validate()
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "course", inputErr.Entity)
	assert.Equal(t, "c-algebra", inputErr.ID)
}

func TestCatalogValidateUnknownWindowSlot(t *testing.T) {
	cat := fixtureCatalog()
	course := cat.Courses["c-algebra"]
	course.Windows = []string{"ts-nope"}
	cat.Courses["c-algebra"] = course

	err := cat.Validate()
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "c-algebra", inputErr.ID)
}

func TestCatalogValidateBadSessionCount(t *testing.T) {
	cat := fixtureCatalog()
	course := cat.Courses["c-algebra"]
	course.Sessions = 0
	cat.Courses["c-algebra"] = course

	err := cat.Validate()
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "course", inputErr.Entity)
}

func TestCatalogValidateBadSlot(t *testing.T) {
	cat := fixtureCatalog()
	cat.Slots["ts-bad"] = TimeSlot{ID: "ts-bad", Day: 9, Start: 480, End: 540}

	err := cat.Validate()
	require.Error(t, err)
	var inputErr *InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, "time slot", inputErr.Entity)
	assert.Equal(t, "ts-bad", inputErr.ID)
}

func TestCatalogListsAreSorted(t *testing.T) {
	cat := fixtureCatalog()

	courses := cat.CourseList()
	for i := 1; i < len(courses); i++ {
		assert.Less(t, courses[i-1].ID, courses[i].ID)
	}
	slots := cat.SlotList()
	for i := 1; i < len(slots); i++ {
		assert.Less(t, slots[i-1].ID, slots[i].ID)
	}
}

// fixtureCatalog builds a small valid catalog: two courses, two rooms (one
// lab), one shared day of four hourly slots plus one on a second day.
func fixtureCatalog() *Catalog {
	return &Catalog{
		Courses: map[string]Course{
			"c-algebra": {ID: "c-algebra", Name: "Algebra", Sessions: 2, Duration: 60, Enrolled: 30, InstructorID: "i-ada"},
			"c-biolab":  {ID: "c-biolab", Name: "Biology Lab", Sessions: 1, Duration: 120, Enrolled: 20, RequiredTags: []string{"lab"}, InstructorID: "i-ben"},
		},
		Instructors: map[string]Instructor{
			"i-ada": {ID: "i-ada", Name: "Ada"},
			"i-ben": {ID: "i-ben", Name: "Ben"},
		},
		Rooms: map[string]Room{
			"r-100": {ID: "r-100", Name: "Hall 100", Capacity: 80},
			"r-lab": {ID: "r-lab", Name: "Bio Lab", Capacity: 24, Tags: []string{"lab"}},
		},
		Slots: map[string]TimeSlot{
			"ts-mon-08": {ID: "ts-mon-08", Day: 1, Start: 480, End: 540},
			"ts-mon-09": {ID: "ts-mon-09", Day: 1, Start: 540, End: 600},
			"ts-mon-10": {ID: "ts-mon-10", Day: 1, Start: 600, End: 660},
			"ts-mon-11": {ID: "ts-mon-11", Day: 1, Start: 660, End: 720},
			"ts-tue-08": {ID: "ts-tue-08", Day: 2, Start: 480, End: 540},
		},
	}
}
