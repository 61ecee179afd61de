package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type mockCourseRepo struct {
	items map[string]*models.Course
	seq   int
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{items: map[string]*models.Course{}}
}

func (m *mockCourseRepo) List(_ context.Context, _ models.CourseFilter) ([]models.Course, int, error) {
	var out []models.Course
	for _, c := range m.items {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (m *mockCourseRepo) FindByID(_ context.Context, id string) (*models.Course, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *c
	return &clone, nil
}

func (m *mockCourseRepo) Create(_ context.Context, course *models.Course) error {
	m.seq++
	if course.ID == "" {
		course.ID = fmt.Sprintf("c-%d", m.seq)
	}
	stored := *course
	m.items[course.ID] = &stored
	return nil
}

func (m *mockCourseRepo) Update(_ context.Context, course *models.Course) error {
	if _, ok := m.items[course.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *course
	m.items[course.ID] = &stored
	return nil
}

func (m *mockCourseRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type mockInstructorRepo struct {
	items map[string]*models.Instructor
	seq   int
}

func newMockInstructorRepo() *mockInstructorRepo {
	return &mockInstructorRepo{items: map[string]*models.Instructor{}}
}

func (m *mockInstructorRepo) List(_ context.Context, _ models.InstructorFilter) ([]models.Instructor, int, error) {
	var out []models.Instructor
	for _, i := range m.items {
		out = append(out, *i)
	}
	return out, len(out), nil
}

func (m *mockInstructorRepo) FindByID(_ context.Context, id string) (*models.Instructor, error) {
	i, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *i
	return &clone, nil
}

func (m *mockInstructorRepo) Create(_ context.Context, instructor *models.Instructor) error {
	m.seq++
	if instructor.ID == "" {
		instructor.ID = fmt.Sprintf("i-%d", m.seq)
	}
	stored := *instructor
	m.items[instructor.ID] = &stored
	return nil
}

func (m *mockInstructorRepo) Update(_ context.Context, instructor *models.Instructor) error {
	if _, ok := m.items[instructor.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *instructor
	m.items[instructor.ID] = &stored
	return nil
}

func (m *mockInstructorRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type mockRoomRepo struct {
	items map[string]*models.Room
	seq   int
}

func newMockRoomRepo() *mockRoomRepo {
	return &mockRoomRepo{items: map[string]*models.Room{}}
}

func (m *mockRoomRepo) List(_ context.Context, _ models.RoomFilter) ([]models.Room, int, error) {
	var out []models.Room
	for _, r := range m.items {
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (m *mockRoomRepo) FindByID(_ context.Context, id string) (*models.Room, error) {
	r, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *r
	return &clone, nil
}

func (m *mockRoomRepo) Create(_ context.Context, room *models.Room) error {
	m.seq++
	if room.ID == "" {
		room.ID = fmt.Sprintf("r-%d", m.seq)
	}
	stored := *room
	m.items[room.ID] = &stored
	return nil
}

func (m *mockRoomRepo) Update(_ context.Context, room *models.Room) error {
	if _, ok := m.items[room.ID]; !ok {
		return sql.ErrNoRows
	}
	stored := *room
	m.items[room.ID] = &stored
	return nil
}

func (m *mockRoomRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

type mockTimeSlotRepo struct {
	items map[string]*models.TimeSlot
	seq   int
}

func newMockTimeSlotRepo() *mockTimeSlotRepo {
	return &mockTimeSlotRepo{items: map[string]*models.TimeSlot{}}
}

func (m *mockTimeSlotRepo) ListAll(_ context.Context) ([]models.TimeSlot, error) {
	var out []models.TimeSlot
	for _, s := range m.items {
		out = append(out, *s)
	}
	return out, nil
}

func (m *mockTimeSlotRepo) FindByID(_ context.Context, id string) (*models.TimeSlot, error) {
	s, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *s
	return &clone, nil
}

func (m *mockTimeSlotRepo) Create(_ context.Context, slot *models.TimeSlot) error {
	m.seq++
	if slot.ID == "" {
		slot.ID = fmt.Sprintf("ts-%d", m.seq)
	}
	stored := *slot
	m.items[slot.ID] = &stored
	return nil
}

func (m *mockTimeSlotRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.items, id)
	return nil
}

func fixtureCatalogService() (*CatalogService, *mockCourseRepo, *mockInstructorRepo, *mockRoomRepo, *mockTimeSlotRepo) {
	courses := newMockCourseRepo()
	instructors := newMockInstructorRepo()
	rooms := newMockRoomRepo()
	slots := newMockTimeSlotRepo()
	svc := NewCatalogService(courses, instructors, rooms, slots, nil, nil)
	return svc, courses, instructors, rooms, slots
}

func TestCreateCourseRequiresExistingInstructor(t *testing.T) {
	svc, _, _, _, _ := fixtureCatalogService()

	_, err := svc.CreateCourse(context.Background(), dto.CreateCourseRequest{
		Code:            "CS101",
		Name:            "Algorithms",
		Semester:        "2026S1",
		Sessions:        2,
		DurationMinutes: 60,
		Enrolled:        30,
		InstructorID:    "missing",
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCreateAndUpdateCourse(t *testing.T) {
	svc, courses, instructors, _, slots := fixtureCatalogService()
	ctx := context.Background()

	require.NoError(t, instructors.Create(ctx, &models.Instructor{ID: "i-1", Name: "Ada", Email: "ada@campus.test"}))
	require.NoError(t, slots.Create(ctx, &models.TimeSlot{ID: "ts-1", Day: 1, StartMinute: 540, EndMinute: 600}))

	created, err := svc.CreateCourse(ctx, dto.CreateCourseRequest{
		Code:            "CS101",
		Name:            "  Algorithms ",
		Semester:        "2026S1",
		Sessions:        2,
		DurationMinutes: 60,
		Enrolled:        30,
		RequiredTags:    []string{"lab"},
		AllowedSlots:    []string{"ts-1"},
		InstructorID:    "i-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Algorithms", created.Name)
	assert.JSONEq(t, `["lab"]`, string(created.RequiredTags))

	newName := "Advanced Algorithms"
	enrolled := 45
	updated, err := svc.UpdateCourse(ctx, created.ID, dto.UpdateCourseRequest{Name: &newName, Enrolled: &enrolled})
	require.NoError(t, err)
	assert.Equal(t, "Advanced Algorithms", updated.Name)
	assert.Equal(t, 45, updated.Enrolled)
	assert.Equal(t, "CS101", updated.Code, "untouched fields keep stored values")

	stored, err := courses.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, stored.Enrolled)
}

func TestGetCourseNotFound(t *testing.T) {
	svc, _, _, _, _ := fixtureCatalogService()

	_, err := svc.GetCourse(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestDeleteCourse(t *testing.T) {
	svc, courses, instructors, _, _ := fixtureCatalogService()
	ctx := context.Background()

	require.NoError(t, instructors.Create(ctx, &models.Instructor{ID: "i-1", Name: "Ada", Email: "ada@campus.test"}))
	created, err := svc.CreateCourse(ctx, dto.CreateCourseRequest{
		Code: "CS101", Name: "Algorithms", Semester: "2026S1",
		Sessions: 1, DurationMinutes: 60, Enrolled: 10, InstructorID: "i-1",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCourse(ctx, created.ID))
	_, err = courses.FindByID(ctx, created.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCreateInstructorValidatesSlotReferences(t *testing.T) {
	svc, _, _, _, _ := fixtureCatalogService()

	_, err := svc.CreateInstructor(context.Background(), dto.CreateInstructorRequest{
		Name:             "Ada",
		Email:            "ada@campus.test",
		UnavailableSlots: []string{"ts-unknown"},
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Contains(t, appErr.Message, "ts-unknown")
}

func TestUpdateInstructorPatchesAvailability(t *testing.T) {
	svc, _, _, _, slots := fixtureCatalogService()
	ctx := context.Background()

	require.NoError(t, slots.Create(ctx, &models.TimeSlot{ID: "ts-1", Day: 1, StartMinute: 540, EndMinute: 600}))
	created, err := svc.CreateInstructor(ctx, dto.CreateInstructorRequest{Name: "Ada", Email: "ada@campus.test", MaxPerDay: 3})
	require.NoError(t, err)

	preferred := []string{"ts-1"}
	maxPerDay := 2
	updated, err := svc.UpdateInstructor(ctx, created.ID, dto.UpdateInstructorRequest{PreferredSlots: &preferred, MaxPerDay: &maxPerDay})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.MaxPerDay)
	assert.JSONEq(t, `["ts-1"]`, string(updated.PreferredSlots))
	assert.Equal(t, "Ada", updated.Name)
}

func TestCreateRoomDefaultsEmptyLists(t *testing.T) {
	svc, _, _, rooms, _ := fixtureCatalogService()
	ctx := context.Background()

	created, err := svc.CreateRoom(ctx, dto.CreateRoomRequest{Name: "Main Hall", Capacity: 80})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(created.Tags))
	assert.JSONEq(t, `[]`, string(created.UnavailableSlots))

	stored, err := rooms.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 80, stored.Capacity)
}

func TestCreateTimeSlotRejectsInvertedInterval(t *testing.T) {
	svc, _, _, _, _ := fixtureCatalogService()

	_, err := svc.CreateTimeSlot(context.Background(), dto.CreateTimeSlotRequest{
		Label:       "Mon broken",
		Day:         1,
		StartMinute: 600,
		EndMinute:   540,
	})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestDeleteTimeSlotNotFound(t *testing.T) {
	svc, _, _, _, _ := fixtureCatalogService()

	err := svc.DeleteTimeSlot(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
