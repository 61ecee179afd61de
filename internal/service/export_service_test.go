package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type memoryFileStorage struct {
	files map[string][]byte
}

func newMemoryFileStorage() *memoryFileStorage {
	return &memoryFileStorage{files: map[string][]byte{}}
}

func (m *memoryFileStorage) Save(filename string, data []byte) (string, error) {
	m.files[filename] = data
	return filename, nil
}

func (m *memoryFileStorage) CleanupOlderThan(time.Duration) ([]string, error) {
	return nil, nil
}

func fixtureExportService(storage fileStorage) *ExportService {
	publisher := newStubPublisher()
	publisher.entries["2026S1"] = []models.TimetableEntry{
		{ID: "e-1", Semester: "2026S1", JobID: "job-1", CourseID: "c-1", Session: 1, RoomID: "r-1", SlotID: "ts-2", InstructorID: "i-1"},
		{ID: "e-2", Semester: "2026S1", JobID: "job-1", CourseID: "c-1", Session: 2, RoomID: "r-1", SlotID: "ts-1", InstructorID: "i-1"},
	}

	courses := &stubCourseFetcher{items: []models.Course{
		{ID: "c-1", Code: "CS101", Name: "Algorithms", Semester: "2026S1", Sessions: 2, DurationMinutes: 60, Enrolled: 30, InstructorID: "i-1"},
	}}
	instructors := &stubInstructorFetcher{items: []models.Instructor{
		{ID: "i-1", Name: "Ada", Email: "ada@campus.test"},
	}}
	rooms := &stubRoomFetcher{items: []models.Room{
		{ID: "r-1", Name: "Main Hall", Capacity: 40},
	}}
	slots := &stubSlotFetcher{items: []models.TimeSlot{
		{ID: "ts-1", Label: "Mon 09:00", Day: 1, StartMinute: 540, EndMinute: 600},
		{ID: "ts-2", Label: "Tue 09:00", Day: 2, StartMinute: 540, EndMinute: 600},
	}}

	return NewExportService(publisher, courses, instructors, rooms, slots, storage, ExportConfig{Enabled: true}, nil)
}

func TestExportSemesterCSV(t *testing.T) {
	storage := newMemoryFileStorage()
	svc := fixtureExportService(storage)

	result, err := svc.ExportSemester(context.Background(), "2026S1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasPrefix(result.Filename, "timetable_2026S1_"))
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	lines := strings.Split(strings.TrimSpace(string(result.Payload)), "\n")
	require.Len(t, lines, 3, "header plus two sessions")
	assert.Equal(t, "Course Code,Course Name,Session,Day,Start,End,Room,Instructor", lines[0])
	// rows come out ordered by day then start time
	assert.Contains(t, lines[1], "Mon")
	assert.Contains(t, lines[1], "09:00")
	assert.Contains(t, lines[1], "Main Hall")
	assert.Contains(t, lines[1], "Ada")
	assert.Contains(t, lines[2], "Tue")

	require.Len(t, storage.files, 1, "a copy is kept on disk when storage is configured")
}

func TestExportSemesterPDF(t *testing.T) {
	svc := fixtureExportService(nil)

	result, err := svc.ExportSemester(context.Background(), "2026S1", ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".pdf"))
	require.Greater(t, len(result.Payload), 4)
	assert.Equal(t, "%PDF", string(result.Payload[:4]))
}

func TestExportSemesterRejectsUnknownFormat(t *testing.T) {
	svc := fixtureExportService(nil)

	_, err := svc.ExportSemester(context.Background(), "2026S1", ExportFormat("xlsx"))
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestExportSemesterNoPublishedTimetable(t *testing.T) {
	svc := fixtureExportService(nil)

	_, err := svc.ExportSemester(context.Background(), "2099S9", ExportFormatCSV)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestExportSemesterDisabled(t *testing.T) {
	svc := NewExportService(newStubPublisher(), &stubCourseFetcher{}, &stubInstructorFetcher{}, &stubRoomFetcher{}, &stubSlotFetcher{}, nil, ExportConfig{Enabled: false}, nil)

	_, err := svc.ExportSemester(context.Background(), "2026S1", ExportFormatCSV)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrForbidden.Code, appErr.Code)
}
