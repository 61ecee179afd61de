package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	"github.com/campuskit/timetable-api/internal/service"
	"github.com/campuskit/timetable-api/pkg/response"
)

type timetableRepoMock struct {
	entries   []models.TimetableEntry
	conflicts []models.TimetableConflict
	cleared   []string
}

func (m *timetableRepoMock) List(_ context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	var out []models.TimetableEntry
	for _, e := range m.entries {
		if filter.Semester != "" && e.Semester != filter.Semester {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *timetableRepoMock) ListBySemester(_ context.Context, semester string) ([]models.TimetableEntry, error) {
	return m.entries, nil
}

func (m *timetableRepoMock) FindConflicts(_ context.Context, _, _, _, _ string) ([]models.TimetableConflict, error) {
	return m.conflicts, nil
}

func (m *timetableRepoMock) DeleteBySemester(_ context.Context, semester string) error {
	m.cleared = append(m.cleared, semester)
	return nil
}

func newTimetableHandlerForTest(repo *timetableRepoMock) *TimetableHandler {
	timetable := service.NewTimetableService(repo, nil, nil)
	return NewTimetableHandler(timetable, nil, nil)
}

func TestTimetableHandlerListFiltersBySemester(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoMock{entries: []models.TimetableEntry{
		{ID: "e-1", Semester: "2026S1", CourseID: "c-1"},
		{ID: "e-2", Semester: "2025S2", CourseID: "c-2"},
	}}
	handler := newTimetableHandlerForTest(repo)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/timetable?semester=2026S1", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	entries, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, entries, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestTimetableHandlerCheckConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoMock{conflicts: []models.TimetableConflict{
		{EntryID: "e-1", CourseID: "c-1", RoomID: "r-1", SlotID: "ts-1", InstructorID: "i-9", Dimension: "room"},
	}}
	handler := newTimetableHandlerForTest(repo)

	body, _ := json.Marshal(dto.CheckConflictRequest{
		Semester:     "2026S1",
		SlotID:       "ts-1",
		RoomID:       "r-1",
		InstructorID: "i-1",
	})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/conflicts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.CheckConflict(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.ConflictCheckResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.Conflicting)
	require.Len(t, envelope.Data.Conflicts, 1)
	assert.Equal(t, "room", envelope.Data.Conflicts[0].Dimension)
}

func TestTimetableHandlerCheckConflictInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newTimetableHandlerForTest(&timetableRepoMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/conflicts", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.CheckConflict(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerGenerateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTimetableHandler(nil, nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/timetable/generate", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Generate(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTimetableHandlerClearSemester(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := &timetableRepoMock{}
	handler := newTimetableHandlerForTest(repo)

	// a 204 only reaches the recorder once the engine finalizes the
	// request, so this one goes through the router
	r := gin.New()
	r.DELETE("/timetable/:semester", handler.ClearSemester)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/timetable/2026S1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"2026S1"}, repo.cleared)
}
