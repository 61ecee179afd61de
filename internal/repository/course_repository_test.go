package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/models"
)

func newCourseMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestCourseRepositoryCreateAndFind(t *testing.T) {
	db, mock, cleanup := newCourseMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectExec("INSERT INTO courses").
		WillReturnResult(sqlmock.NewResult(1, 1))

	course := &models.Course{
		Code:            "MATH-201",
		Name:            "Linear Algebra",
		Semester:        "2026-fall",
		Sessions:        2,
		DurationMinutes: 90,
		Enrolled:        45,
		RequiredTags:    types.JSONText(`[]`),
		AllowedSlots:    types.JSONText(`[]`),
		InstructorID:    "instructor-1",
	}
	err := repo.Create(context.Background(), course)
	require.NoError(t, err)
	assert.NotEmpty(t, course.ID, "create must assign an id")

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "name", "semester", "sessions", "duration_minutes", "enrolled", "required_tags", "allowed_slots", "instructor_id", "created_at", "updated_at"}).
		AddRow("course-1", "MATH-201", "Linear Algebra", "2026-fall", 2, 90, 45, `[]`, `[]`, "instructor-1", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, semester, sessions, duration_minutes, enrolled, required_tags, allowed_slots, instructor_id, created_at, updated_at FROM courses WHERE id = $1")).
		WithArgs("course-1").
		WillReturnRows(rows)

	found, err := repo.FindByID(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "MATH-201", found.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListBySemesterOrdersByID(t *testing.T) {
	db, mock, cleanup := newCourseMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "code", "name", "semester", "sessions", "duration_minutes", "enrolled", "required_tags", "allowed_slots", "instructor_id", "created_at", "updated_at"}).
		AddRow("course-1", "BIO-110", "Biology Lab", "2026-fall", 1, 120, 24, `["lab"]`, `[]`, "instructor-2", now, now).
		AddRow("course-2", "MATH-201", "Linear Algebra", "2026-fall", 2, 90, 45, `[]`, `[]`, "instructor-1", now, now)
	mock.ExpectQuery("SELECT (.+) FROM courses WHERE semester = \\$1 ORDER BY id ASC").
		WithArgs("2026-fall").
		WillReturnRows(rows)

	courses, err := repo.ListBySemester(context.Background(), "2026-fall")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "course-1", courses[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
