package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/timetable-api/internal/models"
)

// TimetableRepository provides persistence for published timetable entries.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository creates a new timetable repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

const timetableColumns = `t.id, t.semester, t.job_id, t.course_id, t.session, t.room_id, t.slot_id, t.instructor_id, t.created_at`

// List returns timetable entries with optional filtering and pagination.
func (r *TimetableRepository) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error) {
	base := "FROM timetable_entries t WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("t.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("t.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("t.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.RoomID != "" {
		conditions = append(conditions, fmt.Sprintf("t.room_id = $%d", len(args)+1))
		args = append(args, filter.RoomID)
	}
	if filter.Day != nil {
		conditions = append(conditions, fmt.Sprintf("t.slot_id IN (SELECT id FROM time_slots WHERE day = $%d)", len(args)+1))
		args = append(args, *filter.Day)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY t.course_id ASC, t.session ASC LIMIT %d OFFSET %d", timetableColumns, base, size, offset)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list timetable entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count timetable entries: %w", err)
	}

	return entries, total, nil
}

// ListBySemester returns the semester's full timetable ordered by course and session.
func (r *TimetableRepository) ListBySemester(ctx context.Context, semester string) ([]models.TimetableEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM timetable_entries t WHERE t.semester = $1 ORDER BY t.course_id ASC, t.session ASC", timetableColumns)
	var entries []models.TimetableEntry
	if err := r.db.SelectContext(ctx, &entries, query, semester); err != nil {
		return nil, fmt.Errorf("list timetable by semester: %w", err)
	}
	return entries, nil
}

// ReplaceSemester atomically swaps a semester's published timetable for the
// given entries.
func (r *TimetableRepository) ReplaceSemester(ctx context.Context, semester string, entries []models.TimetableEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace timetable: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE semester = $1`, semester); err != nil {
		return fmt.Errorf("clear semester timetable: %w", err)
	}

	if err = r.bulkInsertEntries(ctx, tx, entries); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace timetable: %w", err)
	}
	return nil
}

// BulkCreateWithTx inserts entries using an existing transaction.
func (r *TimetableRepository) BulkCreateWithTx(ctx context.Context, tx *sqlx.Tx, entries []models.TimetableEntry) error {
	if tx == nil {
		return fmt.Errorf("nil transaction provided")
	}
	return r.bulkInsertEntries(ctx, tx, entries)
}

func (r *TimetableRepository) bulkInsertEntries(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error {
	now := time.Now().UTC()
	for i := range entries {
		payload := entries[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}

		if _, err := sqlx.NamedExecContext(ctx, exec, `INSERT INTO timetable_entries (id, semester, job_id, course_id, session, room_id, slot_id, instructor_id, created_at) VALUES (:id, :semester, :job_id, :course_id, :session, :room_id, :slot_id, :instructor_id, :created_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert timetable entry: %w", err)
		}
		entries[i] = payload
	}
	return nil
}

// FindConflicts returns published entries sharing a room or instructor with
// any slot overlapping the given one. Dimension is set per match.
func (r *TimetableRepository) FindConflicts(ctx context.Context, semester, slotID, roomID, instructorID string) ([]models.TimetableConflict, error) {
	const query = `
SELECT t.id AS entry_id, t.course_id, t.room_id, t.slot_id, t.instructor_id,
       CASE WHEN t.room_id = $3 THEN 'room' ELSE 'instructor' END AS dimension
FROM timetable_entries t
JOIN time_slots a ON a.id = t.slot_id
JOIN time_slots b ON b.id = $2
WHERE t.semester = $1
  AND a.day = b.day
  AND a.start_minute < b.end_minute
  AND b.start_minute < a.end_minute
  AND (t.room_id = $3 OR t.instructor_id = $4)`

	rows, err := r.db.QueryxContext(ctx, query, semester, slotID, roomID, instructorID)
	if err != nil {
		return nil, fmt.Errorf("find timetable conflicts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var conflicts []models.TimetableConflict
	for rows.Next() {
		var c models.TimetableConflict
		if err := rows.Scan(&c.EntryID, &c.CourseID, &c.RoomID, &c.SlotID, &c.InstructorID, &c.Dimension); err != nil {
			return nil, fmt.Errorf("scan timetable conflict: %w", err)
		}
		conflicts = append(conflicts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timetable conflicts: %w", err)
	}
	return conflicts, nil
}

// DeleteBySemester removes the semester's published timetable.
func (r *TimetableRepository) DeleteBySemester(ctx context.Context, semester string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM timetable_entries WHERE semester = $1`, semester); err != nil {
		return fmt.Errorf("delete semester timetable: %w", err)
	}
	return nil
}
