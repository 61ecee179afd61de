package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/export"
)

// ExportFormat names a supported download format.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type exportTimetableSource interface {
	ListBySemester(ctx context.Context, semester string) ([]models.TimetableEntry, error)
}

type exportCourseSource interface {
	ListBySemester(ctx context.Context, semester string) ([]models.Course, error)
}

type exportInstructorSource interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Instructor, error)
}

type exportRoomSource interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type exportSlotSource interface {
	ListAll(ctx context.Context) ([]models.TimeSlot, error)
}

type fileStorage interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	Enabled   bool
	ResultTTL time.Duration
}

// ExportResult is a rendered timetable ready for download.
type ExportResult struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders a semester's published timetable as CSV or PDF and
// keeps an on-disk copy when storage is configured.
type ExportService struct {
	timetable   exportTimetableSource
	courses     exportCourseSource
	instructors exportInstructorSource
	rooms       exportRoomSource
	slots       exportSlotSource
	storage     fileStorage
	csv         csvRenderer
	pdf         pdfRenderer
	logger      *zap.Logger
	cfg         ExportConfig
}

// NewExportService constructs an ExportService. Storage may be nil, in which
// case exports are streamed only.
func NewExportService(timetable exportTimetableSource, courses exportCourseSource, instructors exportInstructorSource, rooms exportRoomSource, slots exportSlotSource, storage fileStorage, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	return &ExportService{
		timetable:   timetable,
		courses:     courses,
		instructors: instructors,
		rooms:       rooms,
		slots:       slots,
		storage:     storage,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		logger:      logger,
		cfg:         cfg,
	}
}

// ExportSemester renders the published timetable for a semester.
func (s *ExportService) ExportSemester(ctx context.Context, semester string, format ExportFormat) (*ExportResult, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "exports are disabled")
	}
	if semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}

	entries, err := s.timetable.ListBySemester(ctx, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no published timetable for semester "+semester)
	}

	dataset, err := s.buildDataset(ctx, semester, entries)
	if err != nil {
		return nil, err
	}

	var payload []byte
	var contentType string
	title := fmt.Sprintf("Timetable %s", semester)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+string(format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	filename := fmt.Sprintf("timetable_%s_%s.%s", sanitizeFilename(semester), time.Now().UTC().Format("20060102_150405"), format)
	if s.storage != nil {
		if _, saveErr := s.storage.Save(filename, payload); saveErr != nil {
			s.logger.Warn("failed to persist export copy", zap.String("filename", filename), zap.Error(saveErr))
		}
	}

	return &ExportResult{Filename: filename, ContentType: contentType, Payload: payload}, nil
}

// Cleanup removes stored exports older than ttl (configured ResultTTL when
// ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if s.storage == nil {
		return nil, nil
	}
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDataset(ctx context.Context, semester string, entries []models.TimetableEntry) (export.Dataset, error) {
	courses, err := s.courses.ListBySemester(ctx, semester)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	courseByID := make(map[string]models.Course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}

	instructorIDs := make([]string, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !seen[e.InstructorID] {
			seen[e.InstructorID] = true
			instructorIDs = append(instructorIDs, e.InstructorID)
		}
	}
	sort.Strings(instructorIDs)
	instructorName := make(map[string]string, len(instructorIDs))
	if len(instructorIDs) > 0 {
		instructors, err := s.instructors.ListByIDs(ctx, instructorIDs)
		if err != nil {
			return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructors")
		}
		for _, ins := range instructors {
			instructorName[ins.ID] = ins.Name
		}
	}

	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	roomName := make(map[string]string, len(rooms))
	for _, r := range rooms {
		roomName[r.ID] = r.Name
	}

	slots, err := s.slots.ListAll(ctx)
	if err != nil {
		return export.Dataset{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load time slots")
	}
	slotByID := make(map[string]models.TimeSlot, len(slots))
	for _, sl := range slots {
		slotByID[sl.ID] = sl
	}

	headers := []string{"Course Code", "Course Name", "Session", "Day", "Start", "End", "Room", "Instructor"}
	rows := make([]map[string]string, 0, len(entries))

	// Day plus start time reads better in a printed sheet than insertion order.
	sorted := make([]models.TimetableEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := slotByID[sorted[i].SlotID], slotByID[sorted[j].SlotID]
		if a.Day != b.Day {
			return a.Day < b.Day
		}
		if a.StartMinute != b.StartMinute {
			return a.StartMinute < b.StartMinute
		}
		return sorted[i].CourseID < sorted[j].CourseID
	})

	for _, e := range sorted {
		course := courseByID[e.CourseID]
		slot := slotByID[e.SlotID]
		rows = append(rows, map[string]string{
			"Course Code": course.Code,
			"Course Name": course.Name,
			"Session":     fmt.Sprintf("%d", e.Session),
			"Day":         dayName(slot.Day),
			"Start":       minuteClock(slot.StartMinute),
			"End":         minuteClock(slot.EndMinute),
			"Room":        roomName[e.RoomID],
			"Instructor":  instructorName[e.InstructorID],
		})
	}

	return export.Dataset{Headers: headers, Rows: rows}, nil
}

func dayName(day int) string {
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	if day < 1 || day > len(names) {
		return fmt.Sprintf("Day %d", day)
	}
	return names[day-1]
}

func minuteClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
