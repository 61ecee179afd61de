package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
)

type timetableReader interface {
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, int, error)
	ListBySemester(ctx context.Context, semester string) ([]models.TimetableEntry, error)
	FindConflicts(ctx context.Context, semester, slotID, roomID, instructorID string) ([]models.TimetableConflict, error)
	DeleteBySemester(ctx context.Context, semester string) error
}

// TimetableService exposes read and maintenance operations over published
// timetables. Publishing itself happens through the generator pipeline.
type TimetableService struct {
	repo      timetableReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(repo timetableReader, validate *validator.Validate, logger *zap.Logger) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{repo: repo, validator: validate, logger: logger}
}

// List returns published entries matching the filter plus pagination data.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	return entries, paginationFor(filter.Page, filter.PageSize, total), nil
}

// CheckConflict reports published entries that would collide with a proposed
// placement on the room or instructor dimension.
func (s *TimetableService) CheckConflict(ctx context.Context, req dto.CheckConflictRequest) (*dto.ConflictCheckResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}

	conflicts, err := s.repo.FindConflicts(ctx, req.Semester, req.SlotID, req.RoomID, req.InstructorID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check conflicts")
	}

	resp := &dto.ConflictCheckResponse{Conflicting: len(conflicts) > 0, Conflicts: make([]dto.ConflictView, 0, len(conflicts))}
	for _, c := range conflicts {
		resp.Conflicts = append(resp.Conflicts, dto.ConflictView{
			EntryID:      c.EntryID,
			CourseID:     c.CourseID,
			RoomID:       c.RoomID,
			SlotID:       c.SlotID,
			InstructorID: c.InstructorID,
			Dimension:    c.Dimension,
		})
	}
	return resp, nil
}

// ClearSemester removes a semester's published timetable.
func (s *TimetableService) ClearSemester(ctx context.Context, semester string) error {
	if semester == "" {
		return appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}
	if err := s.repo.DeleteBySemester(ctx, semester); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear semester timetable")
	}
	s.logger.Info("semester timetable cleared", zap.String("semester", semester))
	return nil
}
