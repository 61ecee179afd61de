package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/engine"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/jobs"
)

type generatorCourseFetcher interface {
	ListBySemester(ctx context.Context, semester string) ([]models.Course, error)
}

type generatorInstructorFetcher interface {
	ListByIDs(ctx context.Context, ids []string) ([]models.Instructor, error)
}

type generatorRoomFetcher interface {
	ListAll(ctx context.Context) ([]models.Room, error)
}

type generatorSlotFetcher interface {
	ListAll(ctx context.Context) ([]models.TimeSlot, error)
}

type generationJobStore interface {
	Create(ctx context.Context, job *models.GenerationJob) error
	FindByID(ctx context.Context, id string) (*models.GenerationJob, error)
	FindActiveBySemester(ctx context.Context, semester string) (*models.GenerationJob, error)
	ListBySemester(ctx context.Context, semester string, limit int) ([]models.GenerationJob, error)
	MarkRunning(ctx context.Context, id string, startedAt time.Time) error
	Complete(ctx context.Context, job *models.GenerationJob) error
	Fail(ctx context.Context, id string, cause string) error
}

type timetablePublisher interface {
	ReplaceSemester(ctx context.Context, semester string, entries []models.TimetableEntry) error
	ListBySemester(ctx context.Context, semester string) ([]models.TimetableEntry, error)
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// GeneratorConfig tunes defaults applied when a request leaves them unset.
type GeneratorConfig struct {
	DefaultStrategy string
	SearchBudget    int
	OptimizerBudget int
	Weights         engine.Weights
	QueueWorkers    int
	JobTTL          time.Duration
	StatsCacheTTL   time.Duration
}

// GeneratorService runs the timetable engine asynchronously. Generation
// requests are queued per job; on success the semester's published timetable
// is replaced in one transaction and the statistics cache is invalidated.
type GeneratorService struct {
	courses     generatorCourseFetcher
	instructors generatorInstructorFetcher
	rooms       generatorRoomFetcher
	slots       generatorSlotFetcher
	jobsRepo    generationJobStore
	timetable   timetablePublisher
	cache       statsCache
	metrics     *MetricsService

	engine    *engine.Generator
	queue     *jobs.Queue
	validator *validator.Validate
	logger    *zap.Logger
	cfg       GeneratorConfig
}

type generationTask struct {
	JobID    string
	Semester string
	Options  engine.Options
}

// NewGeneratorService wires the generation pipeline.
func NewGeneratorService(
	courses generatorCourseFetcher,
	instructors generatorInstructorFetcher,
	rooms generatorRoomFetcher,
	slots generatorSlotFetcher,
	jobsRepo generationJobStore,
	timetable timetablePublisher,
	cache statsCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg GeneratorConfig,
) *GeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = string(engine.StrategyBalanced)
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 30 * time.Minute
	}
	if cfg.StatsCacheTTL <= 0 {
		cfg.StatsCacheTTL = 5 * time.Minute
	}

	s := &GeneratorService{
		courses:     courses,
		instructors: instructors,
		rooms:       rooms,
		slots:       slots,
		jobsRepo:    jobsRepo,
		timetable:   timetable,
		cache:       cache,
		metrics:     metrics,
		engine:      engine.NewGenerator(logger),
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
	s.queue = jobs.NewQueue("timetable-generation", s.handleJob, jobs.QueueConfig{
		Workers: cfg.QueueWorkers,
		Logger:  logger,
		// generation is not idempotent enough to retry blindly; failures
		// are recorded on the job instead
		MaxRetries: 1,
	})
	return s
}

// Start launches the background workers.
func (s *GeneratorService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the background workers.
func (s *GeneratorService) Stop() {
	s.queue.Stop()
}

// Generate validates the request, records a PENDING job and queues the run.
// Only one job may be pending or running per semester.
func (s *GeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest, requestedBy string) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}

	strategyName := req.Strategy
	if strategyName == "" {
		strategyName = s.cfg.DefaultStrategy
	}
	strategy, err := engine.ParseStrategy(strategyName)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidStrategy, err.Error())
	}

	if active, err := s.jobsRepo.FindActiveBySemester(ctx, req.Semester); err == nil && active != nil {
		// a job stuck past its TTL (worker crash, lost queue) no longer
		// blocks the semester; it is failed and superseded
		if time.Since(active.CreatedAt) < s.cfg.JobTTL {
			return nil, appErrors.Clone(appErrors.ErrJobRunning, fmt.Sprintf("job %s is already %s for semester %s", active.ID, active.Status, active.Semester))
		}
		if failErr := s.jobsRepo.Fail(ctx, active.ID, "job exceeded ttl and was superseded"); failErr != nil {
			return nil, appErrors.Wrap(failErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to expire stale job")
		}
		s.logger.Warn("expired stale generation job",
			zap.String("jobId", active.ID),
			zap.String("semester", active.Semester))
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active jobs")
	}

	job := &models.GenerationJob{
		Semester:    req.Semester,
		Strategy:    string(strategy),
		Status:      models.GenerationJobPending,
		Unresolved:  types.JSONText(`[]`),
		Violations:  types.JSONText(`[]`),
		Stats:       types.JSONText(`{}`),
		RequestedBy: requestedBy,
	}
	if err := s.jobsRepo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record generation job")
	}

	opts := engine.Options{
		Strategy:        strategy,
		SearchBudget:    req.SearchBudget,
		OptimizerBudget: req.OptimizerBudget,
		Weights: engine.Weights{
			InstructorPreference: req.PreferenceWeight,
			Compactness:          req.CompactnessWeight,
			Utilization:          req.UtilizationWeight,
		},
	}
	if opts.SearchBudget <= 0 {
		opts.SearchBudget = s.cfg.SearchBudget
	}
	if opts.OptimizerBudget <= 0 {
		opts.OptimizerBudget = s.cfg.OptimizerBudget
	}
	if req.PreferenceWeight == 0 && req.CompactnessWeight == 0 && req.UtilizationWeight == 0 {
		opts.Weights = s.cfg.Weights
	}

	task := generationTask{JobID: job.ID, Semester: req.Semester, Options: opts}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: "timetable.generate", Payload: task}); err != nil {
		if failErr := s.jobsRepo.Fail(ctx, job.ID, "queue unavailable"); failErr != nil {
			s.logger.Warn("failed to mark unqueued job as failed", zap.Error(failErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to queue generation job")
	}

	return &dto.GenerateTimetableResponse{
		JobID:    job.ID,
		Semester: req.Semester,
		Status:   string(models.GenerationJobPending),
	}, nil
}

func (s *GeneratorService) handleJob(ctx context.Context, job jobs.Job) error {
	task, ok := job.Payload.(generationTask)
	if !ok {
		return fmt.Errorf("unexpected payload type for job %s", job.ID)
	}
	start := time.Now()

	if err := s.jobsRepo.MarkRunning(ctx, task.JobID, start.UTC()); err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}

	result, err := s.runGeneration(ctx, task)
	status := "completed"
	if err != nil {
		status = "failed"
		if failErr := s.jobsRepo.Fail(ctx, task.JobID, err.Error()); failErr != nil {
			s.logger.Error("failed to record job failure", zap.String("job_id", task.JobID), zap.Error(failErr))
		}
	}
	s.metrics.ObserveGeneration(string(task.Options.Strategy), status, time.Since(start))
	if result != nil {
		s.metrics.ObserveGenerationScore(result.Score)
	}
	if err != nil {
		s.logger.Warn("generation job failed",
			zap.String("job_id", task.JobID),
			zap.String("semester", task.Semester),
			zap.Error(err),
		)
		// the failure is recorded on the job; nothing to retry
		return nil
	}

	s.logger.Info("generation job completed",
		zap.String("job_id", task.JobID),
		zap.String("semester", task.Semester),
		zap.String("strategy", string(task.Options.Strategy)),
		zap.Float64("score", result.Score),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("unresolved", len(result.Unresolved)),
	)
	return nil
}

func (s *GeneratorService) runGeneration(ctx context.Context, task generationTask) (*engine.Result, error) {
	cat, err := s.buildCatalog(ctx, task.Semester)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Generate(cat, task.Options)
	if err != nil {
		var inputErr *engine.InputError
		if errors.As(err, &inputErr) {
			return nil, fmt.Errorf("catalog validation failed: %s", inputErr.Error())
		}
		return nil, err
	}

	unresolved, err := json.Marshal(result.Unresolved)
	if err != nil {
		return nil, fmt.Errorf("encode unresolved: %w", err)
	}
	violations, err := json.Marshal(result.Violations)
	if err != nil {
		return nil, fmt.Errorf("encode violations: %w", err)
	}
	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return nil, fmt.Errorf("encode run stats: %w", err)
	}

	job := &models.GenerationJob{
		ID:            task.JobID,
		Score:         result.Score,
		HardSatisfied: result.HardSatisfied,
		Unresolved:    types.JSONText(unresolved),
		Violations:    types.JSONText(violations),
		Stats:         types.JSONText(stats),
	}
	if err := s.jobsRepo.Complete(ctx, job); err != nil {
		return nil, fmt.Errorf("complete job: %w", err)
	}

	entries := make([]models.TimetableEntry, 0, len(result.Assignments))
	for _, a := range result.Assignments {
		entries = append(entries, models.TimetableEntry{
			Semester:     task.Semester,
			JobID:        task.JobID,
			CourseID:     a.CourseID,
			Session:      a.Session,
			RoomID:       a.RoomID,
			SlotID:       a.SlotID,
			InstructorID: a.InstructorID,
		})
	}
	if err := s.timetable.ReplaceSemester(ctx, task.Semester, entries); err != nil {
		return nil, fmt.Errorf("publish timetable: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteByPattern(ctx, fmt.Sprintf("timetable:stats:%s*", task.Semester)); err != nil {
			s.logger.Warn("failed to invalidate statistics cache", zap.Error(err))
		}
	}
	return result, nil
}

// JobStatus reports progress for a queued or finished job, including the
// published assignments once completed.
func (s *GeneratorService) JobStatus(ctx context.Context, jobID string) (*dto.GenerationJobResponse, error) {
	job, err := s.jobsRepo.FindByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "generation job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load generation job")
	}

	resp := &dto.GenerationJobResponse{
		JobID:         job.ID,
		Semester:      job.Semester,
		Strategy:      job.Strategy,
		Status:        string(job.Status),
		Score:         job.Score,
		HardSatisfied: job.HardSatisfied,
		StartedAt:     job.StartedAt,
		FinishedAt:    job.FinishedAt,
	}
	if job.Error != nil {
		resp.Error = *job.Error
	}
	if job.Status != models.GenerationJobCompleted {
		return resp, nil
	}

	if err := json.Unmarshal(job.Unresolved, &resp.Unresolved); err != nil {
		s.logger.Warn("failed to decode unresolved courses", zap.String("job_id", job.ID), zap.Error(err))
	}
	var violations []engine.Violation
	if err := json.Unmarshal(job.Violations, &violations); err == nil {
		resp.Violations = violationViews(violations)
	}
	var runStats engine.RunStats
	if err := json.Unmarshal(job.Stats, &runStats); err == nil {
		view := runStatsView(runStats)
		resp.Stats = &view
	}

	entries, err := s.timetable.ListBySemester(ctx, job.Semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetable")
	}
	for _, e := range entries {
		if e.JobID != job.ID {
			continue
		}
		resp.Assignments = append(resp.Assignments, dto.AssignmentView{
			CourseID:     e.CourseID,
			Session:      e.Session,
			RoomID:       e.RoomID,
			SlotID:       e.SlotID,
			InstructorID: e.InstructorID,
		})
	}
	return resp, nil
}

// ListJobs returns recent jobs for the semester, newest first.
func (s *GeneratorService) ListJobs(ctx context.Context, semester string, limit int) ([]models.GenerationJob, error) {
	if semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}
	list, err := s.jobsRepo.ListBySemester(ctx, semester, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list generation jobs")
	}
	return list, nil
}

// Statistics aggregates the semester's published timetable, serving from
// cache when possible.
func (s *GeneratorService) Statistics(ctx context.Context, semester string) (*dto.TimetableStatisticsResponse, error) {
	if semester == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester is required")
	}

	cacheKey := fmt.Sprintf("timetable:stats:%s", semester)
	if s.cache != nil {
		var cached dto.TimetableStatisticsResponse
		start := time.Now()
		err := s.cache.Get(ctx, cacheKey, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("statistics cache read failed", zap.Error(err))
		}
	}

	cat, err := s.buildCatalog(ctx, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrPreconditionFailed.Code, appErrors.ErrPreconditionFailed.Status, err.Error())
	}

	entries, err := s.timetable.ListBySemester(ctx, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetable")
	}

	result := &engine.Result{}
	for _, e := range entries {
		result.Assignments = append(result.Assignments, engine.Assignment{
			CourseID:     e.CourseID,
			Session:      e.Session,
			RoomID:       e.RoomID,
			SlotID:       e.SlotID,
			InstructorID: e.InstructorID,
		})
	}

	if job := s.latestCompletedJob(ctx, semester); job != nil {
		result.Score = job.Score
		_ = json.Unmarshal(job.Unresolved, &result.Unresolved)
		_ = json.Unmarshal(job.Violations, &result.Violations)
		_ = json.Unmarshal(job.Stats, &result.Stats)
	}

	stats := engine.Summarize(cat, result)
	resp := &dto.TimetableStatisticsResponse{
		Semester:         semester,
		TotalCourses:     stats.TotalCourses,
		ScheduledCourses: stats.ScheduledCourses,
		Unresolved:       stats.Unresolved,
		TotalSessions:    stats.TotalSessions,
		PlacedSessions:   stats.PlacedSessions,
		RoomUtilization:  stats.RoomUtilization,
		InstructorLoad:   stats.InstructorLoad,
		SoftScore:        stats.SoftScore,
		HardViolations:   stats.HardViolations,
		SoftViolations:   stats.SoftViolations,
		Run:              runStatsView(stats.Run),
	}

	if s.cache != nil {
		start := time.Now()
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.StatsCacheTTL); err != nil {
			s.logger.Warn("statistics cache write failed", zap.Error(err))
		}
		s.metrics.ObserveCacheWrite(time.Since(start))
	}
	return resp, nil
}

func (s *GeneratorService) latestCompletedJob(ctx context.Context, semester string) *models.GenerationJob {
	list, err := s.jobsRepo.ListBySemester(ctx, semester, 20)
	if err != nil {
		s.logger.Warn("failed to load job history", zap.Error(err))
		return nil
	}
	for i := range list {
		if list[i].Status == models.GenerationJobCompleted {
			return &list[i]
		}
	}
	return nil
}

// buildCatalog loads the semester's courses plus supporting resources and
// maps them into the engine's input shape.
func (s *GeneratorService) buildCatalog(ctx context.Context, semester string) (*engine.Catalog, error) {
	courses, err := s.courses.ListBySemester(ctx, semester)
	if err != nil {
		return nil, fmt.Errorf("load courses: %w", err)
	}
	if len(courses) == 0 {
		return nil, fmt.Errorf("no courses registered for semester %s", semester)
	}

	slots, err := s.slots.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}
	if len(slots) == 0 {
		return nil, fmt.Errorf("no time slots configured")
	}

	rooms, err := s.rooms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}
	if len(rooms) == 0 {
		return nil, fmt.Errorf("no rooms configured")
	}

	instructorIDs := make([]string, 0, len(courses))
	seen := make(map[string]bool, len(courses))
	for _, course := range courses {
		if course.InstructorID == "" || seen[course.InstructorID] {
			continue
		}
		seen[course.InstructorID] = true
		instructorIDs = append(instructorIDs, course.InstructorID)
	}
	sort.Strings(instructorIDs)

	instructors, err := s.instructors.ListByIDs(ctx, instructorIDs)
	if err != nil {
		return nil, fmt.Errorf("load instructors: %w", err)
	}

	cat := &engine.Catalog{
		Courses:     make(map[string]engine.Course, len(courses)),
		Instructors: make(map[string]engine.Instructor, len(instructors)),
		Rooms:       make(map[string]engine.Room, len(rooms)),
		Slots:       make(map[string]engine.TimeSlot, len(slots)),
	}

	for _, c := range courses {
		cat.Courses[c.ID] = engine.Course{
			ID:           c.ID,
			Name:         c.Name,
			Sessions:     c.Sessions,
			Duration:     c.DurationMinutes,
			Enrolled:     c.Enrolled,
			RequiredTags: decodeStringList(c.RequiredTags),
			InstructorID: c.InstructorID,
			Windows:      decodeStringList(c.AllowedSlots),
		}
	}
	for _, i := range instructors {
		cat.Instructors[i.ID] = engine.Instructor{
			ID:          i.ID,
			Name:        i.Name,
			MaxPerDay:   i.MaxPerDay,
			Unavailable: decodeStringList(i.UnavailableSlots),
			Preferred:   decodeStringList(i.PreferredSlots),
		}
	}
	for _, r := range rooms {
		cat.Rooms[r.ID] = engine.Room{
			ID:          r.ID,
			Name:        r.Name,
			Capacity:    r.Capacity,
			Tags:        decodeStringList(r.Tags),
			Unavailable: decodeStringList(r.UnavailableSlots),
		}
	}
	for _, t := range slots {
		cat.Slots[t.ID] = engine.TimeSlot{
			ID:    t.ID,
			Day:   t.Day,
			Start: t.StartMinute,
			End:   t.EndMinute,
		}
	}
	return cat, nil
}

func decodeStringList(raw types.JSONText) []string {
	if len(raw) == 0 {
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func violationViews(violations []engine.Violation) []dto.ViolationView {
	views := make([]dto.ViolationView, 0, len(violations))
	for _, v := range violations {
		view := dto.ViolationView{
			Kind:     string(v.Kind),
			Severity: string(v.Severity),
			Message:  v.Message,
		}
		for _, a := range v.Assignments {
			view.Assignments = append(view.Assignments, dto.AssignmentView{
				CourseID:     a.CourseID,
				Session:      a.Session,
				RoomID:       a.RoomID,
				SlotID:       a.SlotID,
				InstructorID: a.InstructorID,
			})
		}
		views = append(views, view)
	}
	return views
}

func runStatsView(stats engine.RunStats) dto.RunStatsView {
	return dto.RunStatsView{
		Retractions:              stats.Retractions,
		SearchBudgetExhausted:    stats.SearchBudgetExhausted,
		SwapEvaluations:          stats.SwapEvaluations,
		SwapsApplied:             stats.SwapsApplied,
		OptimizerBudgetExhausted: stats.OptimizerBudgetExhausted,
	}
}
