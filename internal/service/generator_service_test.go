package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/timetable-api/internal/dto"
	"github.com/campuskit/timetable-api/internal/engine"
	"github.com/campuskit/timetable-api/internal/models"
	appErrors "github.com/campuskit/timetable-api/pkg/errors"
	"github.com/campuskit/timetable-api/pkg/jobs"
)

type stubCourseFetcher struct {
	items []models.Course
}

func (s *stubCourseFetcher) ListBySemester(_ context.Context, semester string) ([]models.Course, error) {
	var out []models.Course
	for _, c := range s.items {
		if c.Semester == semester {
			out = append(out, c)
		}
	}
	return out, nil
}

type stubInstructorFetcher struct {
	items []models.Instructor
}

func (s *stubInstructorFetcher) ListByIDs(_ context.Context, ids []string) ([]models.Instructor, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Instructor
	for _, i := range s.items {
		if want[i.ID] {
			out = append(out, i)
		}
	}
	return out, nil
}

type stubRoomFetcher struct {
	items []models.Room
}

func (s *stubRoomFetcher) ListAll(context.Context) ([]models.Room, error) {
	return s.items, nil
}

type stubSlotFetcher struct {
	items []models.TimeSlot
}

func (s *stubSlotFetcher) ListAll(context.Context) ([]models.TimeSlot, error) {
	return s.items, nil
}

type stubJobStore struct {
	mu     sync.Mutex
	seq    int
	jobs   map[string]*models.GenerationJob
	order  []string
	active *models.GenerationJob
}

func newStubJobStore() *stubJobStore {
	return &stubJobStore{jobs: map[string]*models.GenerationJob{}}
}

func (s *stubJobStore) Create(_ context.Context, job *models.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if job.ID == "" {
		job.ID = fmt.Sprintf("job-%d", s.seq)
	}
	job.CreatedAt = time.Now().UTC()
	stored := *job
	s.jobs[job.ID] = &stored
	s.order = append(s.order, job.ID)
	return nil
}

func (s *stubJobStore) FindByID(_ context.Context, id string) (*models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *job
	return &clone, nil
}

func (s *stubJobStore) FindActiveBySemester(_ context.Context, semester string) (*models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.Semester == semester {
		clone := *s.active
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubJobStore) ListBySemester(_ context.Context, semester string, limit int) ([]models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.GenerationJob
	for i := len(s.order) - 1; i >= 0; i-- {
		job := s.jobs[s.order[i]]
		if job.Semester != semester {
			continue
		}
		out = append(out, *job)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *stubJobStore) MarkRunning(_ context.Context, id string, startedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	job.Status = models.GenerationJobRunning
	job.StartedAt = &startedAt
	return nil
}

func (s *stubJobStore) Complete(_ context.Context, update *models.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[update.ID]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	job.Status = models.GenerationJobCompleted
	job.Score = update.Score
	job.HardSatisfied = update.HardSatisfied
	job.Unresolved = update.Unresolved
	job.Violations = update.Violations
	job.Stats = update.Stats
	job.FinishedAt = &now
	return nil
}

func (s *stubJobStore) Fail(_ context.Context, id string, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	now := time.Now().UTC()
	job.Status = models.GenerationJobFailed
	job.Error = &cause
	job.FinishedAt = &now
	if s.active != nil && s.active.ID == id {
		s.active = nil
	}
	return nil
}

type stubPublisher struct {
	mu       sync.Mutex
	entries  map[string][]models.TimetableEntry
	replaced int
}

func newStubPublisher() *stubPublisher {
	return &stubPublisher{entries: map[string][]models.TimetableEntry{}}
}

func (s *stubPublisher) ReplaceSemester(_ context.Context, semester string, entries []models.TimetableEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[semester] = entries
	s.replaced++
	return nil
}

func (s *stubPublisher) ListBySemester(_ context.Context, semester string) ([]models.TimetableEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[semester], nil
}

type stubStatsCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	sets    int
	deleted []string
}

func newStubStatsCache() *stubStatsCache {
	return &stubStatsCache{data: map[string][]byte{}}
}

func (s *stubStatsCache) Get(_ context.Context, key string, dest interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, ok := s.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *stubStatsCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.data[key] = raw
	s.sets++
	return nil
}

func (s *stubStatsCache) DeleteByPattern(_ context.Context, pattern string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, pattern)
	s.data = map[string][]byte{}
	return nil
}

func jsonList(values ...string) types.JSONText {
	raw, _ := json.Marshal(values)
	return types.JSONText(raw)
}

func fixtureGeneratorService(jobStore *stubJobStore, publisher *stubPublisher, cache *stubStatsCache) *GeneratorService {
	courses := &stubCourseFetcher{items: []models.Course{
		{ID: "c-1", Code: "CS101", Name: "Algorithms", Semester: "2026S1", Sessions: 2, DurationMinutes: 60, Enrolled: 30, RequiredTags: jsonList(), AllowedSlots: jsonList(), InstructorID: "i-1"},
	}}
	instructors := &stubInstructorFetcher{items: []models.Instructor{
		{ID: "i-1", Name: "Ada", Email: "ada@campus.test", MaxPerDay: 4, UnavailableSlots: jsonList(), PreferredSlots: jsonList()},
	}}
	rooms := &stubRoomFetcher{items: []models.Room{
		{ID: "r-1", Name: "Main Hall", Capacity: 40, Tags: jsonList(), UnavailableSlots: jsonList()},
	}}
	slots := &stubSlotFetcher{items: []models.TimeSlot{
		{ID: "ts-1", Label: "Mon 09:00", Day: 1, StartMinute: 540, EndMinute: 600},
		{ID: "ts-2", Label: "Tue 09:00", Day: 2, StartMinute: 540, EndMinute: 600},
		{ID: "ts-3", Label: "Wed 09:00", Day: 3, StartMinute: 540, EndMinute: 600},
	}}
	return NewGeneratorService(courses, instructors, rooms, slots, jobStore, publisher, cache, nil, nil, nil, GeneratorConfig{
		SearchBudget:    32,
		OptimizerBudget: 50,
	})
}

func TestGenerateRejectsWhenJobActive(t *testing.T) {
	jobStore := newStubJobStore()
	jobStore.active = &models.GenerationJob{ID: "job-9", Semester: "2026S1", Status: models.GenerationJobRunning, CreatedAt: time.Now().UTC()}
	svc := fixtureGeneratorService(jobStore, newStubPublisher(), newStubStatsCache())

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: "2026S1"}, "planner-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrJobRunning.Code, appErr.Code)
}

func TestGenerateSupersedesStaleJob(t *testing.T) {
	jobStore := newStubJobStore()
	stale := &models.GenerationJob{ID: "job-stale", Semester: "2026S1", Status: models.GenerationJobRunning, CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	jobStore.jobs[stale.ID] = stale
	jobStore.active = stale
	svc := fixtureGeneratorService(jobStore, newStubPublisher(), newStubStatsCache())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	res, err := svc.Generate(ctx, dto.GenerateTimetableRequest{Semester: "2026S1"}, "planner-1")
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, res.JobID)

	expired, err := jobStore.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationJobFailed, expired.Status)
}

func TestGenerateRejectsUnknownStrategy(t *testing.T) {
	svc := fixtureGeneratorService(newStubJobStore(), newStubPublisher(), newStubStatsCache())

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: "2026S1", Strategy: "random"}, "planner-1")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestGenerateQueuesAndCompletesJob(t *testing.T) {
	jobStore := newStubJobStore()
	publisher := newStubPublisher()
	svc := fixtureGeneratorService(jobStore, publisher, newStubStatsCache())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	resp, err := svc.Generate(ctx, dto.GenerateTimetableRequest{Semester: "2026S1"}, "planner-1")
	require.NoError(t, err)
	assert.Equal(t, string(models.GenerationJobPending), resp.Status)
	assert.Equal(t, "2026S1", resp.Semester)
	require.NotEmpty(t, resp.JobID)

	require.Eventually(t, func() bool {
		job, err := jobStore.FindByID(ctx, resp.JobID)
		return err == nil && job.Status == models.GenerationJobCompleted
	}, 5*time.Second, 10*time.Millisecond)
}

func TestHandleJobPublishesTimetableAndInvalidatesCache(t *testing.T) {
	jobStore := newStubJobStore()
	publisher := newStubPublisher()
	cache := newStubStatsCache()
	svc := fixtureGeneratorService(jobStore, publisher, cache)

	ctx := context.Background()
	job := &models.GenerationJob{Semester: "2026S1", Strategy: string(engine.StrategyBalanced), Status: models.GenerationJobPending}
	require.NoError(t, jobStore.Create(ctx, job))

	task := generationTask{JobID: job.ID, Semester: "2026S1", Options: engine.Options{Strategy: engine.StrategyBalanced, SearchBudget: 32, OptimizerBudget: 50}}
	require.NoError(t, svc.handleJob(ctx, jobs.Job{ID: job.ID, Type: "timetable.generate", Payload: task}))

	stored, err := jobStore.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationJobCompleted, stored.Status)
	assert.True(t, stored.HardSatisfied)
	require.NotNil(t, stored.FinishedAt)

	entries := publisher.entries["2026S1"]
	require.Len(t, entries, 2, "both sessions of the course should be placed")
	for _, e := range entries {
		assert.Equal(t, job.ID, e.JobID)
		assert.Equal(t, "c-1", e.CourseID)
		assert.Equal(t, "i-1", e.InstructorID)
	}
	assert.Equal(t, []string{"timetable:stats:2026S1*"}, cache.deleted)
}

func TestHandleJobRecordsFailureForEmptySemester(t *testing.T) {
	jobStore := newStubJobStore()
	publisher := newStubPublisher()
	svc := fixtureGeneratorService(jobStore, publisher, newStubStatsCache())

	ctx := context.Background()
	job := &models.GenerationJob{Semester: "2099S9", Strategy: string(engine.StrategyBalanced), Status: models.GenerationJobPending}
	require.NoError(t, jobStore.Create(ctx, job))

	task := generationTask{JobID: job.ID, Semester: "2099S9", Options: engine.Options{Strategy: engine.StrategyBalanced}}
	require.NoError(t, svc.handleJob(ctx, jobs.Job{ID: job.ID, Type: "timetable.generate", Payload: task}), "failure is recorded on the job, not retried")

	stored, err := jobStore.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationJobFailed, stored.Status)
	require.NotNil(t, stored.Error)
	assert.Contains(t, *stored.Error, "no courses registered")
	assert.Zero(t, publisher.replaced)
}

func TestJobStatusReturnsCompletedRun(t *testing.T) {
	jobStore := newStubJobStore()
	publisher := newStubPublisher()
	svc := fixtureGeneratorService(jobStore, publisher, newStubStatsCache())

	ctx := context.Background()
	job := &models.GenerationJob{Semester: "2026S1", Strategy: string(engine.StrategyBalanced), Status: models.GenerationJobPending}
	require.NoError(t, jobStore.Create(ctx, job))

	task := generationTask{JobID: job.ID, Semester: "2026S1", Options: engine.Options{Strategy: engine.StrategyBalanced, SearchBudget: 32, OptimizerBudget: 50}}
	require.NoError(t, svc.handleJob(ctx, jobs.Job{ID: job.ID, Type: "timetable.generate", Payload: task}))

	resp, err := svc.JobStatus(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, string(models.GenerationJobCompleted), resp.Status)
	assert.True(t, resp.HardSatisfied)
	assert.Len(t, resp.Assignments, 2)
	assert.Empty(t, resp.Unresolved)
	require.NotNil(t, resp.Stats)
}

func TestJobStatusNotFound(t *testing.T) {
	svc := fixtureGeneratorService(newStubJobStore(), newStubPublisher(), newStubStatsCache())

	_, err := svc.JobStatus(context.Background(), "missing")
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestStatisticsComputesThenServesFromCache(t *testing.T) {
	jobStore := newStubJobStore()
	publisher := newStubPublisher()
	cache := newStubStatsCache()
	svc := fixtureGeneratorService(jobStore, publisher, cache)

	ctx := context.Background()
	job := &models.GenerationJob{Semester: "2026S1", Strategy: string(engine.StrategyBalanced), Status: models.GenerationJobPending}
	require.NoError(t, jobStore.Create(ctx, job))
	task := generationTask{JobID: job.ID, Semester: "2026S1", Options: engine.Options{Strategy: engine.StrategyBalanced, SearchBudget: 32, OptimizerBudget: 50}}
	require.NoError(t, svc.handleJob(ctx, jobs.Job{ID: job.ID, Type: "timetable.generate", Payload: task}))
	cache.deleted = nil

	first, err := svc.Statistics(ctx, "2026S1")
	require.NoError(t, err)
	assert.Equal(t, "2026S1", first.Semester)
	assert.Equal(t, 1, first.TotalCourses)
	assert.Equal(t, 1, first.ScheduledCourses)
	assert.Equal(t, 2, first.PlacedSessions)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Statistics(ctx, "2026S1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets, "second read should come from cache")
}

func TestListJobsRequiresSemester(t *testing.T) {
	svc := fixtureGeneratorService(newStubJobStore(), newStubPublisher(), newStubStatsCache())

	_, err := svc.ListJobs(context.Background(), "", 10)
	require.Error(t, err)

	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
