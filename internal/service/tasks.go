package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/taskkeeper/internal/cache"
	"github.com/and161185/taskkeeper/internal/errs"
	"github.com/and161185/taskkeeper/internal/model"
	"github.com/and161185/taskkeeper/internal/repository"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// statsTimeout bounds a shared stats computation once it is detached
	// from the caller that started it.
	statsTimeout = 10 * time.Second
)

// Criteria is the raw, client-supplied listing query.
type Criteria struct {
	Status   string
	Priority string
	Search   string
	Sort     string // field, "-" prefix for descending
	Page     string
	Limit    string
}

// TaskService defines owner-scoped task queries and mutations. The owner is
// always a separate argument and never read from client fields.
type TaskService interface {
	// List returns one page of the owner's tasks matching c.
	List(ctx context.Context, ownerID uuid.UUID, c Criteria) (model.TaskPage, error)
	// Stats counts the owner's tasks per status.
	Stats(ctx context.Context, ownerID uuid.UUID) (model.TaskStats, error)
	// Create validates f and stores a new task for ownerID.
	Create(ctx context.Context, ownerID uuid.UUID, f model.TaskFields) (model.Task, error)
	// Update replaces every editable field of an owned task.
	Update(ctx context.Context, ownerID, taskID uuid.UUID, f model.TaskFields) (model.Task, error)
	// Delete removes an owned task.
	Delete(ctx context.Context, ownerID, taskID uuid.UUID) error
}

type TaskServiceImpl struct {
	repo  repository.TaskRepository
	stats cache.StatsCache
	sf    singleflight.Group
	val   *Validator
	log   *zap.Logger
}

// NewTaskService constructs TaskService. A nil cache disables stats caching.
func NewTaskService(repo repository.TaskRepository, stats cache.StatsCache, log *zap.Logger) *TaskServiceImpl {
	if stats == nil {
		stats = cache.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &TaskServiceImpl{repo: repo, stats: stats, val: NewValidator(), log: log}
}

// ParseTaskID parses a client-supplied task id. Anything that is not a UUID
// cannot name an owned task, so it is reported as errs.ErrNotFound.
func ParseTaskID(raw string) (uuid.UUID, error) {
	id, err := uuid.FromString(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

// ParseCriteria normalizes c into a filter. Unknown enum values, sort keys and
// out-of-range paging are validation errors.
func ParseCriteria(c Criteria) (model.TaskFilter, error) {
	f := model.TaskFilter{
		Status:   model.Status(strings.TrimSpace(c.Status)),
		Priority: model.Priority(strings.TrimSpace(c.Priority)),
		Search:   strings.TrimSpace(c.Search),
		Page:     1,
		Limit:    DefaultPageSize,
	}
	if f.Status != "" && !f.Status.Valid() {
		return model.TaskFilter{}, errs.Validation("status", "must be one of: todo, in-progress, done")
	}
	if f.Priority != "" && !f.Priority.Valid() {
		return model.TaskFilter{}, errs.Validation("priority", "must be one of: low, medium, high")
	}
	if strings.ContainsRune(f.Search, 0) {
		return model.TaskFilter{}, errs.Validation("search", reasonNUL)
	}

	sort, err := parseSort(c.Sort)
	if err != nil {
		return model.TaskFilter{}, err
	}
	f.Sort = sort

	if p := strings.TrimSpace(c.Page); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 {
			return model.TaskFilter{}, errs.Validation("page", "must be a positive integer")
		}
		f.Page = n
	}
	if l := strings.TrimSpace(c.Limit); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 || n > MaxPageSize {
			return model.TaskFilter{}, errs.Validation("limit", fmt.Sprintf("must be between 1 and %d", MaxPageSize))
		}
		f.Limit = n
	}
	return f, nil
}

func parseSort(raw string) (model.Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Sort{Field: model.SortCreatedAt, Desc: true}, nil
	}
	s := model.Sort{Field: model.SortField(strings.TrimPrefix(raw, "-")), Desc: strings.HasPrefix(raw, "-")}
	switch s.Field {
	case model.SortCreatedAt, model.SortUpdatedAt, model.SortDueDate,
		model.SortPriority, model.SortTitle, model.SortStatus:
		return s, nil
	}
	return model.Sort{}, errs.Validation("sort", "unknown sort field")
}

// List returns one page of ownerID's tasks.
func (s *TaskServiceImpl) List(ctx context.Context, ownerID uuid.UUID, c Criteria) (model.TaskPage, error) {
	f, err := ParseCriteria(c)
	if err != nil {
		return model.TaskPage{}, err
	}
	tasks, total, err := s.repo.List(ctx, ownerID, f)
	if err != nil {
		return model.TaskPage{}, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return model.TaskPage{
		Tasks: tasks,
		Total: total,
		Page:  f.Page,
		Pages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
	}, nil
}

// Stats counts ownerID's tasks per status. Total covers every owned task,
// including rows with a status outside the named buckets.
func (s *TaskServiceImpl) Stats(ctx context.Context, ownerID uuid.UUID) (model.TaskStats, error) {
	cached, ok, err := s.stats.Get(ctx, ownerID)
	if err != nil {
		s.log.Warn("stats cache read", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	key := ownerID.String()
	v, err, _ := s.sf.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller going away must not fail the rest.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statsTimeout)
		defer cancel()

		ver, verErr := s.stats.Version(ctx, ownerID)
		if verErr != nil {
			s.log.Warn("stats cache version", zap.Error(verErr))
		}
		counts, err := s.repo.CountByStatus(ctx, ownerID)
		if err != nil {
			return model.TaskStats{}, err
		}
		st := statsFromCounts(counts)
		if verErr == nil {
			if err := s.stats.Set(ctx, ownerID, ver, st); err != nil {
				s.log.Warn("stats cache write", zap.Error(err))
			}
		}
		return st, nil
	})
	if err != nil {
		return model.TaskStats{}, err
	}
	return v.(model.TaskStats), nil
}

func statsFromCounts(counts map[string]int64) model.TaskStats {
	var st model.TaskStats
	for status, n := range counts {
		switch model.Status(status) {
		case model.StatusTodo:
			st.Todo = n
		case model.StatusInProgress:
			st.InProgress = n
		case model.StatusDone:
			st.Done = n
		}
		st.Total += n
	}
	return st
}

// Create stores a new task owned by ownerID.
func (s *TaskServiceImpl) Create(ctx context.Context, ownerID uuid.UUID, f model.TaskFields) (model.Task, error) {
	f, err := s.normalize(f)
	if err != nil {
		return model.Task{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Task{}, err
	}
	t := model.Task{
		ID:          id,
		UserID:      ownerID,
		Title:       f.Title,
		Description: f.Description,
		Status:      f.Status,
		Priority:    f.Priority,
		DueDate:     f.DueDate,
	}
	if err := s.repo.Create(ctx, &t); err != nil {
		return model.Task{}, err
	}
	s.invalidate(ctx, ownerID)
	return t, nil
}

// Update replaces title, description, status, priority and due date together.
// A task owned by someone else is indistinguishable from a missing one.
func (s *TaskServiceImpl) Update(ctx context.Context, ownerID, taskID uuid.UUID, f model.TaskFields) (model.Task, error) {
	f, err := s.normalize(f)
	if err != nil {
		return model.Task{}, err
	}
	t, err := s.repo.Update(ctx, ownerID, taskID, f)
	if err != nil {
		return model.Task{}, err
	}
	s.invalidate(ctx, ownerID)
	return *t, nil
}

// Delete removes an owned task.
func (s *TaskServiceImpl) Delete(ctx context.Context, ownerID, taskID uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, taskID); err != nil {
		return err
	}
	s.invalidate(ctx, ownerID)
	return nil
}

// normalize trims text, applies defaults and validates.
func (s *TaskServiceImpl) normalize(f model.TaskFields) (model.TaskFields, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.Description = strings.TrimSpace(f.Description)
	if f.Status == "" {
		f.Status = model.StatusTodo
	}
	if f.Priority == "" {
		f.Priority = model.PriorityMedium
	}
	if err := s.val.Struct(f); err != nil {
		return model.TaskFields{}, err
	}
	return f, nil
}

func (s *TaskServiceImpl) invalidate(ctx context.Context, ownerID uuid.UUID) {
	s.sf.Forget(ownerID.String())
	if err := s.stats.Invalidate(ctx, ownerID); err != nil {
		s.log.Warn("stats cache invalidate", zap.Error(err))
	}
}
