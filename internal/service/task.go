package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	dcache "github.com/rafaelmatth/task-manager-backend/internal/domain/cache"
	metricsinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/metrics"
	"github.com/rafaelmatth/task-manager-backend/internal/repository"
)

const (
	// CacheTTL applies to every cached kind: list pages, single tasks, stats.
	CacheTTL                   = 300 * time.Second
	defaultInvalidationTimeout = 3 * time.Second
	maxTitleLen                = 100
)

const (
	kindList  = "list"
	kindTask  = "task"
	kindStats = "stats"
)

type taskStore interface {
	Find(ctx context.Context, userID int64, f repository.TaskFilter) ([]repository.Task, int64, error)
	FindByID(ctx context.Context, taskID, userID int64) (*repository.Task, error)
	Insert(ctx context.Context, t repository.Task) (repository.Task, error)
	MergeAndSave(ctx context.Context, existing repository.Task, patch repository.TaskPatch) (repository.Task, error)
	DeleteByID(ctx context.Context, taskID, userID int64) (int64, error)
	CountGroupedByStatus(ctx context.Context, userID int64) ([]repository.StatusCount, error)
}

type TaskServiceOptions struct {
	AsyncInvalidation   bool
	InvalidationTimeout time.Duration
}

// TaskService serves task reads through the cache and invalidates the
// caller's cached entries after every committed mutation.
type TaskService struct {
	tasks   taskStore
	cache   dcache.Store
	opts    TaskServiceOptions
	logger  *slog.Logger
	metrics *metricsinfra.Metrics
	wg      sync.WaitGroup
}

func NewTaskService(tasks taskStore, cache dcache.Store, opts TaskServiceOptions, logger *slog.Logger, metrics *metricsinfra.Metrics) *TaskService {
	if opts.InvalidationTimeout <= 0 {
		opts.InvalidationTimeout = defaultInvalidationTimeout
	}
	return &TaskService{tasks: tasks, cache: cache, opts: opts, logger: logger, metrics: metrics}
}

type CreateTaskInput struct {
	Title       string
	Description string
	Status      string
}

func (s *TaskService) ListTasks(ctx context.Context, userID int64, f repository.TaskFilter) (repository.TaskPage, error) {
	if err := validateFilter(f); err != nil {
		return repository.TaskPage{}, err
	}
	return readThrough(ctx, s, kindList, dcache.ListKey(userID, f), func() (repository.TaskPage, error) {
		tasks, total, err := s.tasks.Find(ctx, userID, f)
		if err != nil {
			return repository.TaskPage{}, err
		}
		if tasks == nil {
			tasks = []repository.Task{}
		}
		return repository.TaskPage{Tasks: tasks, Total: total}, nil
	})
}

func (s *TaskService) GetTask(ctx context.Context, taskID, userID int64) (repository.Task, error) {
	return readThrough(ctx, s, kindTask, dcache.EntityKey(userID, taskID), func() (repository.Task, error) {
		task, err := s.tasks.FindByID(ctx, taskID, userID)
		if err != nil {
			return repository.Task{}, err
		}
		if task == nil {
			return repository.Task{}, ErrNotFound
		}
		return *task, nil
	})
}

func (s *TaskService) GetStats(ctx context.Context, userID int64) (repository.TaskStats, error) {
	return readThrough(ctx, s, kindStats, dcache.StatsKey(userID), func() (repository.TaskStats, error) {
		rows, err := s.tasks.CountGroupedByStatus(ctx, userID)
		if err != nil {
			return repository.TaskStats{}, err
		}
		return statsFromRows(rows), nil
	})
}

func (s *TaskService) CreateTask(ctx context.Context, userID int64, in CreateTaskInput) (repository.Task, error) {
	title := strings.TrimSpace(in.Title)
	if !isValidTitle(title) {
		return repository.Task{}, ErrBadRequest
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = repository.StatusPending
	}
	if !isValidStatus(status) {
		return repository.Task{}, ErrBadRequest
	}

	task, err := s.tasks.Insert(ctx, repository.Task{
		UserID:      userID,
		Title:       title,
		Description: in.Description,
		Status:      status,
	})
	if err != nil {
		return repository.Task{}, err
	}
	s.invalidate(ctx, userID, 0)
	return task, nil
}

// UpdateTask merges the present patch fields into the stored task.
func (s *TaskService) UpdateTask(ctx context.Context, taskID, userID int64, patch repository.TaskPatch) (repository.Task, error) {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if !isValidTitle(title) {
			return repository.Task{}, ErrBadRequest
		}
		patch.Title = &title
	}
	if patch.Status != nil && !isValidStatus(*patch.Status) {
		return repository.Task{}, ErrBadRequest
	}

	existing, err := s.tasks.FindByID(ctx, taskID, userID)
	if err != nil {
		return repository.Task{}, err
	}
	if existing == nil {
		return repository.Task{}, ErrNotFound
	}

	merged, err := s.tasks.MergeAndSave(ctx, *existing, patch)
	if err != nil {
		return repository.Task{}, err
	}
	s.invalidate(ctx, userID, taskID)
	return merged, nil
}

func (s *TaskService) DeleteTask(ctx context.Context, taskID, userID int64) error {
	n, err := s.tasks.DeleteByID(ctx, taskID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.invalidate(ctx, userID, taskID)
	return nil
}

// Wait blocks until background invalidations have finished.
func (s *TaskService) Wait() {
	s.wg.Wait()
}

// invalidate runs after the mutation committed. It uses a context detached
// from the request so a client disconnect cannot skip it.
func (s *TaskService) invalidate(ctx context.Context, userID, taskID int64) {
	if s.cache == nil {
		return
	}
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.InvalidationTimeout)
	if !s.opts.AsyncInvalidation {
		defer cancel()
		s.invalidateNow(ictx, userID, taskID)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		s.invalidateNow(ictx, userID, taskID)
	}()
}

func (s *TaskService) invalidateNow(ctx context.Context, userID, taskID int64) {
	ok := true
	if taskID > 0 {
		if err := s.cache.Delete(ctx, dcache.EntityKey(userID, taskID)); err != nil {
			ok = false
			s.warn("task cache entry invalidation failed", "err", err, "user_id", userID, "task_id", taskID)
		}
	}
	deleted, err := s.cache.DeleteByPattern(ctx, dcache.UserTasksPattern(userID))
	if err != nil {
		ok = false
		s.warn("task cache invalidation failed, stale reads possible until ttl", "err", err, "user_id", userID, "deleted", deleted)
	}
	s.metrics.ObserveInvalidation(ok, deleted)
	if ok && s.logger != nil {
		s.logger.Info("task cache invalidated", "user_id", userID, "task_id", taskID, "deleted", deleted)
	}
}

// readThrough returns the cached value under key or loads, stores and returns
// it. Any cache failure degrades to a load from the source.
func readThrough[T any](ctx context.Context, s *TaskService, kind, key string, load func() (T, error)) (T, error) {
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.metrics.IncCacheRequest(kind, "error")
		case ok:
			var v T
			if err := json.Unmarshal(raw, &v); err == nil {
				s.metrics.IncCacheRequest(kind, "hit")
				s.debug("task cache hit", "key", key)
				return v, nil
			}
			s.warn("task cache entry undecodable, reloading", "key", key)
			s.metrics.IncCacheRequest(kind, "error")
		default:
			s.metrics.IncCacheRequest(kind, "miss")
			s.debug("task cache miss", "key", key)
		}
	}

	v, err := load()
	if err != nil {
		return v, err
	}

	if s.cache != nil {
		raw, err := json.Marshal(v)
		if err != nil {
			s.warn("task cache encode failed", "key", key, "err", err)
			return v, nil
		}
		if err := s.cache.SetWithTTL(ctx, key, raw, CacheTTL); err != nil {
			s.debug("task cache store skipped", "key", key, "err", err)
		}
	}
	return v, nil
}

func statsFromRows(rows []repository.StatusCount) repository.TaskStats {
	var out repository.TaskStats
	for _, row := range rows {
		switch row.Status {
		case repository.StatusPending:
			out.Pending = row.Count
		case repository.StatusInProgress:
			out.InProgress = row.Count
		case repository.StatusCompleted:
			out.Completed = row.Count
		}
	}
	return out
}

func isValidTitle(title string) bool {
	n := utf8.RuneCountInString(title)
	return n > 0 && n <= maxTitleLen
}

func (s *TaskService) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *TaskService) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
