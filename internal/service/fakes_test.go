package service

import (
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rafaelmatth/task-manager-backend/internal/repository"
)

var errBoom = errors.New("boom")

type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  map[int64]repository.Task
	nextID int64
	clock  time.Time

	findCalls  int
	byIDCalls  int
	countCalls int
	failWrites bool
	failReads  bool
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{
		tasks: make(map[int64]repository.Task),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeTaskRepo) tick() time.Time {
	r.clock = r.clock.Add(time.Second)
	return r.clock
}

func (r *fakeTaskRepo) Find(_ context.Context, userID int64, f repository.TaskFilter) ([]repository.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.findCalls++
	if r.failReads {
		return nil, 0, errBoom
	}

	var matched []repository.Task
	for _, t := range r.tasks {
		if t.UserID != userID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Search != nil && !strings.Contains(t.Title, *f.Search) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := f.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + f.Limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]repository.Task, 0, end-start)
	out = append(out, matched[start:end]...)
	return out, total, nil
}

func (r *fakeTaskRepo) FindByID(_ context.Context, taskID, userID int64) (*repository.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIDCalls++
	if r.failReads {
		return nil, errBoom
	}
	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	return &t, nil
}

func (r *fakeTaskRepo) Insert(_ context.Context, t repository.Task) (repository.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return repository.Task{}, errBoom
	}
	r.nextID++
	t.ID = r.nextID
	t.CreatedAt = r.tick()
	t.UpdatedAt = t.CreatedAt
	r.tasks[t.ID] = t
	return t, nil
}

func (r *fakeTaskRepo) MergeAndSave(_ context.Context, existing repository.Task, patch repository.TaskPatch) (repository.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return repository.Task{}, errBoom
	}
	merged := patch.Apply(existing)
	merged.UpdatedAt = r.tick()
	r.tasks[merged.ID] = merged
	return merged, nil
}

func (r *fakeTaskRepo) DeleteByID(_ context.Context, taskID, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWrites {
		return 0, errBoom
	}
	t, ok := r.tasks[taskID]
	if !ok || t.UserID != userID {
		return 0, nil
	}
	delete(r.tasks, taskID)
	return 1, nil
}

func (r *fakeTaskRepo) CountGroupedByStatus(_ context.Context, userID int64) ([]repository.StatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.countCalls++
	if r.failReads {
		return nil, errBoom
	}
	counts := map[string]int64{}
	for _, t := range r.tasks {
		if t.UserID == userID {
			counts[t.Status]++
		}
	}
	var out []repository.StatusCount
	for status, n := range counts {
		out = append(out, repository.StatusCount{Status: status, Count: n})
	}
	return out, nil
}

// fakeStore is an in-memory cache.Store with glob matching and switchable failures.
type fakeStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	failGet bool
	failSet bool
	failDel bool
	// patternDeleteBudget > 0 makes DeleteByPattern remove that many keys
	// and then fail.
	patternDeleteBudget int64

	patternDeletes []string
	keyDeletes     []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (s *fakeStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failGet {
		return nil, false, errBoom
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *fakeStore) SetWithTTL(_ context.Context, key string, data []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errBoom
	}
	s.data[key] = append([]byte(nil), data...)
	s.ttls[key] = ttl
	return nil
}

func (s *fakeStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keyDeletes = append(s.keyDeletes, key)
	if s.failDel {
		return errBoom
	}
	delete(s.data, key)
	return nil
}

func (s *fakeStore) DeleteByPattern(_ context.Context, pattern string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patternDeletes = append(s.patternDeletes, pattern)
	if s.failDel {
		return 0, errBoom
	}
	var n int64
	for k := range s.data {
		if ok, _ := path.Match(pattern, k); ok {
			if s.patternDeleteBudget > 0 && n == s.patternDeleteBudget {
				return n, errBoom
			}
			delete(s.data, k)
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok, nil
}

func (s *fakeStore) has(key string) bool {
	ok, _ := s.Exists(context.Background(), key)
	return ok
}

func (s *fakeStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *fakeStore) invalidations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patternDeletes) + len(s.keyDeletes)
}
