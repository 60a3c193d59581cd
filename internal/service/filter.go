package service

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rafaelmatth/task-manager-backend/internal/repository"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// TaskFilterInput is the raw list query as received from the caller.
// Empty strings mean "not provided".
type TaskFilterInput struct {
	Status string
	Search string
	Page   string
	Limit  string
}

// NewTaskFilter validates the input and applies defaults. It is the only
// place defaults are applied, so "no filter" and "page=1&limit=10" produce
// the same filter and therefore the same cache key.
func NewTaskFilter(in TaskFilterInput) (repository.TaskFilter, error) {
	f := repository.TaskFilter{Page: DefaultPage, Limit: DefaultLimit}

	if v := strings.TrimSpace(in.Status); v != "" {
		if !isValidStatus(v) {
			return repository.TaskFilter{}, ErrInvalidFilter
		}
		f.Status = &v
	}
	if v := strings.TrimSpace(in.Search); v != "" {
		// JSON folds invalid bytes into U+FFFD, which would merge cache keys.
		if !utf8.ValidString(v) {
			return repository.TaskFilter{}, ErrInvalidFilter
		}
		f.Search = &v
	}
	if v := strings.TrimSpace(in.Page); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return repository.TaskFilter{}, ErrInvalidFilter
		}
		f.Page = n
	}
	if v := strings.TrimSpace(in.Limit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxLimit {
			return repository.TaskFilter{}, ErrInvalidFilter
		}
		f.Limit = n
	}
	if offsetOverflows(f.Page, f.Limit) {
		return repository.TaskFilter{}, ErrInvalidFilter
	}
	return f, nil
}

// validateFilter rejects filters that did not go through NewTaskFilter.
// It never fills in defaults.
func validateFilter(f repository.TaskFilter) error {
	if f.Page < 1 || f.Limit < 1 || f.Limit > MaxLimit || offsetOverflows(f.Page, f.Limit) {
		return ErrInvalidFilter
	}
	if f.Status != nil && !isValidStatus(*f.Status) {
		return ErrInvalidFilter
	}
	if f.Search != nil && (*f.Search == "" || !utf8.ValidString(*f.Search)) {
		return ErrInvalidFilter
	}
	return nil
}

func isValidStatus(v string) bool {
	for _, s := range repository.TaskStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// offsetOverflows reports whether (page-1)*limit does not fit in an int.
func offsetOverflows(page, limit int) bool {
	return limit > 0 && page-1 > math.MaxInt/limit
}
