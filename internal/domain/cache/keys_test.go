package cache

import (
	"path"
	"strings"
	"testing"

	"github.com/rafaelmatth/task-manager-backend/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestListKey_Deterministic(t *testing.T) {
	f := repository.TaskFilter{Status: strPtr("pending"), Search: strPtr("a*b?"), Page: 2, Limit: 20}
	a := ListKey(7, f)
	b := ListKey(7, repository.TaskFilter{Status: strPtr("pending"), Search: strPtr("a*b?"), Page: 2, Limit: 20})
	if a != b {
		t.Fatalf("equal filters produced %s and %s", a, b)
	}
	if !strings.HasPrefix(a, "user:7:tasks:") {
		t.Fatalf("unexpected key %s", a)
	}
	segment := strings.TrimPrefix(a, "user:7:tasks:")
	if strings.ContainsAny(segment, "*?[]:") {
		t.Fatalf("filter segment not glob safe: %s", segment)
	}
}

func TestListKey_DistinctFilters(t *testing.T) {
	keys := map[string]bool{}
	for _, f := range []repository.TaskFilter{
		{Page: 1, Limit: 10},
		{Page: 2, Limit: 10},
		{Page: 1, Limit: 20},
		{Status: strPtr("pending"), Page: 1, Limit: 10},
		{Search: strPtr("pending"), Page: 1, Limit: 10},
	} {
		keys[ListKey(7, f)] = true
	}
	if len(keys) != 5 {
		t.Fatalf("expected 5 distinct keys, got %d", len(keys))
	}
}

func TestListKey_DistinctNonASCIISearches(t *testing.T) {
	a := ListKey(7, repository.TaskFilter{Search: strPtr("\u00ff"), Page: 1, Limit: 10})
	b := ListKey(7, repository.TaskFilter{Search: strPtr("\u00fe"), Page: 1, Limit: 10})
	if a == b {
		t.Fatalf("distinct searches share key %s", a)
	}
}

func TestUserTasksPattern_Covers(t *testing.T) {
	pattern := UserTasksPattern(7)
	for _, key := range []string{ListKey(7, repository.TaskFilter{Page: 1, Limit: 10}), StatsKey(7)} {
		if ok, _ := path.Match(pattern, key); !ok {
			t.Fatalf("%s does not match %s", pattern, key)
		}
	}
	for _, key := range []string{StatsKey(17), StatsKey(8), ListKey(70, repository.TaskFilter{Page: 1, Limit: 10}), EntityKey(7, 1)} {
		if ok, _ := path.Match(pattern, key); ok {
			t.Fatalf("%s must not match %s", pattern, key)
		}
	}
}

func TestEntityKey(t *testing.T) {
	if got := EntityKey(7, 42); got != "task:42:user:7" {
		t.Fatalf("got %s", got)
	}
	if ok, _ := path.Match(UserEntityPattern(7), EntityKey(7, 42)); !ok {
		t.Fatalf("entity pattern must match")
	}
	if ok, _ := path.Match(UserEntityPattern(7), EntityKey(17, 42)); ok {
		t.Fatalf("entity pattern must not match user 17")
	}
}
