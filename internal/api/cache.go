package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rafaelmatth/task-manager-backend/internal/api/middleware"
	dcache "github.com/rafaelmatth/task-manager-backend/internal/domain/cache"
	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

const maxListedKeys = 1000

type KeyLister interface {
	Keys(ctx context.Context, pattern string, limit int) ([]string, error)
}

type CacheHandler struct {
	keys    KeyLister
	timeout time.Duration
}

type cacheKeysResponse struct {
	Keys  []string `json:"keys"`
	Count int      `json:"count"`
}

func NewCacheHandler(keys KeyLister, timeout time.Duration) *CacheHandler {
	return &CacheHandler{keys: keys, timeout: timeout}
}

// Keys godoc
// @Summary List the caller's cache keys
// @Tags cache
// @Produce json
// @Success 200 {object} cacheKeysResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 503 {object} response.ErrorResponse
// @Router /api/v1/cache/keys [get]
func (h *CacheHandler) Keys(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	out := make([]string, 0)
	for _, pattern := range []string{dcache.UserTasksPattern(userID), dcache.UserEntityPattern(userID)} {
		keys, err := h.keys.Keys(ctx, pattern, maxListedKeys)
		if err != nil {
			response.Error(w, http.StatusServiceUnavailable, "cache unavailable")
			return
		}
		out = append(out, keys...)
	}
	sort.Strings(out)
	response.JSON(w, http.StatusOK, cacheKeysResponse{Keys: out, Count: len(out)})
}
