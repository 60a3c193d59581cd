package cache

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/rafaelmatth/task-manager-backend/internal/repository"
)

// Keys live in one place so the invalidation pattern and the read keys
// cannot drift apart. Filters must be normalized before they get here.

// ListKey identifies one list page. The search must be valid UTF-8, since
// encoding/json replaces invalid bytes and distinct filters would collide.
func ListKey(userID int64, f repository.TaskFilter) string {
	return userTasksPrefix(userID) + encodeFilter(f)
}

// EntityKey identifies a single task of its owner.
func EntityKey(userID, taskID int64) string {
	return "task:" + itoa(taskID) + ":user:" + itoa(userID)
}

// StatsKey sits under the user's task prefix so UserTasksPattern clears it.
func StatsKey(userID int64) string {
	return userTasksPrefix(userID) + "stats"
}

// UserTasksPattern matches every list page and the stats entry of one user.
func UserTasksPattern(userID int64) string {
	return userTasksPrefix(userID) + "*"
}

// UserEntityPattern matches the single-task entries of one user.
func UserEntityPattern(userID int64) string {
	return "task:*:user:" + itoa(userID)
}

func userTasksPrefix(userID int64) string {
	return "user:" + itoa(userID) + ":tasks:"
}

// encodeFilter serializes the struct in declaration order and base64url
// encodes it, so the segment is free of glob characters and ':'.
func encodeFilter(f repository.TaskFilter) string {
	raw, _ := json.Marshal(f)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
