package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// TaskStatuses lists every status in display order.
var TaskStatuses = []string{StatusPending, StatusInProgress, StatusCompleted}

type Task struct {
	ID          int64     `db:"id" json:"id"`
	UserID      int64     `db:"user_id" json:"userId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// TaskFilter is a normalized list query. Field order is the canonical
// serialization order used for cache keys.
type TaskFilter struct {
	Status *string `json:"status,omitempty"`
	Search *string `json:"search,omitempty"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

func (f TaskFilter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// TaskPatch carries the fields present in an update request.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}

func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Apply overlays the present fields on t.
func (p TaskPatch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	return t
}

type TaskPage struct {
	Tasks []Task `json:"tasks"`
	Total int64  `json:"total"`
}

type TaskStats struct {
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"in_progress"`
	Completed  int64 `json:"completed"`
}

type StatusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}

type TaskRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

const taskColumns = `id, user_id, title, description, status, created_at, updated_at`

func (r *TaskRepository) Insert(ctx context.Context, t Task) (Task, error) {
	now := r.now()
	t.CreatedAt = now
	t.UpdatedAt = now

	if r.db.DriverName() == "postgres" {
		err := r.db.QueryRowxContext(ctx, r.db.Rebind(`
			INSERT INTO tasks (user_id, title, description, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			RETURNING id
		`), t.UserID, t.Title, t.Description, t.Status, t.CreatedAt, t.UpdatedAt).Scan(&t.ID)
		if err != nil {
			return Task{}, err
		}
		return t, nil
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (user_id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.UserID, t.Title, t.Description, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Task{}, err
	}
	t.ID = id
	return t, nil
}

// FindByID returns nil, nil when no task with that id belongs to userID.
func (r *TaskRepository) FindByID(ctx context.Context, taskID, userID int64) (*Task, error) {
	var t Task
	err := r.db.GetContext(ctx, &t, r.db.Rebind(`
		SELECT `+taskColumns+`
		FROM tasks WHERE id = ? AND user_id = ?
	`), taskID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *TaskRepository) Find(ctx context.Context, userID int64, f TaskFilter) ([]Task, int64, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *f.Status)
	}
	if f.Search != nil && *f.Search != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+escapeLike(*f.Search)+"%")
	}
	whereSQL := strings.Join(where, " AND ")

	var total int64
	countSQL := "SELECT COUNT(*) FROM tasks WHERE " + whereSQL
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(countSQL), args...); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ` + whereSQL + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	args = append(args, f.Limit, f.Offset())
	tasks := make([]Task, 0, f.Limit)
	if err := r.db.SelectContext(ctx, &tasks, r.db.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// MergeAndSave persists existing with patch applied and returns the merged row.
func (r *TaskRepository) MergeAndSave(ctx context.Context, existing Task, patch TaskPatch) (Task, error) {
	merged := patch.Apply(existing)
	merged.UpdatedAt = r.now()

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE tasks SET title = ?, description = ?, status = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`), merged.Title, merged.Description, merged.Status, merged.UpdatedAt, merged.ID, merged.UserID)
	if err != nil {
		return Task{}, err
	}
	return merged, nil
}

func (r *TaskRepository) DeleteByID(ctx context.Context, taskID, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM tasks WHERE id = ? AND user_id = ?`), taskID, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *TaskRepository) CountGroupedByStatus(ctx context.Context, userID int64) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.SelectContext(ctx, &rows, r.db.Rebind(`
		SELECT status, COUNT(id) AS count
		FROM tasks
		WHERE user_id = ?
		GROUP BY status
	`), userID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
