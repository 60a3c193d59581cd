package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/rafaelmatth/task-manager-backend/internal/api/middleware"
	"github.com/rafaelmatth/task-manager-backend/internal/repository"
	"github.com/rafaelmatth/task-manager-backend/internal/service"
	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

type taskService interface {
	ListTasks(ctx context.Context, userID int64, f repository.TaskFilter) (repository.TaskPage, error)
	GetTask(ctx context.Context, taskID, userID int64) (repository.Task, error)
	GetStats(ctx context.Context, userID int64) (repository.TaskStats, error)
	CreateTask(ctx context.Context, userID int64, in service.CreateTaskInput) (repository.Task, error)
	UpdateTask(ctx context.Context, taskID, userID int64, patch repository.TaskPatch) (repository.Task, error)
	DeleteTask(ctx context.Context, taskID, userID int64) error
}

type TaskHandler struct {
	tasks   taskService
	timeout time.Duration
}

func NewTaskHandler(tasks taskService, timeout time.Duration) *TaskHandler {
	return &TaskHandler{tasks: tasks, timeout: timeout}
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
}

// Create godoc
// @Summary Create task
// @Tags tasks
// @Accept json
// @Produce json
// @Param request body createTaskRequest true "Create task"
// @Success 201 {object} repository.Task
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/tasks [post]
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.tasks.CreateTask(ctx, userID, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if mapServiceError(w, err) {
		return
	}
	w.Header().Set("Location", "/api/v1/tasks/"+formatID(task.ID))
	response.JSON(w, http.StatusCreated, task)
}

// List godoc
// @Summary List tasks
// @Tags tasks
// @Produce json
// @Param status query string false "pending, in_progress or completed"
// @Param search query string false "Title substring"
// @Param page query int false "Page (default 1)"
// @Param limit query int false "Limit (default 10, max 100)"
// @Success 200 {object} repository.TaskPage
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/tasks [get]
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	q := r.URL.Query()
	filter, err := service.NewTaskFilter(service.TaskFilterInput{
		Status: q.Get("status"),
		Search: q.Get("search"),
		Page:   q.Get("page"),
		Limit:  q.Get("limit"),
	})
	if mapServiceError(w, err) {
		return
	}

	page, err := h.tasks.ListTasks(ctx, userID, filter)
	if mapServiceError(w, err) {
		return
	}
	response.JSON(w, http.StatusOK, page)
}

// Stats godoc
// @Summary Task counts by status
// @Tags tasks
// @Produce json
// @Success 200 {object} repository.TaskStats
// @Failure 401 {object} response.ErrorResponse
// @Router /api/v1/tasks/stats [get]
func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, ok := middleware.UserIDFromContext(ctx)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	stats, err := h.tasks.GetStats(ctx, userID)
	if mapServiceError(w, err) {
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

// Get godoc
// @Summary Get task by id
// @Tags tasks
// @Produce json
// @Param id path int true "Task ID"
// @Success 200 {object} repository.Task
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(ctx, taskID, userID)
	if mapServiceError(w, err) {
		return
	}
	response.JSON(w, http.StatusOK, task)
}

// Update godoc
// @Summary Update task
// @Description Fields present in the body overwrite stored values.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path int true "Task ID"
// @Param request body updateTaskRequest true "Update payload"
// @Success 200 {object} repository.Task
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	task, err := h.tasks.UpdateTask(ctx, taskID, userID, repository.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if mapServiceError(w, err) {
		return
	}
	response.JSON(w, http.StatusOK, task)
}

// Delete godoc
// @Summary Delete task
// @Tags tasks
// @Param id path int true "Task ID"
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	userID, taskID, ok := h.identify(w, r)
	if !ok {
		return
	}

	if mapServiceError(w, h.tasks.DeleteTask(ctx, taskID, userID)) {
		return
	}
	response.NoContent(w)
}

func (h *TaskHandler) identify(w http.ResponseWriter, r *http.Request) (userID, taskID int64, ok bool) {
	userID, ok = middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Error(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}
	taskID, err := parseInt64(chi.URLParam(r, "id"))
	if err != nil || taskID <= 0 {
		response.Error(w, http.StatusBadRequest, "invalid task id")
		return 0, 0, false
	}
	return userID, taskID, true
}
