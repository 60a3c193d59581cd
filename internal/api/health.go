package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

type Pinger interface {
	PingContext(ctx context.Context) error
}

type RedisPinger interface {
	Ping(ctx context.Context, logger *slog.Logger) bool
}

type HealthHandler struct {
	db     Pinger
	redis  RedisPinger
	logger *slog.Logger
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Message   string            `json:"message"`
	Checks    map[string]string `json:"checks"`
}

func NewHealthHandler(db Pinger, redis RedisPinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, logger: logger}
}

// Health reports 503 only when the database is down. A Redis outage only
// disables caching, so it shows up in checks while status stays "ok".
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Message:   "service is running",
		Checks:    map[string]string{},
	}
	status := http.StatusOK

	if h.db != nil {
		if err := h.db.PingContext(ctx); err != nil {
			resp.Checks["db"] = "down"
			resp.Status = "error"
			resp.Message = "database unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Checks["db"] = "up"
		}
	}

	switch {
	case h.redis == nil:
		resp.Checks["redis"] = "disabled"
	case !h.redis.Ping(ctx, h.logger):
		resp.Checks["redis"] = "down"
	default:
		resp.Checks["redis"] = "up"
	}

	response.JSON(w, status, resp)
}
