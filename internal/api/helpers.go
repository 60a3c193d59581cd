package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rafaelmatth/task-manager-backend/internal/service"
	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

const defaultRequestTimeout = 5 * time.Second

func mapServiceError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, service.ErrNotFound):
		response.Error(w, http.StatusNotFound, "task not found")
	case errors.Is(err, service.ErrInvalidFilter):
		response.Error(w, http.StatusBadRequest, "invalid query parameters")
	case errors.Is(err, service.ErrConflict):
		response.Error(w, http.StatusConflict, errorMessage(err, service.ErrConflict))
	case errors.Is(err, service.ErrBadRequest):
		response.Error(w, http.StatusBadRequest, errorMessage(err, service.ErrBadRequest))
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, context.DeadlineExceeded):
		response.Error(w, http.StatusGatewayTimeout, "request timed out")
	default:
		response.Error(w, http.StatusInternalServerError, "internal error")
	}
	return true
}

// errorMessage strips the sentinel prefix added by fmt.Errorf("%w: ...").
func errorMessage(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func formatID(v int64) string {
	return strconv.FormatInt(v, 10)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil {
		return host
	}
	return r.RemoteAddr
}

func setRetryAfter(w http.ResponseWriter, d time.Duration) {
	if d <= 0 {
		return
	}
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
}

func withTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultRequestTimeout
	}
	return context.WithTimeout(r.Context(), d)
}
