package api

import (
	"net/http"
	"time"

	"github.com/rafaelmatth/task-manager-backend/internal/domain/ratelimit"
	metricsinfra "github.com/rafaelmatth/task-manager-backend/internal/infra/metrics"
	"github.com/rafaelmatth/task-manager-backend/internal/service"
	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

type AuthHandler struct {
	auth         *service.AuthService
	loginLimiter ratelimit.Limiter
	metrics      *metricsinfra.Metrics
	timeout      time.Duration
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken string            `json:"access_token"`
	User        service.Principal `json:"user"`
}

func NewAuthHandler(auth *service.AuthService, loginLimiter ratelimit.Limiter, metrics *metricsinfra.Metrics, timeout time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, loginLimiter: loginLimiter, metrics: metrics, timeout: timeout}
}

// Register godoc
// @Summary Register user
// @Description Creates a new user account and returns an access token.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body registerRequest true "Register request"
// @Success 201 {object} authResponse
// @Failure 400 {object} response.ErrorResponse
// @Failure 409 {object} response.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.auth.Register(ctx, req.Email, req.Name, req.Password)
	if err != nil {
		h.metrics.IncAuthEvent("register_failed")
		mapServiceError(w, err)
		return
	}
	h.metrics.IncAuthEvent("register")
	response.JSON(w, http.StatusCreated, authResponse{AccessToken: res.AccessToken, User: res.User})
}

// Login godoc
// @Summary Login
// @Description Returns an access token for valid credentials.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body loginRequest true "Login request"
// @Success 200 {object} authResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 429 {object} response.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if h.loginLimiter != nil {
		if ok, retry := h.loginLimiter.Allow(r.Context(), ip); !ok {
			h.metrics.IncAuthEvent("login_throttled")
			setRetryAfter(w, retry)
			response.Error(w, http.StatusTooManyRequests, "too many requests")
			return
		}
	}

	ctx, cancel := withTimeout(r, h.timeout)
	defer cancel()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.auth.Login(ctx, req.Email, req.Password, ip)
	if err != nil {
		h.metrics.IncAuthEvent("login_failed")
		mapServiceError(w, err)
		return
	}
	h.metrics.IncAuthEvent("login")
	response.JSON(w, http.StatusOK, authResponse{AccessToken: res.AccessToken, User: res.User})
}
