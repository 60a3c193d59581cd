package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rafaelmatth/task-manager-backend/internal/service"
	"github.com/rafaelmatth/task-manager-backend/pkg/api/response"
)

type ctxKey string

const ctxPrincipal ctxKey = "principal"

type TokenParser interface {
	ParseAccessToken(token string) (service.Principal, error)
}

func PrincipalFromContext(ctx context.Context) (service.Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(service.Principal)
	return p, ok
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.ID <= 0 {
		return 0, false
	}
	return p.ID, true
}

func WithPrincipal(ctx context.Context, p service.Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

func AuthMiddleware(auth TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			p, err := auth.ParseAccessToken(strings.TrimSpace(parts[1]))
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}
