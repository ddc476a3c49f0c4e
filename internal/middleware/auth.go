// Package middleware содержит HTTP middleware кофемашины.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/mmeshcher/coffee-machine/internal/auth"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	userLoginKey contextKey = "userLogin"
)

const bearerPrefix = "Bearer "

// TokenParser проверяет токен доступа и возвращает его утверждения.
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// AuthMiddleware пропускает только запросы с действительным Bearer-токеном.
type AuthMiddleware struct {
	tokens TokenParser
}

// NewAuthMiddleware создаёт AuthMiddleware поверх проверяющего токены.
func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// Middleware проверяет заголовок Authorization и добавляет пользователя в контекст запроса.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		claims, err := a.tokens.Parse(strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix)))
		if err != nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
		ctx = context.WithValue(ctx, userLoginKey, claims.Login)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}

// GetLoginFromContext извлекает логин пользователя из контекста запроса.
func GetLoginFromContext(ctx context.Context) (string, bool) {
	login, ok := ctx.Value(userLoginKey).(string)
	return login, ok
}
