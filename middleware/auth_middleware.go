package middleware

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"grocery_server_go/auth"
)

type contextKey string

// UserIDKey - ключ для хранения ID пользователя в контексте запроса.
const UserIDKey contextKey = "userID"

// EmailKey - ключ для хранения email пользователя в контексте запроса.
const EmailKey contextKey = "email"

// UserIDFromContext возвращает ID пользователя, положенный JWTMiddleware.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID кладет ID пользователя в контекст.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// JWTMiddleware проверяет JWT в заголовке Authorization (или в параметре access_token для SSE)
// и добавляет ID пользователя в контекст запроса.
func JWTMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := bearerToken(r)
			if !ok {
				log.Printf("JWTMiddleware: ОШИБКА - нет токена для %s %s", r.Method, r.URL.Path)
				unauthorized(w, "Отсутствует заголовок Authorization (ожидается Bearer {token})")
				return
			}

			claims, err := tokens.ValidateToken(tokenString)
			if err != nil {
				log.Printf("JWTMiddleware: ОШИБКА - невалидный токен для %s %s: %v", r.Method, r.URL.Path, err)
				unauthorized(w, "Невалидный токен: "+err.Error())
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			ctx = context.WithValue(ctx, EmailKey, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		// EventSource в браузере не умеет ставить заголовки
		token := r.URL.Query().Get("access_token")
		return token, token != ""
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
