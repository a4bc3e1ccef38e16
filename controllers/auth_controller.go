package controllers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strings"

	"grocery_server_go/apperr"
	"grocery_server_go/data"
	"grocery_server_go/models"
)

const minPasswordLength = 6

// RegisterHandler обрабатывает регистрацию нового пользователя.
// Пример URL: POST /api/auth/register
func (a *API) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		respondError(w, http.StatusBadRequest, "Email и пароль не могут быть пустыми.")
		return
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(req.Email)); err != nil {
		respondError(w, http.StatusBadRequest, "Некорректный email.")
		return
	}
	if len(req.Password) < minPasswordLength {
		respondError(w, http.StatusBadRequest, "Пароль слишком короткий.")
		return
	}

	user, err := a.Users.CreateUser(r.Context(), req.Email, req.Password, strings.TrimSpace(req.DisplayName))
	if err != nil {
		if errors.Is(err, data.ErrEmailTaken) {
			respondError(w, http.StatusConflict, "Пользователь с таким email уже существует.")
			return
		}
		log.Printf("Ошибка при создании пользователя %s: %v", req.Email, err)
		respondAppError(w, err)
		return
	}

	a.respondWithToken(w, http.StatusCreated, user)
}

// LoginHandler обрабатывает вход пользователя по email и паролю.
// Пример URL: POST /api/auth/login
func (a *API) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
		return
	}
	defer r.Body.Close()

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Password) == "" {
		respondError(w, http.StatusBadRequest, "Email и пароль не могут быть пустыми.")
		return
	}

	user, err := a.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperr.PermissionDenied) {
			respondError(w, http.StatusUnauthorized, "Неверный email или пароль.")
			return
		}
		log.Printf("Ошибка при поиске пользователя по email %s: %v", req.Email, err)
		respondAppError(w, err)
		return
	}

	a.respondWithToken(w, http.StatusOK, user)
}

func (a *API) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	tokenString, _, err := a.Tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		log.Printf("Ошибка при генерации токена для пользователя %s: %v", user.Email, err)
		respondError(w, http.StatusInternalServerError, "Не удалось сгенерировать токен доступа.")
		return
	}
	respondJSON(w, status, models.AuthResponse{Token: tokenString, User: user.Public()})
}
