package models

import "time"

// User - учетная запись владельца задач. ID пользователя совпадает с Task.UserID.
type User struct {
	ID           string    `json:"id" db:"Id"`
	Email        string    `json:"email" db:"Email"`
	DisplayName  string    `json:"display_name" db:"DisplayName"`
	PasswordHash string    `json:"-" db:"PasswordHash"`
	CreatedAt    time.Time `json:"created_at" db:"CreatedAt"`
	UpdatedAt    time.Time `json:"updated_at" db:"UpdatedAt"`
}

// Public возвращает данные пользователя без хеша пароля.
func (u *User) Public() UserPublicInfo {
	return UserPublicInfo{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
}

// SignUpRequest - тело POST /api/auth/register.
type SignUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// SignInRequest - тело POST /api/auth/login.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserPublicInfo struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// AuthResponse - токен и профиль после регистрации или входа.
type AuthResponse struct {
	Token string         `json:"token"`
	User  UserPublicInfo `json:"user"`
}
