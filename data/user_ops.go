package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"grocery_server_go/apperr"
	"grocery_server_go/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken возвращается при регистрации на уже занятый email.
var ErrEmailTaken = apperr.New(apperr.KindValidation, "CreateUser", "user with this email already exists")

const userColumns = `Id, Email, DisplayName, PasswordHash, CreatedAt, UpdatedAt`

// UserStore - учетные записи в БД аутентификации.
type UserStore struct {
	db *sqlx.DB
}

func NewUserStore(db *sqlx.DB) *UserStore {
	return &UserStore{db: db}
}

// HashPassword генерирует хеш bcrypt для пароля.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash сравнивает пароль с хешем.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser создает пользователя; пароль хешируется здесь.
func (s *UserStore) CreateUser(ctx context.Context, email, password, displayName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	query := `INSERT INTO Users (` + userColumns + `)
	          VALUES (:Id, :Email, :DisplayName, :PasswordHash, :CreatedAt, :UpdatedAt)`
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		return nil, classify("CreateUser", fmt.Errorf("failed to insert user: %w", err))
	}
	return user, nil
}

// GetUserByEmail извлекает пользователя по email. nil, nil - пользователь не найден.
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM Users WHERE Email = ?`)
	err := s.db.GetContext(ctx, user, query, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Пользователь не найден
		}
		return nil, classify("GetUserByEmail", fmt.Errorf("failed to get user by email %s: %w", email, err))
	}
	return user, nil
}

// GetUserByID извлекает пользователя по ID.
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := s.db.Rebind(`SELECT ` + userColumns + ` FROM Users WHERE Id = ?`)
	err := s.db.GetContext(ctx, user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, classify("GetUserByID", fmt.Errorf("failed to get user by ID %s: %w", id, err))
	}
	return user, nil
}

// Authenticate проверяет email и пароль. Неверная пара - KindPermissionDenied.
func (s *UserStore) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPasswordHash(password, user.PasswordHash) {
		return nil, apperr.New(apperr.KindPermissionDenied, "Authenticate", "invalid email or password")
	}
	return user, nil
}
