package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config - настройки сервера. Порядок применения: значения по умолчанию,
// YAML-файл, .env, переменные окружения GROCERY_*.
type Config struct {
	ListenAddr string         `yaml:"listen_addr"`
	Database   DatabaseConfig `yaml:"database"`
	Storage    StorageConfig  `yaml:"storage"`
	Auth       AuthConfig     `yaml:"auth"`
	Commit     CommitConfig   `yaml:"commit"`
}

// DatabaseConfig описывает подключения к основной БД (задачи) и БД аутентификации (пользователи).
type DatabaseConfig struct {
	Driver  string `yaml:"driver"` // sqlite3 или postgres
	MainDSN string `yaml:"main_dsn"`
	AuthDSN string `yaml:"auth_dsn"`
}

type StorageConfig struct {
	Dir            string `yaml:"dir"`
	PublicBaseURL  string `yaml:"public_base_url"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type AuthConfig struct {
	JWTKey   string   `yaml:"jwt_key"`
	TokenTTL Duration `yaml:"token_ttl"`
}

// CommitConfig управляет таймаутом и повторами при сохранении задачи.
type CommitConfig struct {
	Timeout        Duration `yaml:"timeout"`
	RetryAttempts  int      `yaml:"retry_attempts"`
	RetryBaseDelay Duration `yaml:"retry_base_delay"`
	RetryMaxDelay  Duration `yaml:"retry_max_delay"`
}

// Duration позволяет писать в YAML строки вида "30s" или "1h".
type Duration time.Duration

// UnmarshalYAML реализует yaml.Unmarshaler для Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std возвращает значение как time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default возвращает конфигурацию для локального запуска на SQLite.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		Database: DatabaseConfig{
			Driver:  "sqlite3",
			MainDSN: "GroceryServer.db",
			AuthDSN: "AuthServer.db",
		},
		Storage: StorageConfig{
			Dir:            "./uploads",
			PublicBaseURL:  "http://127.0.0.1:8080",
			MaxUploadBytes: 20 * 1024 * 1024,
		},
		Auth: AuthConfig{
			TokenTTL: Duration(24 * time.Hour),
		},
		Commit: CommitConfig{
			Timeout:        Duration(30 * time.Second),
			RetryAttempts:  3,
			RetryBaseDelay: Duration(200 * time.Millisecond),
			RetryMaxDelay:  Duration(2 * time.Second),
		},
	}
}

// Load читает конфигурацию. path может быть пустым - тогда YAML-файл не используется.
// Отсутствующий .env не является ошибкой.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		log.Printf("Loaded configuration from %s", path)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env: %v", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет обязательные поля.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTKey) == "" {
		return errors.New("auth.jwt_key (GROCERY_JWT_KEY) is required")
	}
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Database.MainDSN == "" || c.Database.AuthDSN == "" {
		return errors.New("database.main_dsn and database.auth_dsn are required")
	}
	if c.Storage.Dir == "" {
		return errors.New("storage.dir is required")
	}
	if c.Commit.Timeout <= 0 {
		return errors.New("commit.timeout must be positive")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GROCERY_LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("GROCERY_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("GROCERY_MAIN_DSN"); v != "" {
		cfg.Database.MainDSN = v
	}
	if v := os.Getenv("GROCERY_AUTH_DSN"); v != "" {
		cfg.Database.AuthDSN = v
	}
	if v := os.Getenv("GROCERY_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("GROCERY_PUBLIC_BASE_URL"); v != "" {
		cfg.Storage.PublicBaseURL = v
	}
	if v := getEnvInt("GROCERY_MAX_UPLOAD_BYTES"); v > 0 {
		cfg.Storage.MaxUploadBytes = int64(v)
	}
	if v := os.Getenv("GROCERY_JWT_KEY"); v != "" {
		cfg.Auth.JWTKey = v
	}
	if v := getEnvDuration("GROCERY_TOKEN_TTL"); v > 0 {
		cfg.Auth.TokenTTL = Duration(v)
	}
	if v := getEnvDuration("GROCERY_COMMIT_TIMEOUT"); v > 0 {
		cfg.Commit.Timeout = Duration(v)
	}
	if v := getEnvInt("GROCERY_RETRY_ATTEMPTS"); v > 0 {
		cfg.Commit.RetryAttempts = v
	}
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		log.Printf("Warning: ignoring %s=%q: %v", key, val, err)
		return 0
	}
	return num
}

func getEnvDuration(key string) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		log.Printf("Warning: ignoring %s=%q: %v", key, val, err)
		return 0
	}
	return d
}
