package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grocery.yaml")
	raw := `
listen_addr: ":9090"
database:
  driver: sqlite3
  main_dsn: tasks.db
  auth_dsn: users.db
storage:
  dir: /var/lib/grocery/blobs
  public_base_url: https://grocery.example.com
auth:
  jwt_key: from-file
  token_ttl: 2h
commit:
  timeout: 10s
  retry_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	t.Setenv("GROCERY_JWT_KEY", "from-env")
	t.Setenv("GROCERY_COMMIT_TIMEOUT", "45s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "tasks.db", cfg.Database.MainDSN)
	assert.Equal(t, "users.db", cfg.Database.AuthDSN)
	assert.Equal(t, "/var/lib/grocery/blobs", cfg.Storage.Dir)
	assert.Equal(t, "https://grocery.example.com", cfg.Storage.PublicBaseURL)
	assert.Equal(t, "from-env", cfg.Auth.JWTKey)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL.Std())
	assert.Equal(t, 45*time.Second, cfg.Commit.Timeout.Std())
	assert.Equal(t, 5, cfg.Commit.RetryAttempts)
	// не заданное в файле остается по умолчанию
	assert.Equal(t, 2*time.Second, cfg.Commit.RetryMaxDelay.Std())
	assert.Equal(t, int64(20*1024*1024), cfg.Storage.MaxUploadBytes)
}

func TestLoad_RequiresJWTKey(t *testing.T) {
	t.Setenv("GROCERY_JWT_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_key")
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("GROCERY_JWT_KEY", "secret")
	t.Setenv("GROCERY_DB_DRIVER", "oracle")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle")
}

func TestLoad_BadDurationInFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("commit:\n  timeout: soon\n"), 0o644))
	t.Setenv("GROCERY_JWT_KEY", "secret")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soon")
}
