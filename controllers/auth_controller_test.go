package controllers

import (
	"net/http"
	"testing"

	"grocery_server_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthAPI(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "alice@example.com")

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"duplicate email", "/api/auth/register", `{"email":"ALICE@example.com","password":"secret123"}`, http.StatusConflict},
		{"bad email", "/api/auth/register", `{"email":"not-an-email","password":"secret123"}`, http.StatusBadRequest},
		{"short password", "/api/auth/register", `{"email":"bob@example.com","password":"123"}`, http.StatusBadRequest},
		{"empty fields", "/api/auth/register", `{}`, http.StatusBadRequest},
		{"login ok", "/api/auth/login", `{"email":"alice@example.com","password":"secret123"}`, http.StatusOK},
		{"login wrong password", "/api/auth/login", `{"email":"alice@example.com","password":"nope-nope"}`, http.StatusUnauthorized},
		{"login unknown user", "/api/auth/login", `{"email":"nobody@example.com","password":"secret123"}`, http.StatusUnauthorized},
		{"login malformed", "/api/auth/login", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, "", http.MethodPost, tt.path, "application/json", []byte(tt.body))
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestAuthAPI_LoginTokenWorks(t *testing.T) {
	ts := newTestServer(t)
	ts.register(t, "carol@example.com")

	resp := ts.do(t, "", http.MethodPost, "/api/auth/login", "application/json",
		[]byte(`{"email":"carol@example.com","password":"secret123"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[models.AuthResponse](t, resp)
	assert.Equal(t, "carol@example.com", out.User.Email)

	resp = ts.do(t, out.Token, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
