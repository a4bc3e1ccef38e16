package controllers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"grocery_server_go/apperr"
	"grocery_server_go/auth"
	"grocery_server_go/data"
	"grocery_server_go/models"
	"grocery_server_go/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	api    *API
	server *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	mainDB, err := data.OpenMainDB("sqlite3", filepath.Join(dir, "main.db"))
	require.NoError(t, err)
	t.Cleanup(func() { mainDB.Close() })
	authDB, err := data.OpenAuthDB("sqlite3", filepath.Join(dir, "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { authDB.Close() })

	ts := &testServer{}
	ts.server = httptest.NewUnstartedServer(nil)
	baseURL := "http://" + ts.server.Listener.Addr().String()

	blobs, err := storage.NewLocalBlobStore(filepath.Join(dir, "uploads"), baseURL)
	require.NoError(t, err)

	ts.api = &API{
		Users:          data.NewUserStore(authDB),
		Tasks:          data.NewTaskStore(mainDB),
		Blobs:          blobs,
		Tokens:         auth.NewTokenService("test-key", time.Hour),
		Retrier:        &apperr.Retrier{Attempts: 2, BaseDelay: time.Millisecond},
		CommitTimeout:  5 * time.Second,
		MaxUploadBytes: 1 << 20,
		Databases:      map[string]Pinger{"main": mainDB, "auth": authDB},
	}
	ts.server.Config.Handler = NewRouter(ts.api)
	ts.server.Start()
	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) register(t *testing.T, email string) string {
	t.Helper()
	body := `{"email":"` + email + `","password":"secret123","displayName":"Tester"}`
	resp, err := http.Post(ts.server.URL+"/api/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out models.AuthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func (ts *testServer) do(t *testing.T, token, method, path, contentType string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, ts.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestTasksAPI_CreateGetUpdateDelete(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice@example.com")

	resp := ts.do(t, token, http.MethodPost, "/api/tasks", "application/json",
		[]byte(`{"title":"Milk","priority":"High","dueHour":9,"dueMinute":5}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Task](t, resp)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Milk", created.Title)
	assert.Equal(t, "09:05", created.DueTime)

	resp = ts.do(t, token, http.MethodGet, "/api/tasks/"+created.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[models.Task](t, resp)
	assert.Equal(t, "Milk", fetched.Title)
	assert.Equal(t, models.PriorityHigh, fetched.Priority)
	assert.False(t, created.CreatedAt.IsZero())
	assert.True(t, created.CreatedAt.Equal(fetched.CreatedAt), "POST %v, GET %v", created.CreatedAt, fetched.CreatedAt)
	assert.Equal(t, fetched, created)

	resp = ts.do(t, token, http.MethodPut, "/api/tasks/"+created.ID, "application/json",
		[]byte(`{"description":"2 liters","flag":"On"}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Task](t, resp)
	assert.Equal(t, "Milk", updated.Title, "fields missing from the request keep their values")
	assert.Equal(t, "2 liters", updated.Description)
	assert.True(t, updated.Flag)

	resp = ts.do(t, token, http.MethodGet, "/api/tasks", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Task](t, resp), 1)

	resp = ts.do(t, token, http.MethodDelete, "/api/tasks/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = ts.do(t, token, http.MethodDelete, "/api/tasks/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.do(t, token, http.MethodGet, "/api/tasks/"+created.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = ts.do(t, token, http.MethodPut, "/api/tasks/"+created.ID, "application/json", []byte(`{"title":"ghost"}`))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTasksAPI_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	resp := ts.do(t, "", http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.do(t, "", http.MethodGet, "/api/Service/status", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTasksAPI_OtherUsersTaskForbidden(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register(t, "alice@example.com")
	bob := ts.register(t, "bob@example.com")

	resp := ts.do(t, alice, http.MethodPost, "/api/tasks", "application/json", []byte(`{"title":"Bread"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Task](t, resp)

	resp = ts.do(t, bob, http.MethodGet, "/api/tasks/"+created.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = ts.do(t, bob, http.MethodDelete, "/api/tasks/"+created.ID, "", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.do(t, bob, http.MethodGet, "/api/tasks", "", nil)
	assert.Empty(t, decode[[]models.Task](t, resp))
}

func TestTasksAPI_RejectsInvalidInput(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice@example.com")

	resp := ts.do(t, token, http.MethodPost, "/api/tasks", "application/json", []byte(`{"priority":"Urgent"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, token, http.MethodPost, "/api/tasks", "application/json", []byte(`{"dueHour":9}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.do(t, token, http.MethodPost, "/api/tasks", "application/json", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasksAPI_CompletedToggleAndStats(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice@example.com")

	resp := ts.do(t, token, http.MethodPost, "/api/tasks", "application/json",
		[]byte(`{"title":"Milk","priority":"High"}`))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Task](t, resp)

	resp = ts.do(t, token, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, models.TaskStats{Actionable: 1}, decode[models.TaskStats](t, resp))

	resp = ts.do(t, token, http.MethodPatch, "/api/tasks/"+created.ID+"/completed", "application/json", []byte(`{"completed":true}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[models.Task](t, resp).Completed)

	resp = ts.do(t, token, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, models.TaskStats{Completed: 1, ImportantCompleted: 1}, decode[models.TaskStats](t, resp))

	resp = ts.do(t, token, http.MethodPatch, "/api/tasks/"+created.ID+"/completed", "application/json", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasksAPI_MultipartPhotosAreUploadedAndListed(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice@example.com")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	require.NoError(t, form.WriteField("task", `{"title":"Cake"}`))
	for _, name := range []string{"front.jpg", "back.png"} {
		part, err := form.CreateFormFile("photos", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("image bytes of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())

	resp := ts.do(t, token, http.MethodPost, "/api/tasks", form.FormDataContentType(), body.Bytes())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[models.Task](t, resp)
	require.NotEmpty(t, created.PhotoRef)

	resp = ts.do(t, token, http.MethodGet, "/api/tasks/"+created.ID+"/photos", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	urls := decode[map[string][]string](t, resp)["urls"]
	require.Len(t, urls, 2)

	photo, err := http.Get(urls[0])
	require.NoError(t, err)
	defer photo.Body.Close()
	assert.Equal(t, http.StatusOK, photo.StatusCode)
}

func TestTasksAPI_MultipartRejectsDisallowedType(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice@example.com")

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("photos", "script.exe")
	require.NoError(t, err)
	part.Write([]byte("MZ"))
	require.NoError(t, form.Close())

	resp := ts.do(t, token, http.MethodPost, "/api/tasks", form.FormDataContentType(), body.Bytes())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasksAPI_StreamPushesSnapshots(t *testing.T) {
	ts := newTestServer(t)
	token := ts.register(t, "alice@example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.server.URL+"/api/tasks/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewScanner(resp.Body)
	next := func() []models.Task {
		t.Helper()
		for events.Scan() {
			line := events.Text()
			if strings.HasPrefix(line, "data: ") {
				var tasks []models.Task
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &tasks))
				return tasks
			}
		}
		t.Fatalf("stream ended: %v", events.Err())
		return nil
	}

	assert.Empty(t, next())

	created := ts.do(t, token, http.MethodPost, "/api/tasks", "application/json", []byte(`{"title":"Eggs"}`))
	require.Equal(t, http.StatusCreated, created.StatusCode)

	tasks := next()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Eggs", tasks[0].Title)
}
