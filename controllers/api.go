package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"grocery_server_go/apperr"
	"grocery_server_go/auth"
	"grocery_server_go/data"
	"grocery_server_go/editor"
	"grocery_server_go/middleware"
	"grocery_server_go/storage"

	"github.com/gorilla/mux"
)

// Pinger - то, что проверяет health-check (обычно *sqlx.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// API собирает зависимости обработчиков.
type API struct {
	Users          *data.UserStore
	Tasks          *data.TaskStore
	Blobs          *storage.LocalBlobStore
	Tokens         *auth.TokenService
	Retrier        *apperr.Retrier
	CommitTimeout  time.Duration
	MaxUploadBytes int64
	Databases      map[string]Pinger
}

func (a *API) editorDeps() editor.Deps {
	return editor.Deps{
		Tasks:         a.Tasks,
		Blobs:         a.Blobs,
		Retrier:       a.Retrier,
		CommitTimeout: a.CommitTimeout,
	}
}

// NewRouter регистрирует все маршруты сервера.
func NewRouter(a *API) *mux.Router {
	router := mux.NewRouter()

	// Маршруты аутентификации (открытые)
	authRouter := router.PathPrefix("/api/auth").Subrouter()
	authRouter.HandleFunc("/register", a.RegisterHandler).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", a.LoginHandler).Methods(http.MethodPost)

	// Маршрут для проверки состояния сервера (открытый, без JWT)
	router.HandleFunc("/api/Service/status", a.HealthCheck).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(middleware.JWTMiddleware(a.Tokens))

	apiRouter.HandleFunc("/tasks", a.ListTasksHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/tasks", a.CreateTaskHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/tasks/stream", a.StreamTasksHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/tasks/{id}", a.GetTaskHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/tasks/{id}", a.UpdateTaskHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/tasks/{id}", a.DeleteTaskHandler).Methods(http.MethodDelete)
	apiRouter.HandleFunc("/tasks/{id}/completed", a.SetCompletedHandler).Methods(http.MethodPatch)
	apiRouter.HandleFunc("/tasks/{id}/photos", a.TaskPhotosHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/stats", a.StatsHandler).Methods(http.MethodGet)

	// Фото отдаются без JWT, чтобы клиент мог открыть их по прямой ссылке
	router.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(a.Blobs.Root()))))

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "Сервер GroceryServerGO запущен.")
	}).Methods(http.MethodGet)

	return router
}

// currentUser достает ID пользователя, положенный JWTMiddleware.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Пользователь не аутентифицирован.")
	}
	return userID, ok
}
