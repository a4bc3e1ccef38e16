package controllers

import (
	"encoding/json"
	"log"
	"net/http"

	"grocery_server_go/apperr"
	"grocery_server_go/editor"
	"grocery_server_go/models"

	"github.com/gorilla/mux"
)

// ListTasksHandler возвращает задачи пользователя, новые первыми.
// Пример URL: GET /api/tasks
func (a *API) ListTasksHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	tasks, err := a.Tasks.List(r.Context(), userID)
	if err != nil {
		log.Printf("Ошибка получения задач пользователя %s: %v", userID, err)
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, tasks)
}

// GetTaskHandler возвращает одну задачу.
// Пример URL: GET /api/tasks/{id}
func (a *API) GetTaskHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	task, err := a.Tasks.Get(r.Context(), userID, id)
	if err != nil {
		respondAppError(w, err)
		return
	}
	if task == nil {
		respondError(w, http.StatusNotFound, "Задача не найдена.")
		return
	}
	respondJSON(w, http.StatusOK, task)
}

// CreateTaskHandler создает задачу через сессию редактирования: сначала загружаются фото, затем запись.
// Пример URL: POST /api/tasks (JSON или multipart: task + photos)
func (a *API) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	a.editTask(w, r, "", http.StatusCreated)
}

// UpdateTaskHandler изменяет существующую задачу. Поля, отсутствующие в запросе, не меняются.
// Пример URL: PUT /api/tasks/{id}
func (a *API) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	a.editTask(w, r, mux.Vars(r)["id"], http.StatusOK)
}

func (a *API) editTask(w http.ResponseWriter, r *http.Request, taskID string, successStatus int) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, photos, ok := readTaskRequest(w, r, a.MaxUploadBytes)
	if !ok {
		return
	}

	session, ok := a.openSession(w, r, userID, taskID)
	if !ok {
		return
	}
	if err := applyEdits(session, req); err != nil {
		respondAppError(w, err)
		return
	}
	if len(photos) > 0 {
		if err := session.SetPhotos(photos); err != nil {
			respondAppError(w, err)
			return
		}
	}

	if err := session.Commit(r.Context(), nil); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, successStatus, session.Task())
}

// SetCompletedHandler переключает отметку выполнения задачи.
// Пример URL: PATCH /api/tasks/{id}/completed с телом {"completed": true}
func (a *API) SetCompletedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var body struct {
		Completed *bool `json:"completed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Completed == nil {
		respondError(w, http.StatusBadRequest, "Ожидается JSON вида {\"completed\": true}.")
		return
	}

	session, ok := a.openSession(w, r, userID, mux.Vars(r)["id"])
	if !ok {
		return
	}
	if err := session.SetCompleted(*body.Completed); err != nil {
		respondAppError(w, err)
		return
	}
	if err := session.Commit(r.Context(), nil); err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session.Task())
}

// DeleteTaskHandler удаляет задачу. Повторное удаление не является ошибкой.
// Пример URL: DELETE /api/tasks/{id}
func (a *API) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := a.Tasks.Delete(r.Context(), userID, id); err != nil {
		respondAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TaskPhotosHandler возвращает URL загруженных фото задачи.
// Пример URL: GET /api/tasks/{id}/photos
func (a *API) TaskPhotosHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	session, ok := a.openSession(w, r, userID, mux.Vars(r)["id"])
	if !ok {
		return
	}
	urls, err := session.PhotoURLs(r.Context())
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string][]string{"urls": urls})
}

// StatsHandler возвращает счетчики выполненных, важных выполненных и актуальных задач.
// Пример URL: GET /api/stats
func (a *API) StatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	stats, err := a.Tasks.Stats(r.Context(), userID)
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// openSession открывает сессию редактирования. Для непустого taskID отсутствующая задача дает 404.
func (a *API) openSession(w http.ResponseWriter, r *http.Request, userID, taskID string) (*editor.Session, bool) {
	session, err := editor.Open(r.Context(), a.editorDeps(), userID, taskID)
	if err != nil {
		respondAppError(w, err)
		return nil, false
	}
	if taskID != "" && session.Task().ID == "" {
		respondError(w, http.StatusNotFound, "Задача не найдена.")
		return nil, false
	}
	return session, true
}

// applyEdits применяет к сессии только переданные поля.
func applyEdits(s *editor.Session, req models.TaskEditRequest) error {
	if req.Title != nil {
		if err := s.SetTitle(*req.Title); err != nil {
			return err
		}
	}
	if req.Description != nil {
		if err := s.SetDescription(*req.Description); err != nil {
			return err
		}
	}
	if req.URL != nil {
		if err := s.SetURL(*req.URL); err != nil {
			return err
		}
	}
	if req.DueDateMillis != nil {
		if err := s.SetDueDate(*req.DueDateMillis); err != nil {
			return err
		}
	}
	if (req.DueHour == nil) != (req.DueMinute == nil) {
		return apperr.New(apperr.KindValidation, "applyEdits", "dueHour and dueMinute must be set together")
	}
	if req.DueHour != nil {
		if err := s.SetDueTime(*req.DueHour, *req.DueMinute); err != nil {
			return err
		}
	}
	if req.Priority != nil {
		if err := s.SetPriority(*req.Priority); err != nil {
			return err
		}
	}
	if req.Flag != nil {
		if err := s.SetFlag(*req.Flag); err != nil {
			return err
		}
	}
	if req.Completed != nil {
		if err := s.SetCompleted(*req.Completed); err != nil {
			return err
		}
	}
	return nil
}
