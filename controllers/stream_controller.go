package controllers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
)

// StreamTasksHandler отдает живой список задач как Server-Sent Events.
// Каждое событие "tasks" содержит полный список пользователя. Поток закрывается вместе с соединением.
// Пример URL: GET /api/tasks/stream
func (a *API) StreamTasksHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Потоковая передача не поддерживается.")
		return
	}

	users := make(chan string, 1)
	users <- userID
	close(users)
	snapshots := a.Tasks.Watch(r.Context(), users)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log.Printf("StreamTasks: пользователь %s подписан на изменения", userID)
	for tasks := range snapshots {
		payload, err := json.Marshal(tasks)
		if err != nil {
			log.Printf("StreamTasks: ошибка кодирования списка: %v", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: tasks\ndata: %s\n\n", payload); err != nil {
			log.Printf("StreamTasks: клиент %s отключился: %v", userID, err)
			return
		}
		flusher.Flush()
	}
	log.Printf("StreamTasks: подписка пользователя %s завершена", userID)
}
