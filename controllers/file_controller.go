package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"grocery_server_go/models"
	"grocery_server_go/storage"
)

var allowedExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".heic": true}

// readTaskRequest разбирает тело создания или изменения задачи.
// JSON-тело содержит только поля задачи. multipart/form-data: поле "task" с JSON и файлы "photos".
// При ошибке ответ уже отправлен и возвращается ok == false.
func readTaskRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (req models.TaskEditRequest, photos []models.ImageSource, ok bool) {
	// Устанавливаем максимальный размер тела запроса
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			if !respondTooLarge(w, err, maxBytes) {
				respondError(w, http.StatusBadRequest, "Неверный формат запроса: "+err.Error())
			}
			return req, nil, false
		}
		return req, nil, true
	}

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		if !respondTooLarge(w, err, maxBytes) {
			respondError(w, http.StatusBadRequest, "Не удалось обработать multipart form: "+err.Error())
		}
		return req, nil, false
	}

	if raw := r.FormValue("task"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			respondError(w, http.StatusBadRequest, "Неверный формат поля task: "+err.Error())
			return req, nil, false
		}
	}

	for _, header := range r.MultipartForm.File["photos"] {
		ext := strings.ToLower(filepath.Ext(header.Filename))
		if ext != "" && !allowedExtensions[ext] {
			respondError(w, http.StatusBadRequest, "Недопустимый тип файла "+header.Filename+". Разрешены: jpg, jpeg, png, gif, webp, heic.")
			return req, nil, false
		}
		photos = append(photos, storage.MultipartSource{Header: header})
	}
	return req, photos, true
}

func respondTooLarge(w http.ResponseWriter, err error, maxBytes int64) bool {
	var tooLarge *http.MaxBytesError
	if !errors.As(err, &tooLarge) {
		return false
	}
	respondError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Размер запроса не должен превышать %d байт.", maxBytes))
	return true
}
