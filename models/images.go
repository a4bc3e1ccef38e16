package models

import "io"

// ImageSource - выбранный пользователем локальный ресурс (фото).
// URI используется только для имени файла в хранилище: берется последний сегмент пути.
type ImageSource interface {
	URI() string
	Open() (io.ReadCloser, error)
}

// Images - набор фото одной сессии редактирования.
// FilePath совпадает с Task.PhotoRef и связывает загруженные файлы с задачей.
// В БД не хранится.
type Images struct {
	Sources  []ImageSource
	FilePath string
}

// Len возвращает количество выбранных фото.
func (i Images) Len() int {
	return len(i.Sources)
}

// UploadedFile - итог загрузки одного файла.
type UploadedFile struct {
	URI string `json:"uri"`
	Key string `json:"key"`
	Err error  `json:"-"`
}

// TaskEditRequest - изменения задачи от клиента. nil означает "не менять".
type TaskEditRequest struct {
	Title         *string `json:"title,omitempty"`
	Description   *string `json:"description,omitempty"`
	URL           *string `json:"url,omitempty"`
	DueDateMillis *int64  `json:"dueDateMillis,omitempty"`
	DueHour       *int    `json:"dueHour,omitempty"`
	DueMinute     *int    `json:"dueMinute,omitempty"`
	Priority      *string `json:"priority,omitempty"`
	Flag          *string `json:"flag,omitempty"` // "On" или "Off"
	Completed     *bool   `json:"completed,omitempty"`
}
