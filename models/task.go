package models

import (
	"fmt"
	"time"
)

// Priority - приоритет задачи. Пустая строка означает, что приоритет не задан.
type Priority string

const (
	PriorityNone   Priority = ""
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority проверяет строку приоритета, пришедшую от клиента.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityNone, PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return PriorityNone, fmt.Errorf("unknown priority %q", s)
}

// FlagOption - значение переключателя флага на экране редактирования.
type FlagOption string

const (
	FlagOn  FlagOption = "On"
	FlagOff FlagOption = "Off"
)

// ParseFlagOption переводит значение переключателя в bool. Всё, кроме "On", считается выключенным.
func ParseFlagOption(s string) bool {
	return FlagOption(s) == FlagOn
}

// Task представляет задачу (элемент списка покупок) пользователя.
// Пустой ID означает, что задача еще не сохранена.
type Task struct {
	ID          string    `json:"id" db:"Id"`
	Title       string    `json:"title" db:"Title"`
	Description string    `json:"description" db:"Description"`
	URL         string    `json:"url" db:"Url"`
	DueDate     string    `json:"dueDate" db:"DueDate"`
	DueTime     string    `json:"dueTime" db:"DueTime"`
	Priority    Priority  `json:"priority" db:"Priority"`
	Flag        bool      `json:"flag" db:"Flag"`
	Completed   bool      `json:"completed" db:"Completed"`
	UserID      string    `json:"userId" db:"UserId"`
	PhotoRef    string    `json:"uriFile" db:"PhotoRef"` // Клиент ожидает "uriFile"
	CreatedAt   time.Time `json:"createdAt" db:"CreatedAt"`
}

// IsNew сообщает, что задача еще не получила идентификатор от сервера.
func (t Task) IsNew() bool {
	return t.ID == ""
}

// IsImportant - высокий приоритет или выставленный флаг.
func (t Task) IsImportant() bool {
	return t.Priority == PriorityHigh || t.Flag
}

// TaskStats - агрегированные счетчики для экрана статистики.
type TaskStats struct {
	Completed          int `json:"completed"`
	ImportantCompleted int `json:"importantCompleted"`
	Actionable         int `json:"actionable"`
}
