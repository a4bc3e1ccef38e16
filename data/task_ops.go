package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"grocery_server_go/apperr"
	"grocery_server_go/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const taskColumns = `Id, UserId, Title, Description, Url, DueDate, DueTime, Priority, Flag, Completed, PhotoRef, CreatedAt`

// TaskStore - хранилище задач. Каждая операция получает ID владельца явно:
// запись штампуется им при сохранении, а чтение, обновление, удаление и счетчики фильтруются по нему.
type TaskStore struct {
	db    *sqlx.DB
	feed  *taskFeed
	retry *apperr.Retrier
	now   func() time.Time
	newID func() string
	list  func(ctx context.Context, userID string) ([]models.Task, error)
}

// NewTaskStore создает хранилище поверх открытой основной БД.
func NewTaskStore(db *sqlx.DB) *TaskStore {
	s := &TaskStore{
		db:    db,
		feed:  newTaskFeed(),
		retry: apperr.NewRetrier(3, 100*time.Millisecond, time.Second),
		now: func() time.Time {
			return time.Now().UTC().Truncate(time.Microsecond)
		},
		newID: func() string {
			return uuid.New().String()
		},
	}
	s.list = s.List
	return s
}

// SetRetrier задает политику повторов чтения снимков для Watch.
func (s *TaskStore) SetRetrier(r *apperr.Retrier) {
	if r != nil {
		s.retry = r
	}
}

// List возвращает задачи пользователя, новые первыми.
func (s *TaskStore) List(ctx context.Context, userID string) ([]models.Task, error) {
	tasks := []models.Task{}
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM Tasks WHERE UserId = ? ORDER BY CreatedAt DESC, Id`)
	if err := s.db.SelectContext(ctx, &tasks, query, userID); err != nil {
		return nil, classify("List", fmt.Errorf("ошибка получения задач пользователя %s: %w", userID, err))
	}
	return tasks, nil
}

// Get извлекает задачу по ID. Отсутствующая задача - не ошибка: возвращается nil, nil.
func (s *TaskStore) Get(ctx context.Context, userID, id string) (*models.Task, error) {
	if id == "" {
		return nil, nil
	}
	task := &models.Task{}
	query := s.db.Rebind(`SELECT ` + taskColumns + ` FROM Tasks WHERE Id = ?`)
	err := s.db.GetContext(ctx, task, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Не найдено
		}
		return nil, classify("Get", fmt.Errorf("ошибка получения задачи %s: %w", id, err))
	}
	if task.UserID != userID {
		return nil, apperr.New(apperr.KindPermissionDenied, "Get", fmt.Sprintf("task %s belongs to another user", id))
	}
	return task, nil
}

// Save создает новую задачу и возвращает ее сгенерированный ID.
// ID, переданный в task, игнорируется; UserID и CreatedAt проставляет хранилище.
func (s *TaskStore) Save(ctx context.Context, userID string, task models.Task) (string, error) {
	if userID == "" {
		return "", apperr.New(apperr.KindPrecondition, "Save", "owning user is required")
	}
	if _, err := models.ParsePriority(string(task.Priority)); err != nil {
		return "", apperr.Wrap(err, apperr.KindValidation, "Save", "invalid task")
	}

	task.ID = s.newID()
	task.UserID = userID
	task.CreatedAt = s.now()

	query := `INSERT INTO Tasks (` + taskColumns + `)
	          VALUES (:Id, :UserId, :Title, :Description, :Url, :DueDate, :DueTime, :Priority, :Flag, :Completed, :PhotoRef, :CreatedAt)`
	if _, err := s.db.NamedExecContext(ctx, query, task); err != nil {
		return "", classify("Save", fmt.Errorf("ошибка вставки задачи: %w", err))
	}
	log.Printf("Создана задача с ID: %s для пользователя %s", task.ID, userID)
	s.feed.notify(userID)
	return task.ID, nil
}

// Update полностью перезаписывает задачу task.ID. Никогда не создает новую запись:
// пустой или неизвестный ID - ошибка KindPrecondition, чужая задача - KindPermissionDenied.
// CreatedAt не меняется.
func (s *TaskStore) Update(ctx context.Context, userID string, task models.Task) error {
	if task.ID == "" {
		return apperr.New(apperr.KindPrecondition, "Update", "task has no identifier; save it first")
	}
	if _, err := models.ParsePriority(string(task.Priority)); err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "Update", "invalid task")
	}
	task.UserID = userID

	query := `UPDATE Tasks SET
	            Title = :Title, Description = :Description, Url = :Url, DueDate = :DueDate, DueTime = :DueTime,
	            Priority = :Priority, Flag = :Flag, Completed = :Completed, PhotoRef = :PhotoRef
	          WHERE Id = :Id AND UserId = :UserId`
	result, err := s.db.NamedExecContext(ctx, query, task)
	if err != nil {
		return classify("Update", fmt.Errorf("ошибка обновления задачи %s: %w", task.ID, err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify("Update", err)
	}
	if rowsAffected == 0 {
		return s.missingOrForeign(ctx, "Update", task.ID)
	}
	log.Printf("Обновлена задача с ID: %s для пользователя %s", task.ID, userID)
	s.feed.notify(userID)
	return nil
}

// Delete удаляет задачу. Повторное удаление не является ошибкой.
func (s *TaskStore) Delete(ctx context.Context, userID, id string) error {
	query := s.db.Rebind(`DELETE FROM Tasks WHERE Id = ? AND UserId = ?`)
	result, err := s.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return classify("Delete", fmt.Errorf("ошибка удаления задачи %s: %w", id, err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return classify("Delete", err)
	}
	if rowsAffected == 0 {
		err := s.missingOrForeign(ctx, "Delete", id)
		if errors.Is(err, apperr.Precondition) {
			return nil // уже удалена
		}
		return err
	}
	log.Printf("Удалена задача с ID: %s для пользователя %s", id, userID)
	s.feed.notify(userID)
	return nil
}

// missingOrForeign объясняет, почему запрос с фильтром по владельцу не затронул строк.
func (s *TaskStore) missingOrForeign(ctx context.Context, op, id string) error {
	var exists int
	query := s.db.Rebind(`SELECT COUNT(*) FROM Tasks WHERE Id = ?`)
	if err := s.db.GetContext(ctx, &exists, query, id); err != nil {
		return classify(op, err)
	}
	if exists > 0 {
		return apperr.New(apperr.KindPermissionDenied, op, fmt.Sprintf("task %s belongs to another user", id))
	}
	return apperr.New(apperr.KindPrecondition, op, fmt.Sprintf("task %s was never created", id))
}

// CountCompleted - количество выполненных задач пользователя.
func (s *TaskStore) CountCompleted(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, "CountCompleted",
		`SELECT COUNT(*) FROM Tasks WHERE UserId = ? AND Completed = ?`,
		userID, true)
}

// CountImportantCompleted - выполненные задачи с высоким приоритетом или флагом.
func (s *TaskStore) CountImportantCompleted(ctx context.Context, userID string) (int, error) {
	return s.count(ctx, "CountImportantCompleted",
		`SELECT COUNT(*) FROM Tasks WHERE UserId = ? AND Completed = ? AND (Priority = ? OR Flag = ?)`,
		userID, true, string(models.PriorityHigh), true)
}

// CountActionable - невыполненные задачи со средним или высоким приоритетом.
func (s *TaskStore) CountActionable(ctx context.Context, userID string) (int, error) {
	query, args, err := sqlx.In(`SELECT COUNT(*) FROM Tasks WHERE UserId = ? AND Completed = ? AND Priority IN (?)`,
		userID, false, []string{string(models.PriorityMedium), string(models.PriorityHigh)})
	if err != nil {
		return 0, fmt.Errorf("CountActionable: ошибка при формировании IN запроса: %w", err)
	}
	return s.count(ctx, "CountActionable", query, args...)
}

// Stats собирает все три счетчика.
func (s *TaskStore) Stats(ctx context.Context, userID string) (models.TaskStats, error) {
	var stats models.TaskStats
	var err error
	if stats.Completed, err = s.CountCompleted(ctx, userID); err != nil {
		return stats, err
	}
	if stats.ImportantCompleted, err = s.CountImportantCompleted(ctx, userID); err != nil {
		return stats, err
	}
	if stats.Actionable, err = s.CountActionable(ctx, userID); err != nil {
		return stats, err
	}
	return stats, nil
}

// count выполняет агрегат на стороне БД; строки задач клиенту не передаются.
func (s *TaskStore) count(ctx context.Context, op, query string, args ...interface{}) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.db.Rebind(query), args...); err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}
