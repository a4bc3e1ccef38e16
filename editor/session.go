package editor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"grocery_server_go/apperr"
	"grocery_server_go/models"
	"grocery_server_go/storage"
)

const (
	// DueDateLayout - формат даты выполнения, который показывает клиент ("Fri, 16 Oct 2026").
	DueDateLayout = "Mon, 2 Jan 2006"
	// PhotoTokenLayout - формат токена пути фото задачи.
	PhotoTokenLayout = "20060102T150405.000000000"
)

// State - состояние сессии редактирования.
type State int

const (
	Loading State = iota
	Editing
	Committing
	Done
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Editing:
		return "editing"
	case Committing:
		return "committing"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrNotEditing возвращается при изменении полей или коммите вне состояния Editing.
var ErrNotEditing = apperr.New(apperr.KindPrecondition, "editor", "session is not in editing state")

// TaskRepository - часть хранилища задач, нужная сессии.
type TaskRepository interface {
	Get(ctx context.Context, userID, id string) (*models.Task, error)
	Save(ctx context.Context, userID string, task models.Task) (string, error)
	Update(ctx context.Context, userID string, task models.Task) error
}

// BlobStore - хранилище фото задач.
type BlobStore interface {
	Upload(ctx context.Context, userID string, images models.Images) (storage.UploadResult, error)
	ListAndResolve(ctx context.Context, userID, filePath string) ([]string, error)
}

// Deps - зависимости сессии. Retrier и Now необязательны.
type Deps struct {
	Tasks         TaskRepository
	Blobs         BlobStore
	Retrier       *apperr.Retrier
	CommitTimeout time.Duration
	Now           func() time.Time
}

// Session владеет одной редактируемой задачей и набором выбранных фото.
type Session struct {
	deps   Deps
	userID string

	mu     sync.Mutex
	state  State
	task   models.Task
	images models.Images
	err    error
}

// Open начинает сессию. Пустой taskID - новая задача, сессия сразу в Editing.
// Иначе задача загружается; отсутствующая задача дает пустую запись.
func Open(ctx context.Context, deps Deps, userID, taskID string) (*Session, error) {
	if deps.Tasks == nil || deps.Blobs == nil {
		return nil, errors.New("editor: task and blob stores are required")
	}
	if deps.Retrier == nil {
		deps.Retrier = &apperr.Retrier{Attempts: 1}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &Session{deps: deps, userID: userID, state: Editing}
	if taskID == "" {
		return s, nil
	}

	s.state = Loading
	var loaded *models.Task
	err := deps.Retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		loaded, err = deps.Tasks.Get(ctx, userID, taskID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("Open: не удалось загрузить задачу %s: %w", taskID, err)
	}
	if loaded != nil {
		s.task = *loaded
		s.images.FilePath = loaded.PhotoRef
	}
	s.state = Editing
	return s, nil
}

// State возвращает текущее состояние.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Task возвращает копию редактируемой задачи.
func (s *Session) Task() models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.task
}

// Images возвращает копию набора фото.
func (s *Session) Images() models.Images {
	s.mu.Lock()
	defer s.mu.Unlock()
	images := s.images
	images.Sources = append([]models.ImageSource(nil), s.images.Sources...)
	return images
}

// Err - ошибка последнего неудачного коммита.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) edit(apply func(t *models.Task, images *models.Images) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Editing {
		return ErrNotEditing
	}
	return apply(&s.task, &s.images)
}

func (s *Session) SetTitle(title string) error {
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.Title = title
		return nil
	})
}

func (s *Session) SetDescription(description string) error {
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.Description = description
		return nil
	})
}

func (s *Session) SetURL(url string) error {
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.URL = url
		return nil
	})
}

// SetDueDate принимает дату из выбора даты в миллисекундах Unix и хранит ее в UTC.
func (s *Session) SetDueDate(millis int64) error {
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.DueDate = time.UnixMilli(millis).UTC().Format(DueDateLayout)
		return nil
	})
}

// SetDueTime хранит время в виде "HH:MM".
func (s *Session) SetDueTime(hour, minute int) error {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return apperr.New(apperr.KindValidation, "SetDueTime", fmt.Sprintf("invalid time %d:%d", hour, minute))
	}
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.DueTime = fmt.Sprintf("%02d:%02d", hour, minute)
		return nil
	})
}

func (s *Session) SetPriority(priority string) error {
	p, err := models.ParsePriority(priority)
	if err != nil {
		return apperr.Wrap(err, apperr.KindValidation, "SetPriority", "invalid priority")
	}
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.Priority = p
		return nil
	})
}

// SetFlag принимает значение переключателя: "On" или "Off".
func (s *Session) SetFlag(option string) error {
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.Flag = models.ParseFlagOption(option)
		return nil
	})
}

func (s *Session) SetCompleted(completed bool) error {
	return s.edit(func(t *models.Task, _ *models.Images) error {
		t.Completed = completed
		return nil
	})
}

// SetPhotos заменяет выбранные фото и выдает новый токен пути для задачи и набора фото.
// Пустой выбор очищает набор и оставляет прежний токен.
func (s *Session) SetPhotos(sources []models.ImageSource) error {
	return s.edit(func(t *models.Task, images *models.Images) error {
		images.Sources = append([]models.ImageSource(nil), sources...)
		if len(sources) == 0 {
			return nil
		}
		token := s.deps.Now().UTC().Format(PhotoTokenLayout)
		t.PhotoRef = token
		images.FilePath = token
		return nil
	})
}

// Commit загружает выбранные фото, затем сохраняет новую задачу или обновляет существующую.
// Успех переводит сессию в Done и вызывает onDone. При ошибке сессия возвращается в Editing,
// а ошибка доступна через Err.
func (s *Session) Commit(ctx context.Context, onDone func()) error {
	s.mu.Lock()
	if s.state != Editing {
		s.mu.Unlock()
		return ErrNotEditing
	}
	s.state = Committing
	s.err = nil
	task := s.task
	images := s.images
	images.Sources = append([]models.ImageSource(nil), s.images.Sources...)
	s.mu.Unlock()

	if s.deps.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deps.CommitTimeout)
		defer cancel()
	}

	stored, err := s.commit(ctx, task, images)

	s.mu.Lock()
	if err != nil {
		s.state = Editing
		s.err = err
		s.mu.Unlock()
		log.Printf("Commit: ошибка сохранения задачи пользователя %s: %v", s.userID, err)
		return err
	}
	s.task = stored
	s.state = Done
	s.mu.Unlock()

	log.Printf("Commit: задача %s пользователя %s сохранена", stored.ID, s.userID)
	if onDone != nil {
		onDone()
	}
	return nil
}

// commit возвращает задачу в том виде, в каком она сохранена (с ID, владельцем и CreatedAt хранилища).
func (s *Session) commit(ctx context.Context, task models.Task, images models.Images) (models.Task, error) {
	if images.Len() > 0 {
		var result storage.UploadResult
		err := s.deps.Retrier.Do(ctx, func(ctx context.Context) error {
			var err error
			result, err = s.deps.Blobs.Upload(ctx, s.userID, images)
			return err
		})
		if err != nil {
			return task, err
		}
		if err := result.Err(); err != nil {
			return task, err
		}
	}

	if !task.IsNew() {
		err := s.deps.Retrier.Do(ctx, func(ctx context.Context) error {
			return s.deps.Tasks.Update(ctx, s.userID, task)
		})
		task.UserID = s.userID
		return task, err
	}

	var id string
	err := s.deps.Retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		id, err = s.deps.Tasks.Save(ctx, s.userID, task)
		return err
	})
	if err != nil {
		return task, err
	}
	task.ID = id
	task.UserID = s.userID

	// CreatedAt проставляет хранилище: перечитываем запись
	var stored *models.Task
	err = s.deps.Retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		stored, err = s.deps.Tasks.Get(ctx, s.userID, id)
		return err
	})
	if err != nil || stored == nil {
		log.Printf("Commit: задача %s сохранена, но не перечитана: %v", id, err)
		return task, nil
	}
	return *stored, nil
}

// PhotoURLs возвращает URL уже загруженных фото задачи.
func (s *Session) PhotoURLs(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	ref := s.task.PhotoRef
	s.mu.Unlock()
	if ref == "" {
		return []string{}, nil
	}
	var urls []string
	err := s.deps.Retrier.Do(ctx, func(ctx context.Context) error {
		var err error
		urls, err = s.deps.Blobs.ListAndResolve(ctx, s.userID, ref)
		return err
	})
	return urls, err
}
