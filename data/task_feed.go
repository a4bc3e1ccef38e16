package data

import (
	"context"
	"log"
	"sync"

	"grocery_server_go/models"
)

// taskFeed рассылает сигналы "задачи пользователя изменились" подписчикам Watch.
type taskFeed struct {
	mu   sync.Mutex
	subs map[string]map[chan struct{}]struct{}
}

func newTaskFeed() *taskFeed {
	return &taskFeed{subs: make(map[string]map[chan struct{}]struct{})}
}

func (f *taskFeed) subscribe(userID string) chan struct{} {
	// буфер 1: сигналы схлопываются, подписчик всегда перечитывает актуальный снимок
	ch := make(chan struct{}, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs[userID] == nil {
		f.subs[userID] = make(map[chan struct{}]struct{})
	}
	f.subs[userID][ch] = struct{}{}
	return ch
}

func (f *taskFeed) unsubscribe(userID string, ch chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs[userID], ch)
	if len(f.subs[userID]) == 0 {
		delete(f.subs, userID)
	}
}

func (f *taskFeed) notify(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs[userID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// subscribers возвращает число активных подписок пользователя.
func (f *taskFeed) subscribers(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs[userID])
}

// Watch - живой список задач. Для каждого значения из users (текущая личность)
// подписка пересоздается и сразу отдается свежий снимок; дальше снимок отдается после
// каждой записи этого пользователя. Отмена ctx снимает подписку и закрывает канал.
// Закрытие users не останавливает поток для последней личности.
func (s *TaskStore) Watch(ctx context.Context, users <-chan string) <-chan []models.Task {
	out := make(chan []models.Task)

	go func() {
		defer close(out)

		var userID string
		var changes chan struct{}
		defer func() {
			if changes != nil {
				s.feed.unsubscribe(userID, changes)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case id, ok := <-users:
				if !ok {
					users = nil
					if changes == nil {
						return
					}
					continue
				}
				if changes != nil {
					s.feed.unsubscribe(userID, changes)
				}
				userID = id
				changes = s.feed.subscribe(userID)
				if !s.emit(ctx, out, userID) {
					return
				}
			case <-changes:
				if !s.emit(ctx, out, userID) {
					return
				}
			}
		}
	}()

	return out
}

// emit отправляет снимок. Временные ошибки чтения повторяются через retry.
// false - потребитель ушел (ctx отменен).
func (s *TaskStore) emit(ctx context.Context, out chan<- []models.Task, userID string) bool {
	var tasks []models.Task
	err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		tasks, err = s.list(ctx, userID)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		// повторы исчерпаны: снимок пропускаем до следующего изменения
		log.Printf("Watch: не удалось получить задачи пользователя %s: %v", userID, err)
		return true
	}
	select {
	case out <- tasks:
		return true
	case <-ctx.Done():
		return false
	}
}
