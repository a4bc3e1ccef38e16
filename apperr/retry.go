package apperr

import (
	"context"
	"log"
	"time"
)

// Retrier повторяет операцию с экспоненциальной задержкой, пока ошибка остается KindTransient.
type Retrier struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	OnRetry   func(attempt int, err error)
}

// NewRetrier создает Retrier, который пишет неудачные попытки в лог.
func NewRetrier(attempts int, baseDelay, maxDelay time.Duration) *Retrier {
	return &Retrier{
		Attempts:  attempts,
		BaseDelay: baseDelay,
		MaxDelay:  maxDelay,
		OnRetry: func(attempt int, err error) {
			log.Printf("Retry attempt %d/%d failed: %v", attempt, attempts, err)
		},
	}
}

// Do выполняет fn. Неповторяемые ошибки возвращаются сразу, отмена контекста прерывает ожидание.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := r.BaseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) || attempt == attempts {
			break
		}
		if r.OnRetry != nil {
			r.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Wrap(ctx.Err(), KindTransient, "retry", "cancelled while waiting for retry")
		case <-timer.C:
		}

		delay *= 2
		if r.MaxDelay > 0 && delay > r.MaxDelay {
			delay = r.MaxDelay
		}
	}
	return lastErr
}
