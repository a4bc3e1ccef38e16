package data

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"grocery_server_go/apperr"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// classify переводит ошибку драйвера в категорию apperr.
// Уже классифицированные ошибки возвращаются как есть.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperr.Wrap(err, apperr.KindTransient, op, "operation interrupted")
	case errors.Is(err, driver.ErrBadConn):
		return apperr.Wrap(err, apperr.KindTransient, op, "database connection lost")
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return apperr.Wrap(err, apperr.KindTransient, op, "database unreachable")
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr, sqlite3.ErrCantOpen:
			return apperr.Wrap(err, apperr.KindTransient, op, "database busy")
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			return apperr.Wrap(err, apperr.KindPermissionDenied, op, "database rejected the operation")
		}
	}

	var pgErr *pq.Error
	if errors.As(err, &pgErr) {
		switch pgErr.Code.Class() {
		case "08", "40", "53", "57":
			return apperr.Wrap(err, apperr.KindTransient, op, "database unavailable")
		case "28":
			return apperr.Wrap(err, apperr.KindPermissionDenied, op, "database authorization failed")
		}
		if pgErr.Code == "42501" {
			return apperr.Wrap(err, apperr.KindPermissionDenied, op, "insufficient privilege")
		}
	}

	return apperr.Wrap(err, apperr.KindUnknown, op, "database error")
}
