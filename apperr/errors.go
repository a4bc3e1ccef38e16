package apperr

import (
	"errors"
	"fmt"
)

// Kind описывает категорию ошибки, видимую вызывающему коду.
type Kind string

const (
	// KindUnknown - ошибка без классификации, считается фатальной для операции.
	KindUnknown Kind = "unknown"
	// KindNotFound - запись отсутствует. Хранилище превращает её в пустой результат.
	KindNotFound Kind = "not_found"
	// KindTransient - сеть или бэкенд недоступны, операцию можно повторить.
	KindTransient Kind = "transient_backend"
	// KindPermissionDenied - отказ правил доступа или аутентификации.
	KindPermissionDenied Kind = "permission_denied"
	// KindPrecondition - нарушен контракт вызова (например, update без идентификатора).
	KindPrecondition Kind = "precondition"
	// KindUnconfirmed - результат загрузки файлов не подтверждён.
	KindUnconfirmed Kind = "unconfirmed"
	// KindValidation - некорректные входные данные.
	KindValidation Kind = "validation"
)

// Sentinel-значения для errors.Is: errors.Is(err, apperr.TransientBackend).
var (
	NotFound         = &Error{Kind: KindNotFound}
	TransientBackend = &Error{Kind: KindTransient}
	PermissionDenied = &Error{Kind: KindPermissionDenied}
	Precondition     = &Error{Kind: KindPrecondition}
	Unconfirmed      = &Error{Kind: KindUnconfirmed}
	Validation       = &Error{Kind: KindValidation}
)

// Error - классифицированная ошибка операции хранилища или сессии редактирования.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

// Error реализует интерфейс error.
func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is сравнивает ошибки по Kind, поэтому sentinel-значения совпадают с любой ошибкой той же категории.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New создает ошибку заданной категории.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Wrap оборачивает существующую ошибку, присваивая ей категорию.
func Wrap(err error, kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf возвращает категорию первой классифицированной ошибки в цепочке.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable сообщает, имеет ли смысл повторять операцию.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}
