package data

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"grocery_server_go/apperr"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, apperr.KindTransient},
		{"sqlite locked wrapped", fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrLocked}), apperr.KindTransient},
		{"sqlite readonly", sqlite3.Error{Code: sqlite3.ErrReadonly}, apperr.KindPermissionDenied},
		{"sqlite constraint", sqlite3.Error{Code: sqlite3.ErrConstraint}, apperr.KindUnknown},
		{"postgres connection failure", &pq.Error{Code: "08006"}, apperr.KindTransient},
		{"postgres serialization", &pq.Error{Code: "40001"}, apperr.KindTransient},
		{"postgres privilege", &pq.Error{Code: "42501"}, apperr.KindPermissionDenied},
		{"postgres bad password", &pq.Error{Code: "28P01"}, apperr.KindPermissionDenied},
		{"deadline", context.DeadlineExceeded, apperr.KindTransient},
		{"bad conn", driver.ErrBadConn, apperr.KindTransient},
		{"already classified", apperr.New(apperr.KindPrecondition, "Update", "no id"), apperr.KindPrecondition},
		{"plain", errors.New("syntax error"), apperr.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(classify("op", tt.err)))
		})
	}
	assert.NoError(t, classify("op", nil))
}
