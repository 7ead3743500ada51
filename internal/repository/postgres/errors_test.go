package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/Kerhoff/IgrejaBoT/internal/models"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		code pq.ErrorCode
		want error
	}{
		{"23505", models.ErrAlreadyExists},
		{"23503", models.ErrNotFound},
		{"23514", models.ErrValidation},
		{"22007", models.ErrValidation},
		{"22008", models.ErrValidation},
		{"22P02", models.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(string(tc.code), func(t *testing.T) {
			src := &pq.Error{Code: tc.code, Message: "boom"}
			got := mapError(fmt.Errorf("insert: %w", src))

			assert.ErrorIs(t, got, tc.want)

			var pqErr *pq.Error
			assert.True(t, errors.As(got, &pqErr), "original error must stay reachable")
		})
	}
}

func TestMapError_PassThrough(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.Same(t, sql.ErrNoRows, mapError(sql.ErrNoRows))

	other := &pq.Error{Code: "40001"}
	assert.Equal(t, error(other), mapError(other))
}
