package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/stockroom/stockroom/internal/shared"
)

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	busy := Classify(fmt.Errorf("acquire: %w", context.DeadlineExceeded))
	assert.ErrorIs(t, busy, shared.ErrUnavailable)

	plain := errors.New("syntax error")
	assert.Same(t, plain, Classify(plain))

	unique := &pgconn.PgError{Code: "23505"}
	assert.NotErrorIs(t, Classify(unique), shared.ErrUnavailable)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("boom")))
}
