package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsDuplicateKeyError(t *testing.T) {
	assert.True(t, IsDuplicateKeyError(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateKeyError(errors.New("UNIQUE constraint failed: votes.user_id, votes.pair_key")))
	assert.True(t, IsDuplicateKeyError(errors.New(`ERROR: duplicate key value (SQLSTATE 23505)`)))
	assert.False(t, IsDuplicateKeyError(errors.New("connection refused")))
	assert.False(t, IsDuplicateKeyError(nil))
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(errors.New("database is locked")))
	assert.True(t, IsRetryableError(errors.New("could not serialize access (SQLSTATE 40001)")))
	assert.False(t, IsRetryableError(errors.New("syntax error")))
	assert.False(t, IsRetryableError(nil))
}
