package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUndefinedTable(t *testing.T) {
	assert.True(t, IsUndefinedTable(errors.New(`ERROR: relation "ndas" does not exist (SQLSTATE 42P01)`)))
	assert.True(t, IsUndefinedTable(errors.New("no such table: messages")))

	assert.False(t, IsUndefinedTable(nil))
	// An undefined column is schema drift of a different kind and must not
	// degrade to an empty list
	assert.False(t, IsUndefinedTable(errors.New(`ERROR: column "privacy_level" does not exist (SQLSTATE 42703)`)))
	assert.False(t, IsUndefinedTable(errors.New("connection refused")))
}
