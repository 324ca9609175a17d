package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageSize(t *testing.T) {
	assert.Equal(t, 100, pageSize(0, 100))
	assert.Equal(t, 100, pageSize(-1, 100))
	assert.Equal(t, 7, pageSize(7, 100))
	assert.Equal(t, MaxPageSize, pageSize(MaxPageSize, 100))
	assert.Equal(t, MaxPageSize, pageSize(1_000_000, 100))
}
