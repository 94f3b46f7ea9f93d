package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFilter(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	where, args := filter(0, "", now)
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = filter(48*time.Hour, "income", now)
	assert.Equal(t, " WHERE last_fetched < $1 AND source = $2", where)
	assert.Equal(t, []any{now.Add(-48 * time.Hour), "income"}, args)

	where, args = filter(0, "population", now)
	assert.Equal(t, " WHERE source = $1", where)
	assert.Equal(t, []any{"population"}, args)
}
