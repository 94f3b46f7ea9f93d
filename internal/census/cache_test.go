package census

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCachedFetcher_RowRoundTrip(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewCachedFetcher(nil, nil, time.Hour)
	f.now = func() time.Time { return now }

	q := Query{Source: "population", Dataset: "2020/dec/pl", Get: []string{"NAME", "P1_001N"}, For: "tract:*"}
	resp := Response{Matrix: [][]any{
		{"NAME", "P1_001N", "tract"},
		{"Census Tract 1", "4120", "353001"},
		{"Census Tract 2", nil, "353002"},
	}}

	row, err := f.newRow(q, CacheID(q), resp)
	require.NoError(t, err)
	assert.Equal(t, CacheID(q), row.ID)
	assert.Equal(t, q.CacheKey(), row.Query)
	assert.Equal(t, 2, row.Rows)
	assert.Equal(t, now, row.LastFetched, "zero FetchedAt is stamped with now")
	assert.NotContains(t, row.Body, "P1_001N", "header is stored apart from the body")

	m, err := decodeBody(row)
	require.NoError(t, err)
	assert.Equal(t, resp.Matrix, m)
}

func TestCachedFetcher_Fresh(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	f := NewCachedFetcher(nil, nil, time.Hour)
	f.now = func() time.Time { return now }

	assert.True(t, f.fresh(CachedResponse{LastFetched: now.Add(-59 * time.Minute)}))
	assert.False(t, f.fresh(CachedResponse{LastFetched: now.Add(-time.Hour)}))
	assert.False(t, f.fresh(CachedResponse{}))
}

func TestCachedFetcher_DefaultMaxAge(t *testing.T) {
	assert.Equal(t, DefaultMaxAge, NewCachedFetcher(nil, nil, 0).maxAge)
}

func TestDecodeBody_Corrupt(t *testing.T) {
	_, err := decodeBody(CachedResponse{Header: []string{"NAME"}, Body: `[["x"`})
	assert.Error(t, err)

	m, err := decodeBody(CachedResponse{Header: []string{"NAME"}, Body: `[]`})
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"NAME"}}, [][]any(m))
}
