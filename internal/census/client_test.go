package census_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poverty-pockets/pockets-backend/internal/census"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Fetch(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[["NAME","P1_001N","state","county","tract"],
			["Census Tract 3530.01","4120","06","013","353001"],
			["Census Tract 3530.02",null,"06","013","353002"]]`))
	}))
	defer srv.Close()

	c := census.NewClient("secret", srv.URL, 100)
	resp, err := c.Fetch(context.Background(), census.Query{
		Source:  "population",
		Dataset: "2020/dec/pl",
		Get:     []string{"NAME", "P1_001N"},
		For:     "tract:*",
		In:      []string{"state:06", "county:013"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/2020/dec/pl", gotPath)
	assert.Equal(t, []string{"NAME,P1_001N"}, gotQuery["get"])
	assert.Equal(t, []string{"tract:*"}, gotQuery["for"])
	assert.Equal(t, []string{"state:06", "county:013"}, gotQuery["in"])
	assert.Equal(t, []string{"secret"}, gotQuery["key"])

	require.Len(t, resp.Matrix, 3)
	assert.Equal(t, "tract", resp.Matrix[0][4])
	assert.Nil(t, resp.Matrix[2][1])
	assert.False(t, resp.FromCache)
}

func TestClient_FetchNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	_, err := census.NewClient("", srv.URL, 100).Fetch(context.Background(), census.Query{Dataset: "x", Get: []string{"NAME"}, For: "state:99"})
	assert.ErrorIs(t, err, census.ErrNoData)
}

func TestClient_FetchHeaderOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[["NAME","state"]]`))
	}))
	defer srv.Close()

	_, err := census.NewClient("", srv.URL, 100).Fetch(context.Background(), census.Query{Dataset: "x", Get: []string{"NAME"}, For: "state:*"})
	assert.ErrorIs(t, err, census.ErrNoData)
}

func TestClient_FetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "error: unknown variable", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := census.NewClient("", srv.URL, 100).Fetch(context.Background(), census.Query{Dataset: "x", Get: []string{"BOGUS"}, For: "state:*"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestClient_FetchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := census.NewClient("", "http://127.0.0.1:0", 100).Fetch(ctx, census.Query{Dataset: "x"})
	assert.Error(t, err)
}

func TestClient_FetchTransportErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	baseURL := srv.URL
	srv.Close()

	_, err := census.NewClient("SUPERSECRETKEY", baseURL, 100).Fetch(context.Background(), census.Query{
		Dataset: "2020/dec/pl",
		Get:     []string{"NAME"},
		For:     "tract:*",
	})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SUPERSECRETKEY")
	assert.Contains(t, err.Error(), baseURL+"/2020/dec/pl")
}

func TestClient_HealthCheck(t *testing.T) {
	var gotFor string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFor = r.URL.Query().Get("for")
		_, _ = w.Write([]byte(`[["NAME","state"],["California","06"]]`))
	}))
	defer srv.Close()

	require.NoError(t, census.NewClient("", srv.URL, 100).HealthCheck(context.Background()))
	assert.Equal(t, "state:06", gotFor)

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	err := census.NewClient("k3y", down.URL, 100).HealthCheck(context.Background())
	require.Error(t, err)
	assert.False(t, strings.Contains(err.Error(), "k3y"))
}

func TestCacheID(t *testing.T) {
	q := census.Query{Dataset: "2020/dec/pl", Get: []string{"NAME"}, For: "tract:*", In: []string{"state:06"}}
	assert.Equal(t, census.CacheID(q), census.CacheID(q))

	other := q
	other.For = "zip code tabulation area:*"
	assert.NotEqual(t, census.CacheID(q), census.CacheID(other))
}

type stubFetcher struct{ calls int }

func (s *stubFetcher) Fetch(ctx context.Context, q census.Query) (census.Response, error) {
	s.calls++
	return census.Response{Matrix: [][]any{{"NAME"}, {"x"}}}, nil
}

func TestCachedFetcher_NilDBPassesThrough(t *testing.T) {
	next := &stubFetcher{}
	f := census.NewCachedFetcher(next, nil, 0)

	resp, err := f.Fetch(context.Background(), census.Query{Source: "population"})
	require.NoError(t, err)
	assert.Len(t, resp.Matrix, 2)
	assert.Equal(t, 1, next.calls)
}
