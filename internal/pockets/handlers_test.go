package pockets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/poverty-pockets/pockets-backend/internal/pockets"
	"github.com/poverty-pockets/pockets-backend/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const adminToken = "reload-token"

func newServer(t *testing.T, load bool) (*pockets.Service, http.Handler) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminToken), bcrypt.MinCost)
	require.NoError(t, err)

	svc := pockets.NewService(pockets.NewLoader(testOptions()), nil)
	if load {
		_, err := svc.Reload(context.Background())
		require.NoError(t, err)
	}
	return svc, pockets.SetupRoutes(svc, string(hash))
}

func do(t *testing.T, h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHandlers_NotLoaded(t *testing.T) {
	_, h := newServer(t, false)

	for _, path := range []string{"/tracts/06013353001", "/zips/94103", "/search?q=1", "/render", "/status"} {
		rec := do(t, h, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestGetTract(t *testing.T) {
	svc, h := newServer(t, true)

	rec := do(t, h, http.MethodGet, "/tracts/06013353001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, svc.Snapshot().LoadID, rec.Header().Get("X-Load-ID"))
	assert.NotEmpty(t, rec.Header().Get("Server-Timing"))

	got := decode[report.DisplayRecord](t, rec)
	assert.Equal(t, "Census Tract 3530.01", got.Name)
	assert.Equal(t, "adopted", got.Adoption.Status)
	assert.Equal(t, "Rotary", got.Adoption.AttributedTo)

	// Leading zero dropped by a spreadsheet round trip.
	rec = do(t, h, http.MethodGet, "/tracts/6013353001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "06013353001", decode[report.DisplayRecord](t, rec).ID)

	rec = do(t, h, http.MethodGet, "/tracts/06001999999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, decode[report.DisplayRecord](t, rec).Found)
}

func TestGetZip(t *testing.T) {
	_, h := newServer(t, true)

	rec := do(t, h, http.MethodGet, "/zips/94103", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[report.DisplayRecord](t, rec)
	assert.Equal(t, "ZCTA5 94103", got.Name)
	assert.Equal(t, report.StatusUnknown, got.Adoption.Status)

	rec = do(t, h, http.MethodGet, "/zips/10001", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	_, h := newServer(t, true)

	type response struct {
		Kind string   `json:"kind"`
		IDs  []string `json:"ids"`
	}

	rec := do(t, h, http.MethodGet, "/search?q=353001", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, response{Kind: "tract", IDs: []string{"06013353001"}}, decode[response](t, rec))

	rec = do(t, h, http.MethodGet, "/search?q=06&limit=1", "", nil)
	assert.Len(t, decode[response](t, rec).IDs, 1)

	rec = do(t, h, http.MethodGet, "/search?q=941&kind=zip", "", nil)
	assert.Equal(t, []string{"94103"}, decode[response](t, rec).IDs)

	rec = do(t, h, http.MethodGet, "/search?q=1&kind=county", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/search?q=1&limit=-2", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReport(t *testing.T) {
	_, h := newServer(t, true)

	type response struct {
		Kind      string         `json:"kind"`
		Requested int            `json:"requested"`
		Result    report.Result  `json:"result"`
		Summary   report.Summary `json:"summary"`
	}

	rec := do(t, h, http.MethodPost, "/report", `{"ids": ["06013353001", "6075010000", "06013353001", "nope"]}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[response](t, rec)
	assert.Equal(t, 4, got.Requested)
	assert.Equal(t, 2, got.Result.Count)
	assert.Equal(t, int64(5020), got.Result.Sums["P1_001N"])
	assert.InDelta(t, 2510.0, got.Result.Averages["P1_001N"], 1e-9)
	assert.NotContains(t, got.Result.Averages, "S1901_C01_012E", "failed source leaves no average")

	rec = do(t, h, http.MethodPost, "/report", `{"ids": []}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[response](t, rec).Result.Count)

	rec = do(t, h, http.MethodPost, "/report", `{"ids": [`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/report", `{"kind": "county", "ids": []}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderAndStatus(t *testing.T) {
	svc, h := newServer(t, true)

	rec := do(t, h, http.MethodGet, "/render", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	desc := decode[report.Descriptor](t, rec)
	assert.Equal(t, svc.Snapshot().LoadID, desc.LoadID)
	assert.Equal(t, 1, desc.Features["06013353001"].Class)
	assert.Equal(t, 0, desc.Features["06075010000"].Class)

	rec = do(t, h, http.MethodGet, "/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[pockets.Status](t, rec)
	assert.Equal(t, 2, st.Tracts)
	assert.Equal(t, 1, st.Zips)
	assert.NotEmpty(t, st.Sources)
}

func TestReload(t *testing.T) {
	svc, h := newServer(t, true)
	before := svc.Snapshot().LoadID

	rec := do(t, h, http.MethodPost, "/reload", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, before, svc.Snapshot().LoadID)

	rec = do(t, h, http.MethodPost, "/reload", "", map[string]string{"Authorization": "Bearer " + adminToken})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, before, svc.Snapshot().LoadID)
	assert.Equal(t, svc.Snapshot().LoadID, decode[pockets.Status](t, rec).LoadID)
}
