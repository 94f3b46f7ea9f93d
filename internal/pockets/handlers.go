package pockets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/poverty-pockets/pockets-backend/internal/report"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
	maxReportIDs       = 5000
	maxBodyBytes       = 1 << 20
)

type handlers struct {
	svc *Service
}

// snapshot returns the current snapshot or writes 503.
func (h *handlers) snapshot(w http.ResponseWriter) (*Snapshot, bool) {
	snap := h.svc.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNotLoaded.Error())
		return nil, false
	}
	w.Header().Set("X-Load-ID", snap.LoadID)
	return snap, true
}

// resolve maps a path identifier to the form the dataset knows: the raw
// value when a source used it, otherwise its canonical form.
func resolve(d *join.Dataset, id string, normalize geoid.Func) string {
	id = strings.TrimSpace(id)
	if _, ok := d.Canonical(id); ok {
		return id
	}
	if canon, ok := normalize(id); ok {
		return canon
	}
	return id
}

func (h *handlers) GetTract(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	start := time.Now()
	id := resolve(snap.Tracts, chi.URLParam(r, "id"), geoid.NormalizeTract)
	rec := report.Display(id, snap.Tracts, snap.Adoption, snap.Aggregate)
	addServerTiming(w, "display", time.Since(start))

	if !rec.Found {
		writeJSONStatus(w, http.StatusNotFound, rec)
		return
	}
	writeJSON(w, rec)
}

// GetZip serves a ZIP display record. Adoption is tracked per tract, so
// ZIP records always carry the unknown adoption status.
func (h *handlers) GetZip(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	id := resolve(snap.Zips, chi.URLParam(r, "zip"), geoid.NormalizeZip)
	rec := report.Display(id, snap.Zips, nil, snap.Aggregate)
	if !rec.Found {
		writeJSONStatus(w, http.StatusNotFound, rec)
		return
	}
	writeJSON(w, rec)
}

type searchResponse struct {
	Kind  string   `json:"kind"`
	Query string   `json:"query"`
	IDs   []string `json:"ids"`
}

func (h *handlers) Search(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind")))
	d, ok := snap.Dataset(kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be tract or zip")
		return
	}
	if kind == "" {
		kind = "tract"
	}

	limit := defaultSearchLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	writeJSON(w, searchResponse{Kind: kind, Query: q, IDs: d.Search(q, limit)})
}

type reportRequest struct {
	Kind string   `json:"kind"`
	IDs  []string `json:"ids"`
}

type reportResponse struct {
	Kind      string         `json:"kind"`
	LoadID    string         `json:"load_id"`
	Requested int            `json:"requested"`
	Result    report.Result  `json:"result"`
	Summary   report.Summary `json:"summary"`
}

// Report aggregates the requested identifiers. Unknown identifiers are left
// out; Result.Count is the number that matched.
func (h *handlers) Report(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}

	var req reportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.IDs) > maxReportIDs {
		writeError(w, http.StatusBadRequest, "too many ids")
		return
	}

	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	d, ok := snap.Dataset(kind)
	if !ok {
		writeError(w, http.StatusBadRequest, "kind must be tract or zip")
		return
	}
	if kind == "" {
		kind = "tract"
	}
	normalize, _ := geoid.ForKind(kind)

	start := time.Now()
	ids := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		ids = append(ids, resolve(d, id, normalize))
	}
	res := report.Aggregate(d.Records(ids), snap.Aggregate)
	addServerTiming(w, "aggregate", time.Since(start))

	writeJSON(w, reportResponse{
		Kind:      kind,
		LoadID:    snap.LoadID,
		Requested: len(req.IDs),
		Result:    res,
		Summary:   report.Summarize(res, snap.Aggregate),
	})
}

func (h *handlers) Render(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, snap.Render)
}

func (h *handlers) Status(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.snapshot(w)
	if !ok {
		return
	}
	writeJSON(w, snap.Status())
}

func (h *handlers) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Reload(r.Context())
	if err != nil {
		if errors.Is(err, ErrReloadInProgress) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		logging.LogError("reload", "load", err)
		writeError(w, http.StatusInternalServerError, "reload failed")
		return
	}
	w.Header().Set("X-Load-ID", snap.LoadID)
	writeJSON(w, snap.Status())
}
