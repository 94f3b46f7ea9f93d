// Package pockets loads census tables, boundary files and the adoption
// spreadsheet into immutable snapshots and serves them over HTTP.
package pockets

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/boundary"
	"github.com/poverty-pockets/pockets-backend/internal/census"
	"github.com/poverty-pockets/pockets-backend/internal/config"
	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/poverty-pockets/pockets-backend/internal/metrics"
	"github.com/poverty-pockets/pockets-backend/internal/report"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Source outcomes reported in load status and metrics.
const (
	OutcomeOK      = "ok"
	OutcomeCached  = "cached"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// maxConcurrentFetches bounds in-flight census requests per load.
const maxConcurrentFetches = 4

// tractFields are the GeoJSON properties tried for the tract GEOID.
var tractFields = []string{"GEOID", "GEOID20", "GEOID10"}

// RowReader supplies the adoption spreadsheet rows.
type RowReader interface {
	ReadRows(ctx context.Context) ([]adoption.Row, error)
}

// CSVFile reads adoption rows from a CSV export on disk.
type CSVFile string

func (f CSVFile) ReadRows(ctx context.Context) ([]adoption.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return adoption.ParseCSVFile(string(f))
}

// SourceStatus is the outcome of one source in a load.
type SourceStatus struct {
	Name      string        `json:"name"`
	Kind      string        `json:"kind"`
	Outcome   string        `json:"outcome"`
	Stats     tabular.Stats `json:"stats"`
	Error     string        `json:"error,omitempty"`
	FetchedAt *time.Time    `json:"fetched_at,omitempty"`
}

// Options configure a Loader. Everything except Fetcher is optional.
type Options struct {
	Fetcher  census.Fetcher
	Sources  config.Sources
	Adoption RowReader

	TractGeoJSON string
	ZipGeoJSON   string

	Metrics *metrics.Metrics

	// DB records load runs when set.
	DB *gorm.DB
}

// Loader builds snapshots. A failed source contributes nothing and is
// reported in the snapshot status; it never fails the load.
type Loader struct {
	opts Options
	now  func() time.Time
}

func NewLoader(opts Options) *Loader {
	return &Loader{opts: opts, now: time.Now}
}

// partialResult is one source's contribution to a join.
type partialResult struct {
	partial tabular.Partial
	status  SourceStatus
}

// Load fetches every source concurrently and joins the results. It returns
// an error only when ctx ends before the load completes.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	start := l.now()
	loadID := uuid.New().String()
	src := l.opts.Sources

	tractSources := src.TractSources()
	zipSources := src.ZipSources()
	tractResults := make([]partialResult, len(tractSources)+1)
	zipResults := make([]partialResult, len(zipSources)+1)

	var (
		rows      []adoption.Row
		rowStatus = SourceStatus{Name: "adoption", Kind: "spreadsheet", Outcome: OutcomeSkipped}
	)

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)

	for i, s := range tractSources {
		i, s := i, s
		g.Go(func() error {
			tractResults[i] = l.fetch(ctx, "tract", s, nil)
			return nil
		})
	}
	for i, s := range zipSources {
		i, s := i, s
		g.Go(func() error {
			zipResults[i] = l.fetch(ctx, "zip", s, src.KeepZip)
			return nil
		})
	}
	g.Go(func() error {
		tractResults[len(tractSources)] = l.readBoundary("tract_boundaries", "tract", l.opts.TractGeoJSON, tractFields)
		return nil
	})
	g.Go(func() error {
		zipResults[len(zipSources)] = l.readBoundary("zip_boundaries", "zip", l.opts.ZipGeoJSON, src.ZipFields)
		return nil
	})
	if l.opts.Adoption != nil {
		g.Go(func() error {
			rows, rowStatus = l.readAdoption(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tracts := l.join("tracts", tractResults, geoid.NormalizeTract)
	zips := l.join("zips", zipResults, geoid.NormalizeZip)

	var index *adoption.Index
	if rows != nil {
		ix, err := adoption.Classify(rows, src.Adoption)
		if err != nil {
			logging.LogError("adoption", "classify", err)
			rowStatus.Outcome = OutcomeFailed
			rowStatus.Error = err.Error()
		} else {
			index = ix
		}
	}

	statuses := make([]SourceStatus, 0, len(tractResults)+len(zipResults)+1)
	for _, r := range tractResults {
		statuses = append(statuses, r.status)
	}
	for _, r := range zipResults {
		statuses = append(statuses, r.status)
	}
	statuses = append(statuses, rowStatus)

	snap := &Snapshot{
		LoadID:    loadID,
		LoadedAt:  l.now(),
		Duration:  l.now().Sub(start),
		Tracts:    tracts,
		Zips:      zips,
		Adoption:  index,
		Aggregate: src.Aggregate,
		Render:    report.Describe(loadID, tracts, index, src.Render),
		Sources:   statuses,
	}

	l.opts.Metrics.SetJoined("tracts", tracts.Len())
	l.opts.Metrics.SetJoined("zips", zips.Len())
	l.opts.Metrics.SetAdopted(index.AdoptedCount())
	l.opts.Metrics.ObserveLoad(snap.Duration)
	logging.LogLoad(loadID, tracts.Len(), zips.Len(), index.Len(), snap.Duration)

	l.recordRun(ctx, snap)
	return snap, nil
}

func (l *Loader) fetch(ctx context.Context, kind string, s config.Source, keep func(string) bool) partialResult {
	st := SourceStatus{Name: s.Adapter.Name, Kind: kind}
	if l.opts.Fetcher == nil {
		st.Outcome = OutcomeSkipped
		return partialResult{partial: tabular.Partial{}, status: st}
	}

	start := time.Now()
	resp, err := l.opts.Fetcher.Fetch(ctx, s.Query)
	if err != nil {
		logging.LogError(s.Adapter.Name, "fetch", err)
		l.opts.Metrics.ObserveFetch(s.Adapter.Name, OutcomeFailed, time.Since(start))
		st.Outcome = OutcomeFailed
		st.Error = err.Error()
		return partialResult{partial: tabular.Partial{}, status: st}
	}

	st.Outcome = OutcomeOK
	if resp.FromCache {
		st.Outcome = OutcomeCached
	}
	if !resp.FetchedAt.IsZero() {
		fetched := resp.FetchedAt
		st.FetchedAt = &fetched
	}
	l.opts.Metrics.ObserveFetch(s.Adapter.Name, st.Outcome, time.Since(start))

	adaptStart := time.Now()
	partial, stats := s.Adapter.Adapt(resp.Matrix)
	if keep != nil {
		for raw := range partial {
			if canon, ok := geoid.NormalizeZip(raw); !ok || !keep(canon) {
				delete(partial, raw)
			}
		}
		stats.Kept = len(partial)
	}
	st.Stats = stats

	l.opts.Metrics.AddSkipped(s.Adapter.Name, stats.Skipped)
	if stats.MissingKey {
		logging.LogError(s.Adapter.Name, "adapt", errors.New("key column missing from response header"))
	}
	logging.LogTransform(s.Adapter.Name, stats.Rows, len(partial), stats.Skipped, time.Since(adaptStart))
	return partialResult{partial: partial, status: st}
}

func (l *Loader) readBoundary(name, kind, path string, candidates []string) partialResult {
	st := SourceStatus{Name: name, Kind: kind, Outcome: OutcomeSkipped}
	if path == "" {
		return partialResult{partial: tabular.Partial{}, status: st}
	}

	fc, err := boundary.ReadFile(path)
	if err == nil {
		var field string
		field, err = boundary.ResolveField(fc, candidates)
		if err == nil {
			p := boundary.Partial(fc, field, nil)
			st.Outcome = OutcomeOK
			st.Stats = tabular.Stats{Rows: len(fc.Features), Kept: len(p), Skipped: len(fc.Features) - len(p)}
			return partialResult{partial: p, status: st}
		}
	}

	logging.LogError(name, "read boundary", err)
	st.Outcome = OutcomeFailed
	st.Error = err.Error()
	return partialResult{partial: tabular.Partial{}, status: st}
}

func (l *Loader) readAdoption(ctx context.Context) ([]adoption.Row, SourceStatus) {
	st := SourceStatus{Name: "adoption", Kind: "spreadsheet"}
	rows, err := l.opts.Adoption.ReadRows(ctx)
	if err != nil {
		logging.LogError("adoption", "read", err)
		st.Outcome = OutcomeFailed
		st.Error = err.Error()
		return nil, st
	}
	st.Outcome = OutcomeOK
	st.Stats = tabular.Stats{Rows: len(rows), Kept: len(rows)}
	return rows, st
}

func (l *Loader) join(name string, results []partialResult, normalize geoid.Func) *join.Dataset {
	start := time.Now()
	partials := make([]tabular.Partial, 0, len(results))
	in := 0
	for _, r := range results {
		partials = append(partials, r.partial)
		in += len(r.partial)
	}
	d := join.Join(partials, normalize)
	logging.LogTransform(name, in, d.Len(), 0, time.Since(start))
	return d
}

func (l *Loader) recordRun(ctx context.Context, snap *Snapshot) {
	if l.opts.DB == nil {
		return
	}
	run := newLoadRun(snap)
	if err := l.opts.DB.WithContext(ctx).Create(&run).Error; err != nil {
		logging.L().Warn("record load run failed", zap.String("load_id", snap.LoadID), zap.Error(err))
	}
}
