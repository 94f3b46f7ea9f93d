package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/poverty-pockets/pockets-backend/internal/logging"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultMaxAge is how long a cached census response stays fresh. Published
// tables change once a year.
const DefaultMaxAge = 7 * 24 * time.Hour

// cacheNamespace seeds the deterministic cache row IDs.
var cacheNamespace = uuid.MustParse("5d0c1f6e-2b8a-4c55-9a1e-7f3f0e7c9b21")

// CachedResponse is one upstream table keyed by its query.
type CachedResponse struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source      string         `gorm:"size:64;index" json:"source"`
	Dataset     string         `gorm:"size:128" json:"dataset"`
	Query       string         `gorm:"type:text" json:"query"`
	Header      pq.StringArray `gorm:"type:text[]" json:"header"`
	Body        string         `gorm:"type:text" json:"-"`
	Rows        int            `json:"rows"`
	LastFetched time.Time      `gorm:"index" json:"last_fetched"`
}

func (CachedResponse) TableName() string {
	return "pockets.census_responses"
}

// CacheID returns the row ID for a query.
func CacheID(q Query) uuid.UUID {
	return uuid.NewSHA1(cacheNamespace, []byte(q.CacheKey()))
}

// CachedFetcher serves fresh responses from postgres and falls through to the
// wrapped Fetcher otherwise. Cache failures never fail a fetch.
type CachedFetcher struct {
	next   Fetcher
	db     *gorm.DB
	maxAge time.Duration
	now    func() time.Time
}

var _ Fetcher = (*CachedFetcher)(nil)

// NewCachedFetcher wraps next. A nil db disables caching.
func NewCachedFetcher(next Fetcher, db *gorm.DB, maxAge time.Duration) *CachedFetcher {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &CachedFetcher{next: next, db: db, maxAge: maxAge, now: time.Now}
}

func (f *CachedFetcher) Fetch(ctx context.Context, q Query) (Response, error) {
	if f.db == nil {
		return f.next.Fetch(ctx, q)
	}

	id := CacheID(q)
	var row CachedResponse
	err := f.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	switch {
	case err == nil && f.fresh(row):
		m, decodeErr := decodeBody(row)
		if decodeErr == nil {
			return Response{Matrix: m, FromCache: true, FetchedAt: row.LastFetched}, nil
		}
		logging.LogError(q.Source, "cache decode", decodeErr)
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		logging.LogError(q.Source, "cache read", err)
	}

	resp, err := f.next.Fetch(ctx, q)
	if err != nil {
		return Response{}, err
	}
	if err := f.store(ctx, q, id, resp); err != nil {
		logging.LogError(q.Source, "cache write", err)
	}
	return resp, nil
}

// fresh reports whether row is younger than the max age.
func (f *CachedFetcher) fresh(row CachedResponse) bool {
	return f.now().Sub(row.LastFetched) < f.maxAge
}

func (f *CachedFetcher) store(ctx context.Context, q Query, id uuid.UUID, resp Response) error {
	if len(resp.Matrix) == 0 {
		return nil
	}
	row, err := f.newRow(q, id, resp)
	if err != nil {
		return err
	}
	return f.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"header", "body", "rows", "last_fetched"}),
	}).Create(&row).Error
}

// newRow encodes a non-empty response for storage.
func (f *CachedFetcher) newRow(q Query, id uuid.UUID, resp Response) (CachedResponse, error) {
	header := make([]string, len(resp.Matrix[0]))
	for i, h := range resp.Matrix[0] {
		header[i] = tabular.CellString(h)
	}
	body, err := json.Marshal(resp.Matrix[1:])
	if err != nil {
		return CachedResponse{}, fmt.Errorf("encode body: %w", err)
	}

	fetched := resp.FetchedAt
	if fetched.IsZero() {
		fetched = f.now()
	}
	return CachedResponse{
		ID:          id,
		Source:      q.Source,
		Dataset:     q.Dataset,
		Query:       q.CacheKey(),
		Header:      header,
		Body:        string(body),
		Rows:        len(resp.Matrix) - 1,
		LastFetched: fetched,
	}, nil
}

func decodeBody(row CachedResponse) (tabular.Matrix, error) {
	var body [][]any
	if err := json.Unmarshal([]byte(row.Body), &body); err != nil {
		return nil, err
	}
	m := make(tabular.Matrix, 0, len(body)+1)
	header := make([]any, len(row.Header))
	for i, h := range row.Header {
		header[i] = h
	}
	m = append(m, header)
	return append(m, body...), nil
}
