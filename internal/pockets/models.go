package pockets

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// LoadRun records one completed load.
type LoadRun struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	LoadedAt      time.Time      `gorm:"index" json:"loaded_at"`
	DurationMS    int64          `json:"duration_ms"`
	Tracts        int            `json:"tracts"`
	Zips          int            `json:"zips"`
	Adopted       int            `json:"adopted"`
	FailedSources pq.StringArray `gorm:"type:text[]" json:"failed_sources"`
	CachedSources pq.StringArray `gorm:"type:text[]" json:"cached_sources"`
}

func (LoadRun) TableName() string {
	return "pockets.load_runs"
}

func newLoadRun(s *Snapshot) LoadRun {
	id, err := uuid.Parse(s.LoadID)
	if err != nil {
		id = uuid.New()
	}
	run := LoadRun{
		ID:            id,
		LoadedAt:      s.LoadedAt,
		DurationMS:    s.Duration.Milliseconds(),
		Tracts:        s.Tracts.Len(),
		Zips:          s.Zips.Len(),
		Adopted:       s.Adoption.AdoptedCount(),
		FailedSources: pq.StringArray{},
		CachedSources: pq.StringArray{},
	}
	for _, st := range s.Sources {
		switch st.Outcome {
		case OutcomeFailed:
			run.FailedSources = append(run.FailedSources, st.Name)
		case OutcomeCached:
			run.CachedSources = append(run.CachedSources, st.Name)
		}
	}
	return run
}
