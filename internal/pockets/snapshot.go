package pockets

import (
	"time"

	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/report"
)

// Snapshot is one complete, immutable load. Readers hold a pointer to a
// snapshot for the duration of a request; reloads replace it wholesale.
type Snapshot struct {
	LoadID   string
	LoadedAt time.Time
	Duration time.Duration

	Tracts   *join.Dataset
	Zips     *join.Dataset
	Adoption *adoption.Index

	Aggregate report.AggregateConfig
	Render    report.Descriptor
	Sources   []SourceStatus
}

// Status is the load summary served by /pockets/status.
type Status struct {
	LoadID     string         `json:"load_id"`
	LoadedAt   time.Time      `json:"loaded_at"`
	DurationMS int64          `json:"duration_ms"`
	Tracts     int            `json:"tracts"`
	Zips       int            `json:"zips"`
	Classified int            `json:"classified"`
	Adopted    int            `json:"adopted"`
	Sources    []SourceStatus `json:"sources"`
}

func (s *Snapshot) Status() Status {
	sources := make([]SourceStatus, len(s.Sources))
	copy(sources, s.Sources)
	return Status{
		LoadID:     s.LoadID,
		LoadedAt:   s.LoadedAt,
		DurationMS: s.Duration.Milliseconds(),
		Tracts:     s.Tracts.Len(),
		Zips:       s.Zips.Len(),
		Classified: s.Adoption.Len(),
		Adopted:    s.Adoption.AdoptedCount(),
		Sources:    sources,
	}
}

// Dataset returns the dataset for kind ("tract" or "zip").
func (s *Snapshot) Dataset(kind string) (*join.Dataset, bool) {
	switch kind {
	case "", "tract", "tracts":
		return s.Tracts, true
	case "zip", "zips":
		return s.Zips, true
	}
	return nil, false
}
