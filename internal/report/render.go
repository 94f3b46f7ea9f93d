package report

import (
	"sort"

	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/join"
)

// RenderConfig chooses the field that colors the map and its class breaks.
type RenderConfig struct {
	Field  string    `yaml:"field" json:"field"`
	Breaks []float64 `yaml:"breaks" json:"breaks"`
}

// Symbol is how one feature is drawn. Class is -1 when the feature has no
// numeric value for the render field.
type Symbol struct {
	Status string   `json:"status"`
	Class  int      `json:"class"`
	Value  *float64 `json:"value,omitempty"`
}

// Descriptor is the complete, immutable instruction set for the map layer
// for one data load.
type Descriptor struct {
	LoadID   string            `json:"load_id"`
	Field    string            `json:"field"`
	Breaks   []float64         `json:"breaks"`
	Features map[string]Symbol `json:"features"`
	Counts   map[string]int    `json:"counts"`
}

// Describe computes the render descriptor for every canonical identifier in
// d. The result shares no state with its inputs.
func Describe(loadID string, d *join.Dataset, ix *adoption.Index, cfg RenderConfig) Descriptor {
	breaks := make([]float64, len(cfg.Breaks))
	copy(breaks, cfg.Breaks)
	sort.Float64s(breaks)

	desc := Descriptor{
		LoadID:   loadID,
		Field:    cfg.Field,
		Breaks:   breaks,
		Features: make(map[string]Symbol, d.Len()),
		Counts:   map[string]int{},
	}

	for _, id := range d.Keys() {
		rec, _ := d.Lookup(id)
		sym := Symbol{Status: StatusUnknown, Class: -1}
		if e, ok := ix.Lookup(id); ok {
			sym.Status = string(e.Status)
		}
		if v, ok := ParseNumber(rec[cfg.Field]); ok {
			val := v
			sym.Value = &val
			sym.Class = sort.Search(len(breaks), func(i int) bool { return breaks[i] > v })
		}
		desc.Features[id] = sym
		desc.Counts[sym.Status]++
	}
	return desc
}
