package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/census"
	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/report"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

var (
	ErrNoTables     = errors.New("sources: no tract tables configured")
	ErrNoCounties   = errors.New("sources: no counties configured")
	ErrInvalidTable = errors.New("sources: invalid table")
)

// BayAreaCounties are the nine Bay Area county FIPS codes in California.
var BayAreaCounties = []string{"001", "013", "041", "055", "075", "081", "085", "095", "097"}

// Table is one census table to fetch, e.g. dataset "2022/acs/acs5/profile".
type Table struct {
	Name    string   `yaml:"name"`
	Dataset string   `yaml:"dataset"`
	Fields  []string `yaml:"fields"`
}

// Source pairs a census query with the adapter for its response.
type Source struct {
	Query   census.Query
	Adapter tabular.Adapter
}

// Sources defines every dataset a load reads.
type Sources struct {
	State    string   `yaml:"state"`
	Counties []string `yaml:"counties"`

	// Tables are fetched per tract; ZipTables per ZIP code tabulation area.
	Tables    []Table `yaml:"tables"`
	ZipTables []Table `yaml:"zip_tables"`

	Adoption  adoption.Config        `yaml:"adoption"`
	Aggregate report.AggregateConfig `yaml:"aggregate"`
	Render    report.RenderConfig    `yaml:"render"`

	// ZipFields are the GeoJSON properties tried, in order, for the ZIP code.
	ZipFields []string `yaml:"zip_fields"`

	// ZipPrefixes restrict ZCTA rows to the region. Empty keeps every row.
	ZipPrefixes []string `yaml:"zip_prefixes"`
}

// DefaultSources returns the built-in Bay Area definitions.
func DefaultSources() Sources {
	pop, profile, income := tabular.DecennialPopulation(), tabular.ACSProfile(), tabular.ACSSubject()
	return Sources{
		State:    "06",
		Counties: append([]string(nil), BayAreaCounties...),
		Tables: []Table{
			{Name: pop.Name, Dataset: "2020/dec/pl", Fields: pop.Fields},
			{Name: profile.Name, Dataset: "2022/acs/acs5/profile", Fields: profile.Fields},
			{Name: income.Name, Dataset: "2022/acs/acs5/subject", Fields: income.Fields},
		},
		ZipTables: []Table{
			{Name: pop.Name, Dataset: "2020/dec/dhc", Fields: pop.Fields},
			{Name: profile.Name, Dataset: "2022/acs/acs5/profile", Fields: profile.Fields},
			{Name: income.Name, Dataset: "2022/acs/acs5/subject", Fields: income.Fields},
		},
		Adoption:  adoption.DefaultConfig(),
		Aggregate: report.DefaultAggregateConfig(),
		Render: report.RenderConfig{
			Field:  tabular.FieldPovertyRate,
			Breaks: []float64{5, 10, 15, 20, 30},
		},
		ZipFields:   []string{"ZCTA5CE20", "ZCTA5CE10", "GEOID20", "GEOID", "ZIP", "ZIP_CODE", "zip"},
		ZipPrefixes: []string{"940", "941", "943", "944", "945", "946", "947", "948", "949", "950", "951"},
	}
}

// LoadSources reads path over the defaults. Keys absent from the file keep
// their default values. An empty path returns the defaults.
func LoadSources(path string) (Sources, error) {
	s := DefaultSources()
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Sources{}, fmt.Errorf("read sources: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Sources{}, fmt.Errorf("parse sources %s: %w", path, err)
	}
	s.Adoption.Normalize = geoid.NormalizeTract
	if err := s.Validate(); err != nil {
		return Sources{}, err
	}
	return s, nil
}

// Validate checks that every table can be fetched and adapted.
func (s Sources) Validate() error {
	if len(s.Tables) == 0 {
		return ErrNoTables
	}
	if len(s.Counties) == 0 {
		return ErrNoCounties
	}
	for _, t := range append(append([]Table(nil), s.Tables...), s.ZipTables...) {
		if t.Name == "" || t.Dataset == "" || len(t.Fields) == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidTable, t.Name)
		}
	}
	return nil
}

// TractSources returns the queries and adapters for tract tables. Every
// query is restricted to the configured state and counties.
func (s Sources) TractSources() []Source {
	in := []string{"state:" + s.State}
	if len(s.Counties) > 0 {
		in = append(in, "county:"+strings.Join(s.Counties, ","))
	}

	out := make([]Source, 0, len(s.Tables))
	for _, t := range s.Tables {
		out = append(out, Source{
			Query: census.Query{
				Source:  t.Name,
				Dataset: t.Dataset,
				Get:     t.Fields,
				For:     tabular.ColTract + ":*",
				In:      in,
			},
			Adapter: tabular.Adapter{
				Name:       t.Name,
				KeyColumns: tabular.TractKey,
				Fields:     t.Fields,
			},
		})
	}
	return out
}

// ZipSources returns the queries and adapters for ZCTA tables. ZCTAs are
// not nested in states, so these fetch nationally; see KeepZip.
func (s Sources) ZipSources() []Source {
	out := make([]Source, 0, len(s.ZipTables))
	for _, t := range s.ZipTables {
		a := tabular.Adapter{Name: t.Name, Fields: t.Fields}.ForZCTA()
		out = append(out, Source{
			Query: census.Query{
				Source:  a.Name,
				Dataset: t.Dataset,
				Get:     t.Fields,
				For:     tabular.ColZCTA + ":*",
			},
			Adapter: a,
		})
	}
	return out
}

// KeepZip reports whether a canonical ZIP belongs to the configured region.
func (s Sources) KeepZip(zip string) bool {
	if len(s.ZipPrefixes) == 0 {
		return true
	}
	for _, p := range s.ZipPrefixes {
		if strings.HasPrefix(zip, p) {
			return true
		}
	}
	return false
}
