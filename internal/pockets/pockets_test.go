package pockets_test

import (
	"context"
	"errors"
	"sync"

	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/census"
	"github.com/poverty-pockets/pockets-backend/internal/config"
	"github.com/poverty-pockets/pockets-backend/internal/pockets"
	"github.com/poverty-pockets/pockets-backend/internal/report"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

// stubFetcher answers census queries by source name.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]tabular.Matrix
	calls     []string
}

func (s *stubFetcher) Fetch(ctx context.Context, q census.Query) (census.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, q.Source)
	m, ok := s.responses[q.Source]
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return census.Response{}, err
	}
	if !ok {
		return census.Response{}, errors.New("census status 500")
	}
	return census.Response{Matrix: m}, nil
}

type stubRows struct {
	rows []adoption.Row
	err  error
}

func (s stubRows) ReadRows(ctx context.Context) ([]adoption.Row, error) {
	return s.rows, s.err
}

func testSources() config.Sources {
	s := config.DefaultSources()
	s.Tables = []config.Table{
		{Name: "population", Dataset: "2020/dec/pl", Fields: []string{tabular.ColName, tabular.FieldPopulation}},
		{Name: "income", Dataset: "2022/acs/acs5/subject", Fields: []string{tabular.FieldMedianIncome}},
	}
	s.ZipTables = []config.Table{
		{Name: "population", Dataset: "2020/dec/dhc", Fields: []string{tabular.ColName, tabular.FieldPopulation}},
	}
	s.Render = report.RenderConfig{Field: tabular.FieldPopulation, Breaks: []float64{1000}}
	return s
}

func testFetcher() *stubFetcher {
	return &stubFetcher{responses: map[string]tabular.Matrix{
		"population": {
			{"NAME", "P1_001N", "state", "county", "tract"},
			{"Census Tract 3530.01", "4120", "06", "013", "353001"},
			{"Census Tract 100", "900", "06", "075", "010000"},
			{"Census Tract 9999", "1"},
		},
		"population_zcta": {
			{"NAME", "P1_001N", "zip code tabulation area"},
			{"ZCTA5 94103", "27000", "94103"},
			{"ZCTA5 10001", "21000", "10001"},
		},
	}}
}

func testOptions() pockets.Options {
	return pockets.Options{
		Fetcher: testFetcher(),
		Sources: testSources(),
		Adoption: stubRows{rows: []adoption.Row{
			{"GEOID": "06013353001", "Status": "Adopted", "Adopted By": "Rotary"},
			{"GEOID": "06075010000", "Status": ""},
		}},
	}
}
