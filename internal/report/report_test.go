package report_test

import (
	"testing"

	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/report"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_SkipsNonNumeric(t *testing.T) {
	records := []tabular.Record{
		{"P1_001N": "100"},
		{"P1_001N": 200.0},
		{"P1_001N": "N/A"},
		{"P1_001N": "300"},
	}
	cfg := report.AggregateConfig{Sum: []string{"P1_001N"}, Average: []string{"P1_001N"}}

	res := report.Aggregate(records, cfg)

	assert.Equal(t, 4, res.Count)
	assert.Equal(t, int64(600), res.Sums["P1_001N"])
	assert.Equal(t, 3, res.Samples["P1_001N"])
	assert.InDelta(t, 200.0, res.Averages["P1_001N"], 1e-9)
	assert.Equal(t, "200.00", report.FormatValue(res.Averages["P1_001N"], cfg.FormatOf("P1_001N")))
}

func TestAggregate_PercentageFormatting(t *testing.T) {
	records := []tabular.Record{{"DP03_0004PE": 50.0}, {"DP03_0004PE": "51.4"}}
	cfg := report.DefaultAggregateConfig()

	res := report.Aggregate(records, cfg)

	require.Contains(t, res.Averages, "DP03_0004PE")
	assert.Equal(t, "50.7%", report.FormatValue(res.Averages["DP03_0004PE"], report.FormatPercentage))
}

func TestAggregate_NoQualifyingDataOmitsAverage(t *testing.T) {
	records := []tabular.Record{{"S1901_C01_012E": "-"}, {"S1901_C01_012E": nil}, {}}
	cfg := report.AggregateConfig{Sum: []string{"P1_001N"}, Average: []string{"S1901_C01_012E"}}

	res := report.Aggregate(records, cfg)

	assert.Equal(t, 3, res.Count)
	assert.NotContains(t, res.Averages, "S1901_C01_012E")
	assert.Equal(t, int64(0), res.Sums["P1_001N"])
}

func TestAggregate_EmptyCollection(t *testing.T) {
	res := report.Aggregate(nil, report.DefaultAggregateConfig())
	assert.Zero(t, res.Count)
	assert.Empty(t, res.Averages)
}

func TestAggregate_RoundsSums(t *testing.T) {
	records := []tabular.Record{{"X": "1.4"}, {"X": "1.3"}}
	res := report.Aggregate(records, report.AggregateConfig{Sum: []string{"X"}})
	assert.Equal(t, int64(3), res.Sums["X"])
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "$85,000", report.FormatValue(84999.6, report.FormatCurrency))
	assert.Equal(t, "$1,234,567", report.FormatValue(1234567.2, report.FormatCurrency))
	assert.Equal(t, "$950", report.FormatValue(950, report.FormatCurrency))
	assert.Equal(t, "12.3%", report.FormatValue(12.345, report.FormatPercentage))
	assert.Equal(t, "3.14", report.FormatValue(3.14159, report.FormatPlain))
	assert.Equal(t, "12,345", report.FormatCount(12345))
}

func TestParseNumber(t *testing.T) {
	for _, v := range []any{"12", " 12 ", 12, 12.0, int64(12)} {
		got, ok := report.ParseNumber(v)
		assert.True(t, ok, "%#v", v)
		assert.Equal(t, 12.0, got)
	}
	for _, v := range []any{nil, "", "N/A", "NaN", "Inf", true, []string{"1"}} {
		_, ok := report.ParseNumber(v)
		assert.False(t, ok, "%#v", v)
	}
}

func TestSummarize(t *testing.T) {
	cfg := report.DefaultAggregateConfig()
	records := []tabular.Record{
		{"P1_001N": "4120", "DP02_0001E": "1500", "DP03_0004PE": "60.0", "S1901_C01_012E": "90000"},
		{"P1_001N": "3980", "DP02_0001E": "1400", "DP03_0004PE": "62.0", "S1901_C01_012E": "-666666666x"},
	}

	s := report.Summarize(report.Aggregate(records, cfg), cfg)

	assert.Equal(t, 2, s.Count)
	byField := map[string]report.Line{}
	for _, l := range s.Lines {
		byField[l.Kind+":"+l.Field] = l
	}
	assert.Equal(t, "8,100", byField["sum:P1_001N"].Value)
	assert.Equal(t, "Total Population", byField["sum:P1_001N"].Label)
	assert.Equal(t, "4050.00", byField["average:P1_001N"].Value)
	assert.Equal(t, "61.0%", byField["average:DP03_0004PE"].Value)
	assert.Equal(t, "$90,000", byField["average:S1901_C01_012E"].Value)
	assert.NotContains(t, byField, "average:DP03_0128PE")
}

func fixture(t *testing.T) (*join.Dataset, *adoption.Index) {
	t.Helper()
	pop := tabular.Partial{
		"06013353001": {"NAME": "Census Tract 3530.01", "P1_001N": "4120"},
		"06013353002": {"NAME": "Census Tract 3530.02", "P1_001N": "800"},
		"06013353003": {"NAME": "Census Tract 3530.03"},
	}
	income := tabular.Partial{"06013353001": {"S1901_C01_012E": "72000"}}
	d := join.Join([]tabular.Partial{pop, income}, geoid.NormalizeTract)

	ix, err := adoption.Classify([]adoption.Row{
		{"GEOID": "06013353001", "Status": "Adopted", "Adopted By": "Rotary", "Organizations": "Rotary"},
		{"GEOID": "06013353002", "Status": ""},
	}, adoption.DefaultConfig())
	require.NoError(t, err)
	return d, ix
}

func TestDisplay(t *testing.T) {
	d, ix := fixture(t)
	cfg := report.DefaultAggregateConfig()

	rec := report.Display("6013353001", d, ix, cfg)
	assert.False(t, rec.Found, "raw forms only resolve when a source used them")

	rec = report.Display("06013353001", d, ix, cfg)
	require.True(t, rec.Found)
	assert.Equal(t, "Census Tract 3530.01", rec.Name)
	assert.Equal(t, "adopted", rec.Adoption.Status)
	assert.Equal(t, "Rotary", rec.Adoption.AttributedTo)

	values := map[string]string{}
	for _, l := range rec.Fields {
		values[l.Field] = l.Value
	}
	assert.Equal(t, "4,120", values["P1_001N"])
	assert.Equal(t, "$72,000", values["S1901_C01_012E"])
	assert.Equal(t, "N/A", values["DP03_0004PE"])

	rec = report.Display("06013353002", d, ix, cfg)
	assert.Equal(t, "not_adopted", rec.Adoption.Status)

	rec = report.Display("06013353003", d, ix, cfg)
	assert.Equal(t, report.StatusUnknown, rec.Adoption.Status)

	rec = report.Display("99999999999", d, nil, cfg)
	assert.False(t, rec.Found)
	assert.Equal(t, report.StatusUnknown, rec.Adoption.Status)
}

func TestDescribe(t *testing.T) {
	d, ix := fixture(t)

	desc := report.Describe("load-1", d, ix, report.RenderConfig{Field: "P1_001N", Breaks: []float64{4000, 1000}})

	assert.Equal(t, []float64{1000, 4000}, desc.Breaks)
	require.Len(t, desc.Features, 3)
	assert.Equal(t, 2, desc.Features["06013353001"].Class)
	assert.Equal(t, "adopted", desc.Features["06013353001"].Status)
	assert.Equal(t, 0, desc.Features["06013353002"].Class)
	assert.Equal(t, -1, desc.Features["06013353003"].Class)
	assert.Nil(t, desc.Features["06013353003"].Value)
	assert.Equal(t, map[string]int{"adopted": 1, "not_adopted": 1, "unknown": 1}, desc.Counts)
}
