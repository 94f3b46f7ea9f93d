// Package report computes aggregates, display records and render descriptors
// from a joined dataset and the adoption index.
package report

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

// Format selects how an averaged field is rendered.
type Format string

const (
	FormatPlain      Format = "plain"
	FormatPercentage Format = "percentage"
	FormatCurrency   Format = "currency"
)

// AggregateConfig names the fields to sum and to average.
type AggregateConfig struct {
	Sum     []string          `yaml:"sum" json:"sum"`
	Average []string          `yaml:"average" json:"average"`
	Formats map[string]Format `yaml:"formats" json:"formats"`

	// Labels are display names for fields; unlabeled fields use their code.
	Labels map[string]string `yaml:"labels" json:"labels,omitempty"`
}

// DefaultAggregateConfig is the tract report used by the map.
func DefaultAggregateConfig() AggregateConfig {
	return AggregateConfig{
		Sum:     []string{tabular.FieldPopulation, tabular.FieldHouseholds},
		Average: []string{tabular.FieldPopulation, tabular.FieldEmploymentRate, tabular.FieldPovertyRate, tabular.FieldMedianIncome},
		Formats: map[string]Format{
			tabular.FieldEmploymentRate: FormatPercentage,
			tabular.FieldPovertyRate:    FormatPercentage,
			tabular.FieldMedianIncome:   FormatCurrency,
		},
		Labels: map[string]string{
			tabular.FieldPopulation:     "Population",
			tabular.FieldHouseholds:     "Households",
			tabular.FieldEmploymentRate: "Employment Rate",
			tabular.FieldPovertyRate:    "Poverty Rate",
			tabular.FieldMedianIncome:   "Median Household Income",
		},
	}
}

// FormatOf returns the configured format of field.
func (c AggregateConfig) FormatOf(field string) Format {
	if f, ok := c.Formats[field]; ok {
		return f
	}
	return FormatPlain
}

// Label returns the display name of field.
func (c AggregateConfig) Label(field string) string {
	if l, ok := c.Labels[field]; ok && l != "" {
		return l
	}
	return field
}

// Result holds the aggregates over a set of records. Averages with no
// qualifying values are absent from Averages.
type Result struct {
	Count    int                `json:"count"`
	Sums     map[string]int64   `json:"sums"`
	Averages map[string]float64 `json:"averages"`
	Samples  map[string]int     `json:"samples"`
}

type acc struct {
	sum float64
	n   int
}

// Aggregate sums and averages the configured fields across records. Values
// that are missing or not numeric are left out of both sum and count.
func Aggregate(records []tabular.Record, cfg AggregateConfig) Result {
	res := Result{
		Count:    len(records),
		Sums:     map[string]int64{},
		Averages: map[string]float64{},
		Samples:  map[string]int{},
	}

	fields := map[string]*acc{}
	collect := func(name string) {
		if _, ok := fields[name]; ok {
			return
		}
		a := &acc{}
		for _, rec := range records {
			if v, ok := ParseNumber(rec[name]); ok {
				a.sum += v
				a.n++
			}
		}
		fields[name] = a
	}

	for _, f := range cfg.Sum {
		collect(f)
		a := fields[f]
		res.Sums[f] = int64(math.Round(a.sum))
		res.Samples[f] = a.n
	}
	for _, f := range cfg.Average {
		collect(f)
		a := fields[f]
		res.Samples[f] = a.n
		if a.n > 0 {
			res.Averages[f] = a.sum / float64(a.n)
		}
	}

	return res
}

// ParseNumber reads a raw record value as a finite number.
func ParseNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
