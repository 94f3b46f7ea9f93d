package report

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatValue renders an averaged value: percentages with one decimal and a
// trailing "%", currency as whole dollars with thousands separators, and
// everything else with two decimals.
func FormatValue(v float64, f Format) string {
	switch f {
	case FormatPercentage:
		return strconv.FormatFloat(v, 'f', 1, 64) + "%"
	case FormatCurrency:
		return printer.Sprintf("$%d", int64(math.Round(v)))
	default:
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return printer.Sprintf("%d", n)
}

// Line is one rendered aggregate.
type Line struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// Summary is a Result rendered for display, in configuration order.
type Summary struct {
	Count int    `json:"count"`
	Lines []Line `json:"lines"`
}

// Summarize renders res. Averages without qualifying values are omitted.
func Summarize(res Result, cfg AggregateConfig) Summary {
	s := Summary{Count: res.Count, Lines: []Line{}}
	for _, f := range cfg.Sum {
		v, ok := res.Sums[f]
		if !ok {
			continue
		}
		s.Lines = append(s.Lines, Line{Field: f, Label: "Total " + cfg.Label(f), Kind: "sum", Value: FormatCount(v)})
	}
	for _, f := range cfg.Average {
		v, ok := res.Averages[f]
		if !ok {
			continue
		}
		s.Lines = append(s.Lines, Line{Field: f, Label: "Average " + cfg.Label(f), Kind: "average", Value: FormatValue(v, cfg.FormatOf(f))})
	}
	return s
}
