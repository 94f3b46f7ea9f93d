package report

import (
	"math"

	"github.com/poverty-pockets/pockets-backend/internal/adoption"
	"github.com/poverty-pockets/pockets-backend/internal/join"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

// StatusUnknown marks identifiers that never appeared in the adoption
// spreadsheet.
const StatusUnknown = "unknown"

// AdoptionView is the adoption part of a display record.
type AdoptionView struct {
	Status       string            `json:"status"`
	AttributedTo string            `json:"attributed_to,omitempty"`
	Lists        map[string]string `json:"lists,omitempty"`
}

// DisplayRecord is everything a popup needs for one feature.
type DisplayRecord struct {
	ID       string         `json:"id"`
	Found    bool           `json:"found"`
	Name     string         `json:"name,omitempty"`
	Fields   []Line         `json:"fields"`
	Raw      tabular.Record `json:"raw,omitempty"`
	Adoption AdoptionView   `json:"adoption"`
}

// Display builds the display record of id. It reads d and ix without
// modifying them; either may be nil.
func Display(id string, d *join.Dataset, ix *adoption.Index, cfg AggregateConfig) DisplayRecord {
	out := DisplayRecord{
		ID:       id,
		Fields:   []Line{},
		Adoption: AdoptionView{Status: StatusUnknown},
	}

	canon, ok := d.Canonical(id)
	if ok {
		out.ID = canon
		rec, _ := d.Lookup(canon)
		out.Found = true
		out.Raw = rec.Clone()
		out.Name = tabular.CellString(rec[tabular.ColName])
		out.Fields = displayFields(rec, cfg)
	}

	if e, ok := ix.Lookup(out.ID); ok {
		out.Adoption = AdoptionView{
			Status:       string(e.Status),
			AttributedTo: e.AttributedTo,
			Lists:        e.Lists,
		}
	}
	return out
}

func displayFields(rec tabular.Record, cfg AggregateConfig) []Line {
	summed := map[string]bool{}
	for _, f := range cfg.Sum {
		summed[f] = true
	}

	var order []string
	added := map[string]bool{}
	for _, list := range [][]string{cfg.Sum, cfg.Average} {
		for _, f := range list {
			if !added[f] {
				added[f] = true
				order = append(order, f)
			}
		}
	}

	lines := make([]Line, 0, len(order))
	for _, f := range order {
		value := "N/A"
		if v, ok := ParseNumber(rec[f]); ok {
			if summed[f] {
				value = FormatCount(int64(math.Round(v)))
			} else {
				value = FormatValue(v, cfg.FormatOf(f))
			}
		}
		lines = append(lines, Line{Field: f, Label: cfg.Label(f), Kind: "value", Value: value})
	}
	return lines
}
