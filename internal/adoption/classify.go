// Package adoption classifies census tracts as adopted or not from the
// volunteer spreadsheet export.
package adoption

import (
	"errors"
	"strings"

	"github.com/poverty-pockets/pockets-backend/internal/geoid"
)

// Status is the two-state adoption classification.
type Status string

const (
	StatusAdopted    Status = "adopted"
	StatusNotAdopted Status = "not_adopted"

	// NotApplicable is the attribution of tracts that are not adopted.
	NotApplicable = "N/A"
)

var ErrNoIdentifierColumn = errors.New("no identifier column found in spreadsheet rows")

// Row is one spreadsheet row keyed by column name.
type Row map[string]string

// Config names the spreadsheet columns the classifier reads.
type Config struct {
	// IDColumns are tried in order; the first one present in the rows is used.
	IDColumns []string `yaml:"id_columns" json:"id_columns"`

	StatusColumn      string   `yaml:"status_column" json:"status_column"`
	PositiveTokens    []string `yaml:"positive_tokens" json:"positive_tokens"`
	AttributionColumn string   `yaml:"attribution_column" json:"attribution_column"`

	// ListColumns hold comma-separated free text that may mention tracts
	// (organizations, businesses).
	ListColumns []string `yaml:"list_columns" json:"list_columns"`

	// Normalize maps the identifier to the index key. Nil keeps the trimmed
	// spreadsheet value.
	Normalize geoid.Func `yaml:"-" json:"-"`
}

// DefaultConfig matches the adoption spreadsheet export.
func DefaultConfig() Config {
	return Config{
		IDColumns:         []string{"GEOID", "Census Tract", "Tract"},
		StatusColumn:      "Status",
		PositiveTokens:    []string{"adopted"},
		AttributionColumn: "Adopted By",
		ListColumns:       []string{"Organizations", "Businesses"},
		Normalize:         geoid.NormalizeTract,
	}
}

// Entry is the classification of one identifier.
type Entry struct {
	Status       Status            `json:"status"`
	InSource     bool              `json:"in_source"`
	AttributedTo string            `json:"attributed_to"`
	Lists        map[string]string `json:"lists,omitempty"`
	RawID        string            `json:"raw_id"`
}

// Index is the classification of every identifier in the spreadsheet.
// It is immutable once returned by Classify.
type Index struct {
	IDColumn string
	entries  map[string]Entry
	seen     map[string]struct{}
	adopted  map[string]struct{}
}

// Lookup returns the entry for a canonical identifier. ok is false when the
// identifier never appeared in the spreadsheet, which is distinct from a
// known not_adopted entry.
func (ix *Index) Lookup(id string) (Entry, bool) {
	if ix == nil {
		return Entry{}, false
	}
	e, ok := ix.entries[id]
	return e, ok
}

// Seen reports whether id appeared in the spreadsheet.
func (ix *Index) Seen(id string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.seen[id]
	return ok
}

// Adopted reports whether id was classified positively.
func (ix *Index) Adopted(id string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.adopted[id]
	return ok
}

// Len is the number of identifiers in the index.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.entries)
}

// AdoptedCount is the number of positively classified identifiers.
func (ix *Index) AdoptedCount() int {
	if ix == nil {
		return 0
	}
	return len(ix.adopted)
}

// Entries returns a copy of the index keyed by identifier.
func (ix *Index) Entries() map[string]Entry {
	out := make(map[string]Entry, ix.Len())
	if ix == nil {
		return out
	}
	for k, v := range ix.entries {
		out[k] = v
	}
	return out
}

// Classify builds the adoption index in two passes over rows.
//
// The first pass collects identifiers and decides the positive set: a row's
// status column, or a mention of the identifier in any list column of any
// row. The second pass builds entries from that set, so a tract can be
// confirmed by a different row than the one that describes it.
func Classify(rows []Row, cfg Config) (*Index, error) {
	idCol, ok := resolveColumn(rows, cfg.IDColumns)
	if !ok {
		return nil, ErrNoIdentifierColumn
	}

	key := func(raw string) (string, bool) {
		if cfg.Normalize == nil {
			return raw, true
		}
		return cfg.Normalize(raw)
	}

	ix := &Index{
		IDColumn: idCol,
		entries:  map[string]Entry{},
		seen:     map[string]struct{}{},
		adopted:  map[string]struct{}{},
	}

	// Pass 1.
	var lists []string
	for _, row := range rows {
		for _, col := range cfg.ListColumns {
			if list := row[col]; list != "" {
				lists = append(lists, list)
			}
		}
	}

	for _, row := range rows {
		raw := strings.TrimSpace(row[idCol])
		if raw == "" {
			continue
		}
		id, ok := key(raw)
		if !ok {
			continue
		}
		ix.seen[id] = struct{}{}

		if isPositive(row[cfg.StatusColumn], cfg.PositiveTokens) || mentioned(raw, lists) {
			ix.adopted[id] = struct{}{}
		}
	}

	// Pass 2.
	for _, row := range rows {
		raw := strings.TrimSpace(row[idCol])
		if raw == "" {
			continue
		}
		id, ok := key(raw)
		if !ok {
			continue
		}

		_, adopted := ix.adopted[id]
		e := Entry{
			Status:       StatusNotAdopted,
			InSource:     true,
			AttributedTo: NotApplicable,
			RawID:        raw,
		}
		if adopted {
			e.Status = StatusAdopted
			if by := strings.TrimSpace(row[cfg.AttributionColumn]); by != "" {
				e.AttributedTo = by
			}
		}
		for _, col := range cfg.ListColumns {
			if v, ok := row[col]; ok {
				if e.Lists == nil {
					e.Lists = map[string]string{}
				}
				e.Lists[col] = v
			}
		}

		if prev, dup := ix.entries[id]; dup {
			e = fillFrom(prev, e)
		}
		ix.entries[id] = e
	}

	return ix, nil
}

// fillFrom keeps the first row's attributes for a repeated identifier and
// takes only what it was missing from later rows.
func fillFrom(prev, next Entry) Entry {
	if prev.AttributedTo == NotApplicable && next.AttributedTo != NotApplicable {
		prev.AttributedTo = next.AttributedTo
	}
	for col, v := range next.Lists {
		if prev.Lists == nil {
			prev.Lists = map[string]string{}
		}
		if strings.TrimSpace(prev.Lists[col]) == "" {
			prev.Lists[col] = v
		}
	}
	return prev
}

func mentioned(raw string, lists []string) bool {
	for _, list := range lists {
		if IsMember(raw, list) {
			return true
		}
	}
	return false
}

func isPositive(status string, tokens []string) bool {
	status = strings.TrimSpace(status)
	if status == "" {
		return false
	}
	for _, t := range tokens {
		if strings.EqualFold(status, strings.TrimSpace(t)) {
			return true
		}
	}
	return false
}

func resolveColumn(rows []Row, candidates []string) (string, bool) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		for _, row := range rows {
			if _, ok := row[c]; ok {
				return c, true
			}
		}
	}
	return "", false
}
