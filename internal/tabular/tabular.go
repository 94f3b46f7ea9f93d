// Package tabular turns header-first data matrices and spreadsheet rows into
// partial records keyed by their raw identifier.
package tabular

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record maps a field name to a raw value (string, number or nil).
type Record map[string]any

// Partial is one source's contribution, keyed by raw identifier.
type Partial map[string]Record

// Matrix is a table whose first row is the header.
type Matrix [][]any

// Stats describes what an adapter did with a matrix.
type Stats struct {
	Rows          int      `json:"rows"`
	Kept          int      `json:"kept"`
	Skipped       int      `json:"skipped"`
	MissingKey    bool     `json:"missing_key,omitempty"`
	MissingFields []string `json:"missing_fields,omitempty"`
}

// Adapter extracts a fixed set of fields from one source shape.
type Adapter struct {
	// Name identifies the source in logs and load status.
	Name string `yaml:"name" json:"name"`

	// KeyColumns are concatenated, in order and without separator, to form
	// the raw identifier (state+county+tract, or a single ZCTA column).
	KeyColumns []string `yaml:"key_columns" json:"key_columns"`

	// Fields are the columns copied into each record.
	Fields []string `yaml:"fields" json:"fields"`
}

// Adapt converts m into a Partial. Rows whose width differs from the header
// are skipped. A missing key column yields an empty Partial.
func (a Adapter) Adapt(m Matrix) (Partial, Stats) {
	out := Partial{}
	var st Stats
	if len(m) == 0 {
		st.MissingKey = len(a.KeyColumns) > 0
		return out, st
	}

	header := m[0]
	col := make(map[string]int, len(header))
	for i, h := range header {
		name := CellString(h)
		if _, dup := col[name]; !dup {
			col[name] = i
		}
	}

	keyIdx := make([]int, 0, len(a.KeyColumns))
	for _, k := range a.KeyColumns {
		i, ok := col[k]
		if !ok {
			st.MissingKey = true
			st.Rows = len(m) - 1
			st.Skipped = st.Rows
			return out, st
		}
		keyIdx = append(keyIdx, i)
	}
	if len(keyIdx) == 0 {
		st.MissingKey = true
		return out, st
	}

	type fieldCol struct {
		name string
		idx  int
	}
	fields := make([]fieldCol, 0, len(a.Fields))
	for _, f := range a.Fields {
		i, ok := col[f]
		if !ok {
			st.MissingFields = append(st.MissingFields, f)
			continue
		}
		fields = append(fields, fieldCol{name: f, idx: i})
	}

	for _, row := range m[1:] {
		st.Rows++
		if len(row) != len(header) {
			st.Skipped++
			continue
		}

		var key strings.Builder
		for _, i := range keyIdx {
			key.WriteString(CellString(row[i]))
		}
		raw := key.String()
		if raw == "" || len(fields) == 0 {
			st.Skipped++
			continue
		}

		rec, ok := out[raw]
		if !ok {
			rec = make(Record, len(fields))
			out[raw] = rec
		}
		for _, f := range fields {
			rec[f.name] = row[f.idx]
		}
		st.Kept++
	}

	return out, st
}

// AdaptRows converts spreadsheet rows into a Partial keyed by the trimmed
// value of idColumn. With no fields listed, every other column is copied.
func AdaptRows(rows []map[string]string, idColumn string, fields []string) Partial {
	out := Partial{}
	for _, row := range rows {
		id := strings.TrimSpace(row[idColumn])
		if id == "" {
			continue
		}
		rec, ok := out[id]
		if !ok {
			rec = Record{}
			out[id] = rec
		}
		if len(fields) == 0 {
			for k, v := range row {
				if k != idColumn {
					rec[k] = v
				}
			}
			continue
		}
		for _, f := range fields {
			if v, ok := row[f]; ok {
				rec[f] = v
			}
		}
	}
	for id, rec := range out {
		if len(rec) == 0 {
			delete(out, id)
		}
	}
	return out
}

// CellString renders a matrix cell as text; nil renders as "".
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	}
	if s, ok := v.(interface{ String() string }); ok {
		return s.String()
	}
	return ""
}

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}
