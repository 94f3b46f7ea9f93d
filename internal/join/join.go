// Package join merges partial records from several sources into one dataset
// keyed by canonical identifier.
package join

import (
	"sort"
	"strings"

	"github.com/poverty-pockets/pockets-backend/internal/geoid"
	"github.com/poverty-pockets/pockets-backend/internal/tabular"
)

// Dataset is the joined result. It is read-only once returned by Join.
type Dataset struct {
	records   map[string]tabular.Record
	canonical []string
	aliases   map[string]string
}

// Join merges sources, given in priority order (later sources win on field
// collisions), into a Dataset keyed by the identifiers normalize produces.
//
// Raw identifiers that normalize to the same canonical identifier are merged
// into one record: source order first, then raw identifiers in sorted order.
// The inputs are never modified.
func Join(sources []tabular.Partial, normalize geoid.Func) *Dataset {
	groups := map[string][]string{}
	seen := map[string]bool{}
	for _, src := range sources {
		for raw := range src {
			if seen[raw] {
				continue
			}
			seen[raw] = true
			canon, ok := normalize(raw)
			if !ok {
				continue
			}
			groups[canon] = append(groups[canon], raw)
		}
	}

	d := &Dataset{
		records: make(map[string]tabular.Record, len(groups)),
		aliases: map[string]string{},
	}

	for canon, raws := range groups {
		sort.Strings(raws)

		merged := tabular.Record{}
		for _, src := range sources {
			for _, raw := range raws {
				for field, v := range src[raw] {
					merged[field] = v
				}
			}
		}
		if len(merged) == 0 {
			continue
		}

		d.records[canon] = merged
		d.canonical = append(d.canonical, canon)
		for _, raw := range raws {
			if _, isCanon := groups[raw]; raw != canon && !isCanon {
				d.records[raw] = merged
				d.aliases[raw] = canon
			}
		}
	}

	sort.Strings(d.canonical)
	return d
}

// Lookup returns the record stored under a canonical or raw identifier.
func (d *Dataset) Lookup(id string) (tabular.Record, bool) {
	if d == nil {
		return nil, false
	}
	rec, ok := d.records[id]
	return rec, ok
}

// Canonical resolves id (canonical or raw) to its canonical identifier.
func (d *Dataset) Canonical(id string) (string, bool) {
	if d == nil {
		return "", false
	}
	if c, ok := d.aliases[id]; ok {
		return c, true
	}
	if _, ok := d.records[id]; ok {
		return id, true
	}
	return "", false
}

// Keys returns the canonical identifiers in sorted order.
func (d *Dataset) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.canonical))
	copy(out, d.canonical)
	return out
}

// Len is the number of canonical entries.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.canonical)
}

// Aliases returns the raw identifiers that differ from their canonical form.
func (d *Dataset) Aliases() map[string]string {
	out := make(map[string]string, len(d.aliases))
	for k, v := range d.aliases {
		out[k] = v
	}
	return out
}

// Records projects the dataset onto ids, resolving raw forms and skipping
// unknown or repeated identifiers.
func (d *Dataset) Records(ids []string) []tabular.Record {
	out := make([]tabular.Record, 0, len(ids))
	picked := map[string]bool{}
	for _, id := range ids {
		canon, ok := d.Canonical(strings.TrimSpace(id))
		if !ok || picked[canon] {
			continue
		}
		picked[canon] = true
		out = append(out, d.records[canon])
	}
	return out
}

// Search returns canonical identifiers that start with q or, for tract
// numbers typed on their own, end with it. Digits are compared only.
func (d *Dataset) Search(q string, limit int) []string {
	if d == nil {
		return nil
	}
	var digits strings.Builder
	for _, r := range q {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	needle := digits.String()
	if needle == "" {
		return []string{}
	}

	out := []string{}
	for _, id := range d.canonical {
		if strings.HasPrefix(id, needle) || strings.HasSuffix(id, needle) {
			out = append(out, id)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}
