// Package geoid canonicalizes census tract GEOIDs and ZIP codes.
//
// Identifiers arrive from the census API, spreadsheet exports and GeoJSON
// properties in inconsistent shapes ("06013353001", 353001,
// "14000US06013353001", " 94107 "). Every shape is reduced to a fixed-width,
// digits-only string so the sources can be joined on one key space.
package geoid

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	// TractWidth is the width of a state+county+tract GEOID.
	TractWidth = 11
	// ZipWidth is the width of a ZIP code / ZCTA.
	ZipWidth = 5

	// summaryLevelPrefix is left behind by "14000US..." style identifiers
	// once the non-digits are stripped.
	summaryLevelPrefix = "14000"
)

// Func normalizes a raw identifier. ok is false only when raw is empty.
type Func func(raw any) (canonical string, ok bool)

// NormalizeTract returns the 11-digit canonical GEOID for raw.
func NormalizeTract(raw any) (string, bool) {
	s, ok := rawString(raw)
	if !ok {
		return "", false
	}
	digits := digitsOnly(s)
	digits = strings.TrimPrefix(digits, summaryLevelPrefix)
	return fit(digits, TractWidth), true
}

// NormalizeZip returns the 5-digit canonical ZIP code for raw.
func NormalizeZip(raw any) (string, bool) {
	s, ok := rawString(raw)
	if !ok {
		return "", false
	}
	return fit(digitsOnly(s), ZipWidth), true
}

// IsAllZero reports whether a canonical identifier is made only of padding.
// Callers that must reject identifiers with no digits at all filter on it.
func IsAllZero(canonical string) bool {
	return canonical != "" && strings.Trim(canonical, "0") == ""
}

// IsCanonical reports whether s already has the canonical shape for width.
func IsCanonical(s string, width int) bool {
	if len(s) != width {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ForKind returns the normalizer for "tract" or "zip".
func ForKind(kind string) (Func, bool) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "tract", "tracts", "geoid":
		return NormalizeTract, true
	case "zip", "zips", "zcta":
		return NormalizeZip, true
	}
	return nil, false
}

func fit(digits string, width int) string {
	if len(digits) > width {
		return digits[:width]
	}
	if len(digits) < width {
		return strings.Repeat("0", width-len(digits)) + digits
	}
	return digits
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if c := s[i]; c >= '0' && c <= '9' {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// rawString renders a raw identifier as text. Numbers are written without
// an exponent so 6013353001 does not turn into "6.013353001e+09".
func rawString(raw any) (string, bool) {
	var s string
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		s = strconv.Itoa(v)
	case int64:
		s = strconv.FormatInt(v, 10)
	case int32:
		s = strconv.FormatInt(int64(v), 10)
	case uint64:
		s = strconv.FormatUint(v, 10)
	case uint32:
		s = strconv.FormatUint(uint64(v), 10)
	case fmtStringer:
		s = v.String()
	default:
		return "", false
	}
	if s == "" {
		return "", false
	}
	return s, true
}

type fmtStringer interface{ String() string }
