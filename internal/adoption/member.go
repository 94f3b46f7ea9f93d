package adoption

import "strings"

// IsMember reports whether id appears in the comma-separated list. Entries
// and id are trimmed and compared as plain strings; callers normalize both
// sides first when formats differ.
func IsMember(id, list string) bool {
	id = strings.TrimSpace(id)
	if id == "" || list == "" {
		return false
	}
	for _, entry := range splitList(list) {
		if entry == id {
			return true
		}
	}
	return false
}

func splitList(list string) []string {
	parts := strings.Split(list, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
