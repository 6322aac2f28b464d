// Package strings cleans list-valued settings such as broker addresses and
// user id allow-lists.
package strings

import (
	"strings"
)

// NormalizeList trims, lowercases and drops empty or repeated entries while
// keeping first-seen order. Nil in, nil out.
func NormalizeList(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
