// Package location provides the static region directory used for listing locations.
package location

import "strings"

// MaxResults caps every search result
const MaxResults = 10

// Search ranks entries that start with query ahead of entries that only contain it.
//
// Matching is case-insensitive and an empty query yields no results.
func Search(entries []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []string{}
	}

	var prefix, contains []string
	for _, e := range entries {
		lower := strings.ToLower(e)
		switch {
		case strings.HasPrefix(lower, q):
			prefix = append(prefix, e)
		case strings.Contains(lower, q):
			contains = append(contains, e)
		}
	}

	out := append(prefix, contains...)
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	if out == nil {
		return []string{}
	}
	return out
}
