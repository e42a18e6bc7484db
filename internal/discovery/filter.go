package discovery

import "strings"

// DefaultMarkers are the log substrings that indicate mint creation.
// Matching is by substring, so "InitializeMint" also covers InitializeMint2.
var DefaultMarkers = []string{
	"InitializeMint",
	"create_account",
	"initialize_mint",
}

// Filter is a cheap pre-check on notification log text.
// It is a superset detector: false positives are resolved by the extractor.
type Filter struct {
	markers []string
}

// NewFilter creates a Filter. Markers are matched case-insensitively;
// blank markers are ignored. A filter without markers matches nothing.
func NewFilter(markers []string) *Filter {
	f := &Filter{markers: make([]string, 0, len(markers))}
	seen := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		f.markers = append(f.markers, m)
	}
	return f
}

// Match reports whether text contains any marker.
func (f *Filter) Match(text string) bool {
	if len(f.markers) == 0 || text == "" {
		return false
	}
	lower := strings.ToLower(text)
	for _, m := range f.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Markers returns the normalized marker set.
func (f *Filter) Markers() []string {
	out := make([]string, len(f.markers))
	copy(out, f.markers)
	return out
}
