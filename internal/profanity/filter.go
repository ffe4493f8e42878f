package profanity

import (
	"strings"
)

var DefaultBlocklist = []string{"badword", "nasty", "damn"}

// Filter matches text against a fixed, case-insensitive blocklist. Terms are
// matched as substrings, so "damnation" is flagged by "damn".
type Filter struct {
	terms []string
}

func NewFilter(terms []string) *Filter {
	f := &Filter{}
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		f.terms = append(f.terms, t)
	}
	return f
}

// Check returns the first blocklisted term found in text.
func (f *Filter) Check(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, t := range f.terms {
		if strings.Contains(lower, t) {
			return t, true
		}
	}
	return "", false
}

func (f *Filter) Contains(text string) bool {
	_, found := f.Check(text)
	return found
}

func (f *Filter) Terms() []string {
	out := make([]string, len(f.terms))
	copy(out, f.terms)
	return out
}
