package pattern

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

var quoted = regexp.MustCompile(`"([^"]*)"`)

// Entities returns the quoted substrings and maximal runs of capitalized
// words in text as a sorted set. This is a best-effort heuristic.
func Entities(text string) []string {
	set := make(map[string]struct{})
	for _, m := range quoted.FindAllStringSubmatch(text, -1) {
		if m[1] != "" {
			set[m[1]] = struct{}{}
		}
	}

	var run []string
	flush := func() {
		if len(run) > 0 {
			set[strings.Join(run, " ")] = struct{}{}
			run = run[:0]
		}
	}
	for _, w := range strings.Fields(text) {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			run = append(run, w)
			continue
		}
		flush()
	}
	flush()

	out := make([]string, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
