// Package answer extracts, votes on and formats generated answers.
package answer

import "strings"

// Vote returns the most frequent answer among samples, keyed by trimmed
// lowercase text, with its share of the non-blank samples. Ties go to the
// value seen first. The returned value is the trimmed original text of its
// first occurrence. ok is false when no sample is usable.
func Vote(samples []string) (value string, fraction float64, ok bool) {
	counts := make(map[string]int)
	first := make(map[string]string)
	var order []string
	total := 0

	for _, s := range samples {
		trimmed := strings.TrimSpace(s)
		key := strings.ToLower(trimmed)
		if key == "" {
			continue
		}
		total++
		if _, seen := counts[key]; !seen {
			order = append(order, key)
			first[key] = trimmed
		}
		counts[key]++
	}
	if total == 0 {
		return "", 0, false
	}

	best := order[0]
	for _, key := range order[1:] {
		if counts[key] > counts[best] {
			best = key
		}
	}
	return first[best], float64(counts[best]) / float64(total), true
}
