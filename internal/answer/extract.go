package answer

import (
	"regexp"
	"strings"
)

var (
	// MathMarkers find GSM8K-style "#### value" terminators and
	// "Final answer: value" lines.
	MathMarkers = []*regexp.Regexp{
		regexp.MustCompile(`####\s*(.+)`),
		regexp.MustCompile(`(?i)(?:final\s+)?answer:?\s*(.+)`),
	}

	// QAMarkers find "FINAL ANSWER: value" lines.
	QAMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)FINAL ANSWER:\s*(.+)`),
	}

	emphasisChars = regexp.MustCompile("[*`\\[\\]]")
)

// Extractor pulls the terminator-marked answer out of generated text.
type Extractor struct {
	// Markers are tried in order; each must capture the answer in group 1.
	Markers []*regexp.Regexp
	// LastLineFallback uses the last non-empty, non-bulleted line when no
	// marker matches.
	LastLineFallback bool
}

// MathExtractor returns the extractor used for chain-of-thought math samples.
func MathExtractor() Extractor {
	return Extractor{Markers: MathMarkers}
}

// QAExtractor returns the extractor used for multi-hop QA responses.
func QAExtractor() Extractor {
	return Extractor{Markers: QAMarkers, LastLineFallback: true}
}

// Extract returns the answer found in text, or false when none was found.
func (e Extractor) Extract(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for _, re := range e.Markers {
		for _, line := range lines {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if v := StripEmphasis(m[1]); v != "" {
				return v, true
			}
		}
	}
	if !e.LastLineFallback {
		return "", false
	}
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || isBulleted(line) {
			continue
		}
		if v := StripEmphasis(line); v != "" {
			return v, true
		}
	}
	return "", false
}

// StripEmphasis removes markdown emphasis and bracket characters.
func StripEmphasis(s string) string {
	return strings.TrimSpace(emphasisChars.ReplaceAllString(s, ""))
}

func isBulleted(line string) bool {
	switch {
	case strings.HasPrefix(line, "["),
		strings.HasPrefix(line, "- "),
		strings.HasPrefix(line, "* "),
		strings.HasPrefix(line, "•"),
		strings.HasPrefix(line, "Step"):
		return true
	}
	return false
}
