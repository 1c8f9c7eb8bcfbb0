package answer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	terminatorMarkers = regexp.MustCompile(`(?i)####\s*|final answer:\s*`)
	calcAnnotations   = regexp.MustCompile(`<<|>>`)
)

// Normalize formats a raw answer for output. Numeric answers are printed as
// integers for counting questions, with two decimals for currency
// questions, and otherwise in their shortest form. Non-numeric answers are
// returned cleaned but otherwise unchanged.
func Normalize(raw, question string) string {
	cleaned := norm.NFKC.String(raw)
	cleaned = terminatorMarkers.ReplaceAllString(cleaned, "")
	cleaned = emphasisChars.ReplaceAllString(cleaned, "")
	cleaned = calcAnnotations.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	numStr := strings.NewReplacer("$", "", ",", "").Replace(cleaned)
	numStr = strings.TrimSpace(numStr)

	num, isFloat, ok := parseNumber(numStr)
	if !ok {
		return cleaned
	}

	q := strings.ToLower(question)
	switch {
	case strings.Contains(q, "how many"):
		return formatWhole(num)
	case strings.Contains(question, "$") ||
		strings.Contains(q, "dollar") ||
		strings.Contains(q, "cost") ||
		strings.Contains(q, "price"):
		return strconv.FormatFloat(num, 'f', 2, 64)
	case !isFloat || num == math.Trunc(num):
		return formatWhole(num)
	default:
		return strconv.FormatFloat(num, 'f', -1, 64)
	}
}

// formatWhole prints the integer part of num. Values outside the int64
// range are printed from the float in full rather than wrapped.
func formatWhole(num float64) string {
	t := math.Trunc(num)
	if t >= -(1<<63) && t < 1<<63 {
		return strconv.FormatInt(int64(t), 10)
	}
	return strconv.FormatFloat(t, 'f', 0, 64)
}

// parseNumber parses s as a decimal number. Values written with a decimal
// point or exponent are floats, everything else is truncated to an integer.
func parseNumber(s string) (num float64, isFloat bool, ok bool) {
	if s == "" {
		return 0, false, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false, false
	}
	if strings.ContainsAny(s, ".eE") {
		return f, true, true
	}
	return math.Trunc(f), false, true
}
