package verify

import "strings"

var arithmeticKeywords = []string{
	"calculate", "compute", "how many", "how much", "total", "sum",
	"difference", "product", "quotient", "+", "-", "*", "/",
	"divide", "multiply", "cost", "price", "earn", "spend", "pay",
}

var complexityIndicators = []string{
	"every", "each", "doubles", "triples", "weekend", "weekday",
	"except", "both", "either", "between", "saturday", "sunday",
	"monday", "morning", "evening", "afternoon",
}

// IsArithmeticQuestion reports whether the question contains any
// arithmetic keyword or operator as a case-insensitive substring.
func IsArithmeticQuestion(question string) bool {
	return countMatches(question, arithmeticKeywords, 1) >= 1
}

// IsComplexWordProblem reports whether at least two complexity
// indicators occur in the question. Substring matches count, so
// "everyday" satisfies "every".
func IsComplexWordProblem(question string) bool {
	return countMatches(question, complexityIndicators, 2) >= 2
}

// countMatches counts keywords found in text, stopping once limit is reached.
func countMatches(text string, keywords []string, limit int) int {
	t := strings.ToLower(text)
	n := 0
	for _, kw := range keywords {
		if strings.Contains(t, kw) {
			n++
			if n >= limit {
				break
			}
		}
	}
	return n
}
