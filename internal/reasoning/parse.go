package reasoning

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/answer-engine/internal/answer"
	"github.com/sells-group/answer-engine/internal/model"
)

var (
	hopHeader     = regexp.MustCompile(`(?i)HOP (\d+):`)
	synthesis     = regexp.MustCompile(`(?i)Step \d+ - Answer Synthesis:`)
	factReference = regexp.MustCompile(`(?i)Document:\s*(.+?)\s*Sentence Reference:\s*\[?(\d+)\]?`)
)

// expectedHops is the hop count a complete two-document answer shows.
const expectedHops = 2

// ExtractAnswer returns the response's final answer.
func ExtractAnswer(response string) (string, bool) {
	return answer.QAExtractor().Extract(response)
}

// ReasoningSteps counts the distinct hop sections in a response, plus one
// for an answer synthesis section.
func ReasoningSteps(response string) int {
	seen := make(map[string]bool)
	for _, m := range hopHeader.FindAllStringSubmatch(response, -1) {
		seen[m[1]] = true
	}
	n := len(seen)
	if synthesis.MatchString(response) {
		n++
	}
	return n
}

// SupportingFacts returns the (document, sentence) citations in a response,
// in order of appearance.
func SupportingFacts(response string) []model.FactRef {
	facts := []model.FactRef{}
	for _, m := range factReference.FindAllStringSubmatch(response, -1) {
		idx, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		facts = append(facts, model.FactRef{Title: strings.TrimSpace(m[1]), SentenceIndex: idx})
	}
	return facts
}

// Confidence scores a response's structure: an extractable answer, enough
// hop sections, enough cited facts and a reasonable length. The result is
// in [0, 1].
func Confidence(response string) float64 {
	score := 0.0
	if _, ok := ExtractAnswer(response); ok {
		score += 0.3
	}
	if ReasoningSteps(response) >= expectedHops {
		score += 0.3
	}
	if len(SupportingFacts(response)) >= expectedHops {
		score += 0.2
	}
	if words := len(strings.Fields(response)); words >= 100 && words <= 1000 {
		score += 0.2
	}
	return min(score, 1.0)
}
