package sandbox

import (
	"regexp"
	"strings"
)

var (
	fenceOpen   = regexp.MustCompile("(?m)^```(?:python|py)?[ \t]*\n?")
	fenceClose  = regexp.MustCompile("(?m)\n?```[ \t]*$")
	preamble    = regexp.MustCompile(`(?i)^(?:here is|here's|solution:)[^\n]*\n`)
	answerToken = regexp.MustCompile(`\b` + Binding + `\b`)
)

// ExtractCode strips markdown fences and a leading preamble line from a
// model response.
func ExtractCode(text string) string {
	code := strings.TrimSpace(text)
	code = fenceOpen.ReplaceAllString(code, "")
	code = fenceClose.ReplaceAllString(code, "")
	code = strings.ReplaceAll(code, "```", "")
	code = preamble.ReplaceAllString(code, "")
	return strings.TrimSpace(code)
}

// MentionsAnswer reports whether code refers to the answer binding at all.
func MentionsAnswer(code string) bool {
	return answerToken.MatchString(code)
}
