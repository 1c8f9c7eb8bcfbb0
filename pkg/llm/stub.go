package llm

import (
	"context"
	"strings"
)

// StubGenerator is an offline Generator. Fn, when set, produces every
// response; otherwise Responses is looked up by request purpose, falling
// back to Default.
type StubGenerator struct {
	Fn        func(req Request) (string, error)
	Responses map[string]string
	Default   string
}

// NewOfflineGenerator returns a stub that answers every purpose with a
// well-formed but uninformative response, for dry runs without API keys.
func NewOfflineGenerator() *StubGenerator {
	return &StubGenerator{
		Responses: map[string]string{
			"pal": "```python\nanswer = 0\n```",
			"cot": "No model configured.\n#### 0",
			"qa":  "[Hop 1]\nNo model configured.\nFINAL ANSWER: unknown",
		},
		Default: "FINAL ANSWER: unknown",
	}
}

// Generate implements Generator.
func (s *StubGenerator) Generate(_ context.Context, req Request) (string, error) {
	if s.Fn != nil {
		return s.Fn(req)
	}
	if r, ok := s.Responses[strings.ToLower(req.Purpose)]; ok {
		return r, nil
	}
	return s.Default, nil
}

var _ Generator = (*StubGenerator)(nil)
