package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/answer-engine/pkg/anthropic"
)

// AnthropicGenerator generates text through the Anthropic Messages API.
type AnthropicGenerator struct {
	client anthropic.Client
	model  string
}

// NewAnthropicGenerator wraps client for model.
func NewAnthropicGenerator(client anthropic.Client, model string) *AnthropicGenerator {
	return &AnthropicGenerator{client: client, model: model}
}

// Generate implements Generator.
func (a *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	maxTokens := int64(req.Params.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	temp := req.Params.Temperature
	mreq := anthropic.MessageRequest{
		Model:         a.model,
		MaxTokens:     maxTokens,
		System:        anthropic.SystemBlocks(req.System),
		Messages:      []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature:   &temp,
		StopSequences: req.Params.Stop,
	}
	// Some models reject temperature combined with top_p; send top_p only
	// when it narrows sampling.
	if req.Params.TopP > 0 && req.Params.TopP < 1 {
		topP := req.Params.TopP
		mreq.TopP = &topP
	}

	resp, err := a.client.CreateMessage(ctx, mreq)
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(a.model, req.Purpose)

	text := resp.Text()
	if text == "" {
		return "", eris.New("llm: anthropic returned no text")
	}
	return text, nil
}

var _ Generator = (*AnthropicGenerator)(nil)
