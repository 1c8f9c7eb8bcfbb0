package llm

import (
	"context"
	"errors"
	"math"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/resilience"
)

// DefaultOpenAIBaseURL points at Groq's OpenAI-compatible endpoint.
const DefaultOpenAIBaseURL = "https://api.groq.com/openai/v1"

// OpenAIGenerator generates text through any OpenAI-compatible chat
// completions API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for model at baseURL. An empty
// baseURL uses DefaultOpenAIBaseURL.
func NewOpenAIGenerator(apiKey, baseURL, model string) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	cfg.BaseURL = baseURL
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg), model: model}
}

// Generate implements Generator.
func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	creq := openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: temperature(req.Params.Temperature),
		TopP:        float32(req.Params.TopP),
		MaxTokens:   req.Params.MaxTokens,
		Stop:        req.Params.Stop,
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return "", classifyOpenAI(eris.Wrap(err, "llm: openai chat completion"), err)
	}
	if len(resp.Choices) == 0 {
		return "", eris.New("llm: openai returned no choices")
	}
	zap.L().Debug("llm: openai completion",
		zap.String("purpose", req.Purpose),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// temperature maps 0 to the smallest positive float32, since go-openai
// omits a zero temperature and the provider would apply its default.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

func classifyOpenAI(wrapped, cause error) error {
	var apiErr *openai.APIError
	if errors.As(cause, &apiErr) && resilience.IsTransientHTTPStatus(apiErr.HTTPStatusCode) {
		return resilience.NewTransientError(wrapped, apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(cause, &reqErr) && resilience.IsTransientHTTPStatus(reqErr.HTTPStatusCode) {
		return resilience.NewTransientError(wrapped, reqErr.HTTPStatusCode)
	}
	return wrapped
}

var _ Generator = (*OpenAIGenerator)(nil)
