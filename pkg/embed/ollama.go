package embed

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rotisserie/eris"

	"github.com/sells-group/answer-engine/internal/resilience"
)

// OllamaEmbedder embeds text with a local Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	batcher
}

// NewOllamaEmbedder creates an embedder for model served at baseURL.
func NewOllamaEmbedder(baseURL, model string, dim, chunkSize int) (*OllamaEmbedder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "embed: parse ollama url %q", baseURL)
	}
	e := &OllamaEmbedder{
		client: api.NewClient(u, &http.Client{Timeout: 2 * time.Minute}),
		model:  model,
	}
	e.batcher = batcher{dim: dim, chunkSize: chunkSize, call: e.call}
	return e, nil
}

func (e *OllamaEmbedder) call(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.Embed(ctx, &api.EmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		wrapped := eris.Wrap(err, "embed: ollama")
		var se api.StatusError
		if errors.As(err, &se) && resilience.IsTransientHTTPStatus(se.StatusCode) {
			return nil, resilience.NewTransientError(wrapped, se.StatusCode)
		}
		return nil, wrapped
	}
	return resp.Embeddings, nil
}

// Embed implements Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(ctx, text)
}

// EmbedBatch implements Embedder.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.embedBatch(ctx, texts)
}

// Dimension implements Embedder.
func (e *OllamaEmbedder) Dimension() int { return e.dim }

// Model implements Embedder.
func (e *OllamaEmbedder) Model() string { return e.model }

var _ Embedder = (*OllamaEmbedder)(nil)
