// Package embed defines the text embedding contract and its provider
// backends.
package embed

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// Embedder maps text to fixed-dimension vectors. Blank input yields the
// zero vector, which callers treat as "skip".
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Model() string
}

// ErrDimension is returned when a provider answers with vectors of the
// wrong length.
var ErrDimension = eris.New("embed: unexpected dimension")

// embedFunc embeds a chunk of non-blank texts.
type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// batcher implements the shared EmbedBatch contract on top of a provider
// call: blank texts become zero vectors, the rest are sent in chunks, and
// every returned vector is checked against the configured dimension.
type batcher struct {
	dim       int
	chunkSize int
	call      embedFunc
}

func (b batcher) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		pending []string
		slots   []int
	)
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, b.dim)
			continue
		}
		pending = append(pending, t)
		slots = append(slots, i)
	}

	size := b.chunkSize
	if size <= 0 {
		size = len(pending)
	}
	for start := 0; start < len(pending); start += size {
		end := min(start+size, len(pending))
		vecs, err := b.call(ctx, pending[start:end])
		if err != nil {
			return nil, err
		}
		if len(vecs) != end-start {
			return nil, eris.Errorf("embed: got %d vectors for %d texts", len(vecs), end-start)
		}
		for j, v := range vecs {
			if len(v) != b.dim {
				return nil, eris.Wrapf(ErrDimension, "embed: got %d, want %d", len(v), b.dim)
			}
			out[slots[start+j]] = v
		}
	}
	return out, nil
}

func (b batcher) embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := b.embedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
