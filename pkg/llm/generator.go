// Package llm defines the text generation contract and its provider
// backends.
package llm

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Params are the sampling knobs sent with a generation request.
type Params struct {
	Temperature float64  `json:"temperature" mapstructure:"temperature"`
	TopP        float64  `json:"top_p" mapstructure:"top_p"`
	MaxTokens   int      `json:"max_tokens" mapstructure:"max_tokens"`
	Stop        []string `json:"stop,omitempty" mapstructure:"stop"`
}

// Request is a single-turn generation request.
type Request struct {
	// Purpose labels the call in logs and metrics, e.g. "pal" or "cot".
	Purpose string
	System  string
	Prompt  string
	Params  Params
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ErrNoSamples is returned by Sample when every sample failed.
var ErrNoSamples = eris.New("llm: no samples succeeded")

// Sample draws n independent completions concurrently. Failed or empty
// samples are dropped, so fewer than n texts may be returned; an error is
// returned only when none succeeded.
func Sample(ctx context.Context, g Generator, req Request, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}

	results := make([]string, n)
	var (
		mu      sync.Mutex
		lastErr error
	)
	eg, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		eg.Go(func() error {
			text, err := g.Generate(gctx, req)
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				return nil // one failed sample must not cancel the others
			}
			results[i] = text
			return nil
		})
	}
	_ = eg.Wait()

	out := make([]string, 0, n)
	for _, r := range results {
		if r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		if lastErr == nil {
			return nil, ErrNoSamples
		}
		return nil, eris.Wrap(lastErr, "llm: sample")
	}
	return out, nil
}
