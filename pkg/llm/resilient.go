package llm

import (
	"context"

	"github.com/sells-group/answer-engine/internal/resilience"
)

// RetryObserver is notified of each rate-limited attempt.
type RetryObserver func(purpose string)

type resilientGenerator struct {
	next     Generator
	provider string
	retry    resilience.RetryConfig
	limiter  *resilience.AdaptiveLimiter
	observe  RetryObserver
}

// WithResilience wraps g with adaptive rate limiting and bounded
// exponential-backoff retries for rate-limited errors. Other errors are
// returned on the first failure. limiter and observe may be nil.
func WithResilience(g Generator, provider string, retry resilience.RetryConfig, limiter *resilience.AdaptiveLimiter, observe RetryObserver) Generator {
	return &resilientGenerator{next: g, provider: provider, retry: retry, limiter: limiter, observe: observe}
}

func (r *resilientGenerator) Generate(ctx context.Context, req Request) (string, error) {
	cfg := r.retry
	cfg.ShouldRetry = resilience.IsRateLimited
	logRetry := resilience.RetryLogger(r.provider, req.Purpose)
	cfg.OnRetry = func(attempt int, err error) {
		logRetry(attempt, err)
		if r.observe != nil {
			r.observe(req.Purpose)
		}
	}

	return resilience.DoVal(ctx, cfg, func(ctx context.Context) (string, error) {
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		text, err := r.next.Generate(ctx, req)
		if r.limiter != nil {
			switch {
			case err == nil:
				r.limiter.OnSuccess()
			case resilience.IsRateLimited(err):
				r.limiter.OnRateLimit()
			}
		}
		return text, err
	})
}
