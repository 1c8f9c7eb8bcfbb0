// Package solver answers math word problems by cross-checking a generated
// program against sampled chain-of-thought reasoning.
package solver

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/answer-engine/internal/answer"
	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/verify"
)

// FewShotSource returns formatted solved examples similar to a question.
type FewShotSource interface {
	Retrieve(ctx context.Context, question string, k int) ([]string, error)
}

// Pipeline solves one question end to end: retrieve, generate both
// candidates, reconcile and normalize.
type Pipeline struct {
	fewShots FewShotSource
	k        int
	pal      *PALSolver
	cot      *CoTSolver
	verifier *verify.Verifier
	metrics  *metrics.Metrics
}

// NewPipeline wires a pipeline. fewShots and m may be nil.
func NewPipeline(fewShots FewShotSource, k int, pal *PALSolver, cot *CoTSolver, verifier *verify.Verifier, m *metrics.Metrics) *Pipeline {
	if verifier == nil {
		verifier = verify.New()
	}
	return &Pipeline{fewShots: fewShots, k: k, pal: pal, cot: cot, verifier: verifier, metrics: m}
}

// Solve answers one question. Generation and sandbox failures are absorbed
// into the trace; the error is non-nil only when ctx ends.
func (p *Pipeline) Solve(ctx context.Context, question string) (model.MathTrace, error) {
	start := time.Now()
	trace := model.MathTrace{Question: question}

	var examples []string
	if p.fewShots != nil && p.k > 0 {
		var err error
		examples, err = p.fewShots.Retrieve(ctx, question, p.k)
		if err != nil {
			zap.L().Warn("few-shot retrieval failed, continuing without examples", zap.Error(err))
			p.metrics.RecordRetrievalMiss("error")
			examples = nil
		}
	}

	// Both paths always run to completion; neither returns an error.
	var g errgroup.Group
	g.Go(func() error {
		trace.PAL, trace.PALCode = p.pal.Solve(ctx, question, examples)
		return nil
	})
	g.Go(func() error {
		trace.CoT, trace.CoTSamples = p.cot.Solve(ctx, question, examples)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return trace, eris.Wrap(err, "solver: solve")
	}

	trace.Verification = p.verifier.Reconcile(question, trace.PAL, trace.CoT)
	trace.FinalAnswer = answer.Normalize(trace.Verification.FinalAnswer, question)

	p.metrics.RecordCandidate("pal", trace.PAL.Succeeded)
	p.metrics.RecordCandidate("cot", trace.CoT.Succeeded)
	p.metrics.RecordReconciliation(trace.Verification.Method)
	p.metrics.RecordQuestion("math", "ok", trace.Verification.Confidence, time.Since(start))
	return trace, nil
}

// SolveBatch solves questions with at most concurrency in flight. Results
// are in input order. A question that fails gets a fallback trace and the
// batch continues. onDone, when set, is called after each question.
func (p *Pipeline) SolveBatch(ctx context.Context, questions []string, concurrency int, onDone func(i int, t model.MathTrace)) ([]model.MathTrace, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	traces := make([]model.MathTrace, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range questions {
		g.Go(func() error {
			t, err := p.Solve(gctx, q)
			if err != nil {
				zap.L().Error("question failed", zap.Int("index", i), zap.Error(err))
				t = fallbackTrace(q, err)
				p.metrics.RecordQuestion("math", "error", 0, 0)
			}
			traces[i] = t
			if onDone != nil {
				onDone(i, t)
			}
			return nil // don't abort batch
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return traces, eris.Wrap(err, "solver: batch")
	}
	return traces, nil
}

func fallbackTrace(question string, err error) model.MathTrace {
	return model.MathTrace{
		Question: question,
		Verification: model.ReconciliationResult{
			FinalAnswer: model.FallbackAnswer,
			Method:      model.MethodFallback,
		},
		FinalAnswer: model.FallbackAnswer,
		Error:       err.Error(),
	}
}

// Tally summarizes a batch of traces.
func Tally(traces []model.MathTrace) model.RunStats {
	stats := model.RunStats{Total: len(traces), Methods: make(map[model.Method]int)}
	for _, t := range traces {
		if t.Error != "" {
			stats.Failed++
		} else {
			stats.Succeeded++
		}
		if t.PAL.Succeeded {
			stats.PALSuccess++
		}
		if t.CoT.Succeeded {
			stats.CoTSuccess++
		}
		if t.Verification.Method == model.MethodBothAgree {
			stats.BothAgree++
		}
		if !t.PAL.Succeeded && !t.CoT.Succeeded {
			stats.BothFail++
		}
		stats.Methods[t.Verification.Method]++
	}
	return stats
}
