package solver

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/answer"
	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/pkg/llm"
)

// CoTConfig controls the chain-of-thought path.
type CoTConfig struct {
	Samples int
	Params  llm.Params
}

// CoTSolver samples several reasoning chains and votes on their answers.
type CoTSolver struct {
	gen       llm.Generator
	cfg       CoTConfig
	extractor answer.Extractor
	metrics   *metrics.Metrics
}

// NewCoTSolver creates a CoTSolver. m may be nil.
func NewCoTSolver(gen llm.Generator, cfg CoTConfig, m *metrics.Metrics) *CoTSolver {
	if cfg.Samples <= 0 {
		cfg.Samples = 3
	}
	return &CoTSolver{gen: gen, cfg: cfg, extractor: answer.MathExtractor(), metrics: m}
}

// Solve returns the voted candidate and the raw reasoning chains. The
// candidate's confidence is the winning answer's share of the extracted
// answers.
func (s *CoTSolver) Solve(ctx context.Context, question string, fewShots []string) (model.CandidateAnswer, []string) {
	req := llm.Request{
		Purpose: "cot",
		System:  cotSystemPrompt,
		Prompt:  cotPrompt(question, fewShots),
		Params:  s.cfg.Params,
	}

	samples, err := llm.Sample(ctx, s.gen, req, s.cfg.Samples)
	s.metrics.RecordGeneration(req.Purpose, err)
	if err != nil {
		zap.L().Debug("cot sampling failed", zap.Error(err))
		return failed(err), nil
	}

	extracted := make([]string, 0, len(samples))
	for _, text := range samples {
		if v, ok := s.extractor.Extract(text); ok {
			extracted = append(extracted, v)
		}
	}

	value, fraction, ok := answer.Vote(extracted)
	if !ok {
		return model.CandidateAnswer{Error: "no answer extracted"}, samples
	}
	return model.CandidateAnswer{Value: value, Succeeded: true, Confidence: fraction}, samples
}
