package solver

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/sandbox"
	"github.com/sells-group/answer-engine/pkg/llm"
)

// ErrAllAttemptsFailed is recorded on a PAL candidate when no attempt
// produced an executable program with an answer.
var ErrAllAttemptsFailed = eris.New("solver: all pal attempts failed")

// PALConfig controls the program-synthesis path.
type PALConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
	Params      llm.Params
}

// PALSolver asks the model for a program and runs it in the sandbox.
type PALSolver struct {
	gen     llm.Generator
	exec    sandbox.Executor
	cfg     PALConfig
	metrics *metrics.Metrics
}

// NewPALSolver creates a PALSolver. m may be nil.
func NewPALSolver(gen llm.Generator, exec sandbox.Executor, cfg PALConfig, m *metrics.Metrics) *PALSolver {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 2
	}
	return &PALSolver{gen: gen, exec: exec, cfg: cfg, metrics: m}
}

// Solve returns the PAL candidate and the program that produced it. A
// successful candidate always has confidence 1.
func (s *PALSolver) Solve(ctx context.Context, question string, fewShots []string) (model.CandidateAnswer, string) {
	log := zap.L().With(zap.String("path", "pal"))
	req := llm.Request{
		Purpose: "pal",
		System:  palSystemPrompt,
		Prompt:  palPrompt(question, fewShots),
		Params:  s.cfg.Params,
	}

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 && s.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return failed(ctx.Err()), ""
			case <-time.After(s.cfg.RetryDelay):
			}
		}

		raw, err := s.gen.Generate(ctx, req)
		s.metrics.RecordGeneration(req.Purpose, err)
		if err != nil {
			log.Debug("generation failed", zap.Int("attempt", attempt), zap.Error(err))
			if ctx.Err() != nil {
				return failed(ctx.Err()), ""
			}
			continue
		}

		code := sandbox.ExtractCode(raw)
		if code == "" || !sandbox.MentionsAnswer(code) {
			log.Debug("program has no answer binding", zap.Int("attempt", attempt))
			continue
		}

		value, err := s.exec.Execute(ctx, code)
		s.metrics.RecordSandbox(err)
		if err != nil {
			log.Debug("sandbox execution failed", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		return model.CandidateAnswer{Value: value, Succeeded: true, Confidence: 1}, code
	}

	return failed(ErrAllAttemptsFailed), ""
}

func failed(err error) model.CandidateAnswer {
	return model.CandidateAnswer{Error: err.Error()}
}
