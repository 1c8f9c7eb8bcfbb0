package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/config"
	"github.com/sells-group/answer-engine/internal/dataset"
	"github.com/sells-group/answer-engine/internal/index"
	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/reasoning"
	"github.com/sells-group/answer-engine/internal/resilience"
	"github.com/sells-group/answer-engine/internal/retrieval"
	"github.com/sells-group/answer-engine/internal/sandbox"
	"github.com/sells-group/answer-engine/internal/solver"
	"github.com/sells-group/answer-engine/internal/store"
	"github.com/sells-group/answer-engine/internal/verify"
	anthropicpkg "github.com/sells-group/answer-engine/pkg/anthropic"
	"github.com/sells-group/answer-engine/pkg/embed"
	"github.com/sells-group/answer-engine/pkg/llm"
)

// appEnv holds the shared clients a command needs.
type appEnv struct {
	Config  *config.Config
	Store   store.Store
	Metrics *metrics.Metrics
	Gen     llm.Generator
	Emb     embed.Embedder
	Source  *dataset.Source
}

// Close releases the store.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode and builds the clients it needs. The
// store is opened only when withStore is set.
func initEnv(ctx context.Context, c *config.Config, mode string, withStore bool) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{
		Config:  c,
		Metrics: metrics.New(),
		Source:  newSource(c),
	}

	emb, err := newEmbedder(c)
	if err != nil {
		return nil, err
	}
	env.Emb = emb

	if mode != "index" {
		gen, err := newGenerator(c, env.Metrics)
		if err != nil {
			return nil, err
		}
		env.Gen = gen
	}

	if withStore {
		st, err := store.Open(ctx, store.Config(c.Store))
		if err != nil {
			return nil, eris.Wrap(err, "open store")
		}
		env.Store = st
	}
	return env, nil
}

func newSource(c *config.Config) *dataset.Source {
	return dataset.NewSource(dataset.SourceOptions{
		Timeout:   time.Duration(c.Dataset.TimeoutSecs) * time.Second,
		UserAgent: c.Dataset.UserAgent,
		Retry:     resilience.FromSettings(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs),
	})
}

// newGenerator builds the configured provider wrapped with rate limiting
// and rate-limit retries.
func newGenerator(c *config.Config, m *metrics.Metrics) (llm.Generator, error) {
	var (
		base     llm.Generator
		provider = c.LLM.Provider
	)
	switch provider {
	case "offline":
		return llm.NewOfflineGenerator(), nil
	case "openai":
		base = llm.NewOpenAIGenerator(c.LLM.APIKey, c.LLM.BaseURL, c.LLM.Model)
	case "anthropic":
		base = llm.NewAnthropicGenerator(anthropicpkg.NewClient(c.Anthropic.Key), c.Anthropic.Model)
	default:
		return nil, eris.Errorf("unsupported llm provider %q", provider)
	}

	retry := resilience.FromSettings(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
	limiter := resilience.NewAdaptiveLimiter(c.Rate.RequestsPerSecond, c.Rate.Burst)
	observe := func(string) { m.RecordRetry(provider, "rate_limited") }
	return llm.WithResilience(base, provider, retry, limiter, observe), nil
}

func newEmbedder(c *config.Config) (embed.Embedder, error) {
	e := c.Embedding
	switch e.Provider {
	case "hash":
		return embed.NewHashEmbedder(e.Dimension), nil
	case "ollama":
		return embed.NewOllamaEmbedder(e.BaseURL, e.Model, e.Dimension, e.ChunkSize)
	case "openai":
		key := e.APIKey
		if key == "" {
			key = c.LLM.APIKey
		}
		return embed.NewOpenAIEmbedder(key, e.BaseURL, e.Model, e.Dimension, e.ChunkSize), nil
	default:
		return nil, eris.Errorf("unsupported embedding provider %q", e.Provider)
	}
}

// loadFewShots builds the few-shot retriever from the math training table,
// or returns nil when no training table is configured.
func (e *appEnv) loadFewShots(ctx context.Context, trainPath string) (solver.FewShotSource, error) {
	if trainPath == "" {
		zap.L().Warn("no math training set configured, solving without few-shot examples")
		return nil, nil
	}
	training, err := e.Source.LoadSolved(ctx, trainPath)
	if err != nil {
		zap.L().Warn("math training set unavailable, solving without few-shot examples",
			zap.String("path", trainPath), zap.Error(err))
		return nil, nil
	}
	fs, err := retrieval.NewFewShotRetriever(ctx, e.Emb, training, e.Config.Index.FewShotDir, e.Metrics)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

// mathPipeline wires the PAL and CoT solvers behind few-shot retrieval.
func (e *appEnv) mathPipeline(ctx context.Context, trainPath string) (*solver.Pipeline, error) {
	fewShots, err := e.loadFewShots(ctx, trainPath)
	if err != nil {
		return nil, err
	}
	mc := e.Config.Math
	exec := sandbox.NewPythonExecutor(mc.PAL.Python, mc.PAL.Timeout)
	pal := solver.NewPALSolver(e.Gen, exec, solver.PALConfig{
		MaxAttempts: mc.PAL.MaxRetries,
		RetryDelay:  mc.PAL.RetryDelay,
		Params:      llm.Params{Temperature: mc.PAL.Temperature, MaxTokens: mc.PAL.MaxTokens},
	}, e.Metrics)
	cot := solver.NewCoTSolver(e.Gen, solver.CoTConfig{
		Samples: mc.CoT.NumSamples,
		Params:  llm.Params{Temperature: mc.CoT.Temperature, MaxTokens: mc.CoT.MaxTokens},
	}, e.Metrics)
	v := &verify.Verifier{PreferPALForArithmetic: mc.Verification.PreferPALForArithmetic}
	return solver.NewPipeline(fewShots, mc.FewShot.K, pal, cot, v, e.Metrics), nil
}

// patternIndex loads the cached QA pattern index, rebuilding it from the
// training table when the cache is missing, invalid or built from another
// version of the table.
func (e *appEnv) patternIndex(ctx context.Context, trainPath string, force bool) (*retrieval.PatternIndex, bool, error) {
	if trainPath == "" {
		return nil, false, eris.New("no qa training set configured (qa.train_path)")
	}
	training, err := e.Source.LoadQA(ctx, trainPath, dataset.QAOptions{})
	if err != nil {
		return nil, false, eris.Wrap(err, "load qa training set")
	}
	rebuild := func() (*retrieval.PatternIndex, error) {
		e.Metrics.RecordIndexRebuild("qa")
		return retrieval.BuildPatternIndex(ctx, e.Emb, training)
	}
	if force {
		idx, err := rebuild()
		if err != nil {
			return nil, false, err
		}
		if err := idx.Save(e.Config.Index.QADir); err != nil {
			return nil, false, eris.Wrap(err, "save qa index")
		}
		return idx, true, nil
	}
	return index.LoadOrRebuild(e.Config.Index.QADir, e.Emb.Dimension(), e.Emb.Model(), rebuild,
		index.ExpectSource[model.ReasoningPattern](retrieval.Fingerprint(training)))
}

// qaEngine wires the reasoning engine behind pattern retrieval.
func (e *appEnv) qaEngine(ctx context.Context, trainPath string) (*reasoning.Engine, error) {
	idx, _, err := e.patternIndex(ctx, trainPath, false)
	if err != nil {
		return nil, eris.Wrap(err, "qa pattern index")
	}
	r := retrieval.NewRetriever(e.Emb, idx, e.Metrics)
	return reasoning.NewEngine(r, e.Gen, reasoningConfig(e.Config.QA), e.Metrics), nil
}

func reasoningConfig(qa config.QAConfig) reasoning.Config {
	rc := reasoning.Config{
		Tiers:           make(map[string]reasoning.Tier, len(qa.Tiers)),
		SelfConsistency: qa.SelfConsistency,
		Samples:         qa.Samples,
		UseHints:        qa.UseHints,
	}
	for level, t := range qa.Tiers {
		rc.Tiers[level] = reasoning.Tier{
			Params:   llm.Params{Temperature: t.Temperature, TopP: t.TopP, MaxTokens: t.MaxTokens, Stop: t.Stop},
			Examples: t.NumExamples,
		}
	}
	return rc
}

// recordRun persists a finished batch: predictions first, then the run's
// final status. Failures are logged; the batch output is already written.
func recordRun(ctx context.Context, st store.Store, run *model.Run, preds []model.Prediction, stats model.RunStats, batchErr error) {
	if st == nil || run == nil {
		return
	}
	// An interrupted batch is still recorded.
	ctx = context.WithoutCancel(ctx)
	log := zap.L().With(zap.String("run_id", run.ID))
	if err := st.SavePredictions(ctx, run.ID, preds); err != nil {
		log.Error("save predictions failed", zap.Error(err))
	}
	if batchErr != nil {
		if err := st.FailRun(ctx, run.ID, batchErr.Error()); err != nil {
			log.Error("mark run failed", zap.Error(err))
		}
		return
	}
	if err := st.CompleteRun(ctx, run.ID, stats); err != nil {
		log.Error("complete run failed", zap.Error(err))
	}
}
