// Package reasoning answers multi-hop questions by steering the model with
// retrieved worked examples of the same category.
package reasoning

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/answer-engine/internal/answer"
	"github.com/sells-group/answer-engine/internal/index"
	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/pkg/llm"
)

// Tier holds the generation settings for one difficulty level.
type Tier struct {
	Params   llm.Params
	Examples int
}

// Config controls the engine.
type Config struct {
	// Tiers maps a level to its settings. Unknown levels use the hard tier.
	Tiers map[string]Tier
	// SelfConsistency samples hard questions several times and votes.
	SelfConsistency bool
	Samples         int
	// UseHints lists the supporting-fact documents in the prompt when a
	// question carries them.
	UseHints bool
}

// DefaultConfig returns the stock tier table.
func DefaultConfig() Config {
	return Config{
		Tiers: map[string]Tier{
			model.LevelEasy:   {Params: llm.Params{Temperature: 0.2, TopP: 0.9, MaxTokens: 800}, Examples: 2},
			model.LevelMedium: {Params: llm.Params{Temperature: 0.3, TopP: 0.9, MaxTokens: 1000}, Examples: 3},
			model.LevelHard:   {Params: llm.Params{Temperature: 0.5, TopP: 0.9, MaxTokens: 1200}, Examples: 3},
		},
		SelfConsistency: true,
		Samples:         5,
		UseHints:        true,
	}
}

// Tier returns the settings for level.
func (c Config) Tier(level string) Tier {
	if t, ok := c.Tiers[level]; ok {
		return t
	}
	return c.Tiers[model.LevelHard]
}

// PatternSearcher finds worked examples for a question.
type PatternSearcher interface {
	Search(ctx context.Context, question string, c model.Category, k int) ([]index.Hit[model.ReasoningPattern], error)
}

// Engine answers multi-hop questions.
type Engine struct {
	search  PatternSearcher
	gen     llm.Generator
	cfg     Config
	metrics *metrics.Metrics
}

// NewEngine creates an Engine. search and m may be nil; without a searcher
// prompts carry no worked examples.
func NewEngine(search PatternSearcher, gen llm.Generator, cfg Config, m *metrics.Metrics) *Engine {
	if cfg.Tiers == nil {
		cfg.Tiers = DefaultConfig().Tiers
	}
	return &Engine{search: search, gen: gen, cfg: cfg, metrics: m}
}

// Answer answers one question. Failures are reported in the result, never
// as a Go error.
func (e *Engine) Answer(ctx context.Context, q model.QAExample) model.QAResult {
	start := time.Now()
	res := model.QAResult{ID: q.ID, Question: q.Question, SupportingFacts: []model.FactRef{}}

	if strings.TrimSpace(q.Question) == "" {
		res.Reasoning = "Invalid question"
		return res
	}
	if len(q.Context) == 0 {
		res.Reasoning = "No context provided"
		return res
	}
	if q.Type == "" {
		q.Type = model.TypeBridge
	}
	if q.Level == "" {
		q.Level = model.LevelMedium
	}

	log := zap.L().With(zap.String("id", q.ID), zap.String("category", q.Category().Key()))
	tier := e.cfg.Tier(q.Level)
	examples := e.retrieve(ctx, q, tier.Examples, log)
	res.ExamplesUsed = len(examples)

	var hint []string
	if e.cfg.UseHints {
		hint = HintTitles(q.SupportingFacts)
	}
	req := llm.Request{
		Purpose: "qa",
		Prompt:  BuildPrompt(q.Question, q.Context, q.Type, examples, hint),
		Params:  tier.Params,
	}

	var err error
	if e.cfg.SelfConsistency && q.Level == model.LevelHard && e.cfg.Samples > 1 {
		res.SelfConsistency = true
		err = e.sampleAndVote(ctx, req, &res)
	} else {
		err = e.generateOnce(ctx, req, &res)
	}
	e.metrics.RecordGeneration(req.Purpose, err)
	if err != nil {
		log.Error("generation failed", zap.Error(err))
		res.Reasoning = "Error: " + err.Error()
		res.Error = err.Error()
		e.metrics.RecordQuestion("qa", "error", 0, time.Since(start))
		return res
	}

	res.SupportingFacts = SupportingFacts(res.Reasoning)
	res.Confidence = Confidence(res.Reasoning)
	e.metrics.RecordQuestion("qa", "ok", res.Confidence, time.Since(start))
	return res
}

func (e *Engine) retrieve(ctx context.Context, q model.QAExample, k int, log *zap.Logger) []model.ReasoningPattern {
	if e.search == nil || k <= 0 {
		return nil
	}
	hits, err := e.search.Search(ctx, q.Question, q.Category(), k)
	if err != nil {
		log.Warn("retrieval failed, prompting without examples", zap.Error(err))
		e.metrics.RecordRetrievalMiss("error")
		return nil
	}
	out := make([]model.ReasoningPattern, len(hits))
	for i, h := range hits {
		out[i] = h.Example.Payload
	}
	return out
}

func (e *Engine) generateOnce(ctx context.Context, req llm.Request, res *model.QAResult) error {
	text, err := e.gen.Generate(ctx, req)
	if err != nil {
		return eris.Wrap(err, "reasoning: generate")
	}
	res.Reasoning = text
	res.Answer, _ = ExtractAnswer(text)
	return nil
}

func (e *Engine) sampleAndVote(ctx context.Context, req llm.Request, res *model.QAResult) error {
	responses, err := llm.Sample(ctx, e.gen, req, e.cfg.Samples)
	if err != nil {
		return eris.Wrap(err, "reasoning: self-consistency")
	}
	var answers []string
	for _, r := range responses {
		if a, ok := ExtractAnswer(r); ok {
			answers = append(answers, a)
		}
	}
	res.Reasoning = responses[0]
	res.Answer, _, _ = answer.Vote(answers)
	return nil
}

// AnswerBatch answers questions with at most concurrency in flight. Results
// are in input order. onDone, when set, is called after each question.
func (e *Engine) AnswerBatch(ctx context.Context, questions []model.QAExample, concurrency int, onDone func(i int, r model.QAResult)) ([]model.QAResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]model.QAResult, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, q := range questions {
		g.Go(func() error {
			results[i] = e.Answer(gctx, q)
			if onDone != nil {
				onDone(i, results[i])
			}
			return nil // don't abort batch
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, eris.Wrap(err, "reasoning: batch")
	}
	return results, nil
}

// HintTitles returns the distinct document titles of facts, sorted.
func HintTitles(facts []model.FactRef) []string {
	seen := make(map[string]bool)
	var titles []string
	for _, f := range facts {
		if f.Title != "" && !seen[f.Title] {
			seen[f.Title] = true
			titles = append(titles, f.Title)
		}
	}
	sort.Strings(titles)
	return titles
}

// Tally summarizes a batch of results. A result counts as succeeded when
// it has an answer and no error.
func Tally(results []model.QAResult) model.RunStats {
	stats := model.RunStats{Total: len(results)}
	for _, r := range results {
		if r.Error == "" && r.Answer != "" {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
	return stats
}
