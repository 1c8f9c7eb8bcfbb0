package retrieval

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/answer-engine/internal/index"
	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/pkg/embed"
)

// MathCategory is the single partition holding math training examples.
var MathCategory = model.Category{Type: "math", Level: "all"}

// FewShotRetriever returns formatted math training examples similar to a
// question.
type FewShotRetriever struct {
	emb     embed.Embedder
	idx     *index.Index[model.SolvedExample]
	metrics *metrics.Metrics
}

// NewFewShotRetriever loads the example index cached in cacheDir, or embeds
// training and caches it when the cache is missing, corrupt or built from a
// different training set.
func NewFewShotRetriever(ctx context.Context, emb embed.Embedder, training []model.SolvedExample, cacheDir string, m *metrics.Metrics) (*FewShotRetriever, error) {
	rebuild := func() (*index.Index[model.SolvedExample], error) {
		m.RecordIndexRebuild("math")
		return BuildFewShotIndex(ctx, emb, training)
	}
	idx, _, err := index.LoadOrRebuild(cacheDir, emb.Dimension(), emb.Model(), rebuild,
		index.ExpectSize[model.SolvedExample](len(training)),
		index.ExpectSource[model.SolvedExample](FewShotFingerprint(training)))
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: few-shot index")
	}
	return &FewShotRetriever{emb: emb, idx: idx, metrics: m}, nil
}

// BuildFewShotIndex embeds every training question into one partition.
func BuildFewShotIndex(ctx context.Context, emb embed.Embedder, training []model.SolvedExample) (*index.Index[model.SolvedExample], error) {
	questions := make([]string, len(training))
	examples := make([]model.IndexedExample[model.SolvedExample], len(training))
	for i, ex := range training {
		questions[i] = ex.Question
		examples[i] = model.IndexedExample[model.SolvedExample]{
			ID:        fmt.Sprintf("train-%d", i),
			QueryText: ex.Question,
			Category:  MathCategory,
			Payload:   ex,
		}
	}
	vecs, err := emb.EmbedBatch(ctx, questions)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: embed training questions")
	}
	idx := index.New[model.SolvedExample](emb.Dimension(), emb.Model())
	if err := idx.Build(examples, vecs); err != nil {
		return nil, eris.Wrap(err, "retrieval: build few-shot index")
	}
	idx.SetSource(FewShotFingerprint(training))
	return idx, nil
}

// Retrieve returns up to k examples formatted as "Question: q\nAnswer: a".
func (f *FewShotRetriever) Retrieve(ctx context.Context, question string, k int) ([]string, error) {
	vec, err := f.emb.Embed(ctx, question)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: embed query")
	}
	if index.IsZero(vec) {
		f.metrics.RecordRetrievalMiss("zero_vector")
		return nil, nil
	}
	hits, err := f.idx.Search(vec, MathCategory, k)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: search")
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = FormatExample(h.Example.Payload)
	}
	return out, nil
}

// FormatExample renders a solved example for a prompt.
func FormatExample(ex model.SolvedExample) string {
	return fmt.Sprintf("Question: %s\nAnswer: %s", ex.Question, ex.Answer)
}
