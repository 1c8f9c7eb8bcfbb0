// Package retrieval finds solved examples similar to a question.
package retrieval

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/index"
	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/pattern"
	"github.com/sells-group/answer-engine/pkg/embed"
)

// PatternIndex is the index of worked multi-hop examples.
type PatternIndex = index.Index[model.ReasoningPattern]

// Retriever returns reasoning patterns from the same category as a
// question, most similar first.
type Retriever struct {
	emb     embed.Embedder
	idx     *PatternIndex
	metrics *metrics.Metrics
}

// NewRetriever creates a Retriever. m may be nil.
func NewRetriever(emb embed.Embedder, idx *PatternIndex, m *metrics.Metrics) *Retriever {
	return &Retriever{emb: emb, idx: idx, metrics: m}
}

// Search embeds question and returns up to k patterns from category c. A
// question that embeds to the zero vector is a miss: no hits, no error.
func (r *Retriever) Search(ctx context.Context, question string, c model.Category, k int) ([]index.Hit[model.ReasoningPattern], error) {
	vec, err := r.emb.Embed(ctx, question)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: embed query")
	}
	if index.IsZero(vec) {
		zap.L().Warn("retrieval: zero query embedding", zap.String("category", c.Key()))
		r.metrics.RecordRetrievalMiss("zero_vector")
		return []index.Hit[model.ReasoningPattern]{}, nil
	}
	return r.SearchVector(vec, c, k)
}

// SearchVector searches with a precomputed query vector.
func (r *Retriever) SearchVector(vec []float32, c model.Category, k int) ([]index.Hit[model.ReasoningPattern], error) {
	hits, err := r.idx.Search(vec, c, k)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: search")
	}
	if len(hits) == 0 && k > 0 {
		r.metrics.RecordRetrievalMiss("empty_category")
	}
	return hits, nil
}

// BuildPatternIndex extracts a reasoning pattern from every training
// example with a question, embeds the questions and indexes them by
// category. Examples whose question embeds to the zero vector are left out.
func BuildPatternIndex(ctx context.Context, emb embed.Embedder, examples []model.QAExample) (*PatternIndex, error) {
	var patterns []model.ReasoningPattern
	var questions []string
	for _, ex := range examples {
		if strings.TrimSpace(ex.Question) == "" {
			continue
		}
		p := pattern.Extract(ex.ID, ex.Question, ex.Category(), ex.SupportingFacts, ex.Context, ex.Answer)
		patterns = append(patterns, p)
		questions = append(questions, ex.Question)
	}
	if len(patterns) == 0 {
		return nil, eris.New("retrieval: no usable training examples")
	}

	vecs, err := emb.EmbedBatch(ctx, questions)
	if err != nil {
		return nil, eris.Wrap(err, "retrieval: embed training questions")
	}

	indexed := make([]model.IndexedExample[model.ReasoningPattern], 0, len(patterns))
	kept := make([][]float32, 0, len(patterns))
	for i, p := range patterns {
		if index.IsZero(vecs[i]) {
			continue
		}
		indexed = append(indexed, model.IndexedExample[model.ReasoningPattern]{
			ID:        p.QuestionID,
			QueryText: p.Question,
			Category:  p.Category,
			Payload:   p,
		})
		kept = append(kept, vecs[i])
	}
	if len(indexed) == 0 {
		return nil, eris.New("retrieval: every training question embedded to zero")
	}

	idx := index.New[model.ReasoningPattern](emb.Dimension(), emb.Model())
	if err := idx.Build(indexed, kept); err != nil {
		return nil, eris.Wrap(err, "retrieval: build pattern index")
	}
	zap.L().Info("retrieval: pattern index built",
		zap.Int("patterns", len(indexed)),
		zap.Int("skipped", len(patterns)-len(indexed)),
		zap.Int("categories", len(idx.Categories())),
	)
	idx.SetSource(Fingerprint(examples))
	return idx, nil
}
