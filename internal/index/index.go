// Package index implements a category-partitioned cosine similarity index
// over example embeddings.
package index

import (
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/answer-engine/internal/model"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension.
var ErrDimensionMismatch = eris.New("index: dimension mismatch")

// Hit is a search result with its cosine similarity to the query.
type Hit[P any] struct {
	Example model.IndexedExample[P]
	Score   float32
}

type partition[P any] struct {
	examples []model.IndexedExample[P]
	// matrix holds the L2-normalized embeddings row-major, one row per example.
	matrix []float32
}

// Index is a read-mostly kNN index partitioned by category. Build must not
// run concurrently with Search.
type Index[P any] struct {
	dim    int
	model  string
	source string
	parts map[model.Category]*partition[P]
	order []model.Category
}

// New returns an empty index for vectors of length dim produced by the
// named embedding model.
func New[P any](dim int, embeddingModel string) *Index[P] {
	return &Index[P]{
		dim:   dim,
		model: embeddingModel,
		parts: make(map[model.Category]*partition[P]),
	}
}

// Dimension returns the vector length the index accepts.
func (x *Index[P]) Dimension() int { return x.dim }

// Model returns the embedding model the vectors came from.
func (x *Index[P]) Model() string { return x.model }

// Source returns the fingerprint of the data the index was built from, or
// "" when none was recorded.
func (x *Index[P]) Source() string { return x.source }

// SetSource records the fingerprint of the data the index was built from.
// It is persisted by Save.
func (x *Index[P]) SetSource(fingerprint string) { x.source = fingerprint }

// Categories returns the non-empty categories in first-seen order.
func (x *Index[P]) Categories() []model.Category {
	out := make([]model.Category, len(x.order))
	copy(out, x.order)
	return out
}

// Len returns the number of examples stored under c.
func (x *Index[P]) Len(c model.Category) int {
	p, ok := x.parts[c]
	if !ok {
		return 0
	}
	return len(p.examples)
}

// Size returns the total number of stored examples.
func (x *Index[P]) Size() int {
	n := 0
	for _, p := range x.parts {
		n += len(p.examples)
	}
	return n
}

// Build replaces the index contents with examples grouped by category.
// embeddings[i] belongs to examples[i]. Nothing is built if any vector has
// the wrong length.
func (x *Index[P]) Build(examples []model.IndexedExample[P], embeddings [][]float32) error {
	if len(examples) != len(embeddings) {
		return eris.Errorf("index: build: %d examples but %d embeddings", len(examples), len(embeddings))
	}
	for i, vec := range embeddings {
		if len(vec) != x.dim {
			return eris.Wrapf(ErrDimensionMismatch, "index: build: example %q has %d dims, want %d",
				examples[i].ID, len(vec), x.dim)
		}
	}

	parts := make(map[model.Category]*partition[P])
	var order []model.Category
	for i, ex := range examples {
		p, ok := parts[ex.Category]
		if !ok {
			p = &partition[P]{}
			parts[ex.Category] = p
			order = append(order, ex.Category)
		}
		ex.Embedding = cloneVector(embeddings[i])
		p.examples = append(p.examples, ex)
		p.matrix = append(p.matrix, normalized(embeddings[i])...)
	}

	x.parts = parts
	x.order = order
	return nil
}

// Search returns up to k examples from category c ordered by descending
// cosine similarity to query. Equal scores keep insertion order. An unknown
// or empty category yields no hits and no error.
func (x *Index[P]) Search(query []float32, c model.Category, k int) ([]Hit[P], error) {
	if len(query) != x.dim {
		return nil, eris.Wrapf(ErrDimensionMismatch, "index: search: query has %d dims, want %d", len(query), x.dim)
	}
	p, ok := x.parts[c]
	if !ok || len(p.examples) == 0 || k <= 0 {
		return []Hit[P]{}, nil
	}
	k = min(k, len(p.examples))

	q := normalized(query)
	hits := make([]Hit[P], len(p.examples))
	for i := range p.examples {
		row := p.matrix[i*x.dim : (i+1)*x.dim]
		hits[i] = Hit[P]{Example: p.examples[i], Score: dot(q, row)}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits[:k], nil
}
