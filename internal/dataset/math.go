package dataset

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/model"
)

// LoadQuestions reads the question column of a table, in row order,
// skipping blank cells.
func (s *Source) LoadQuestions(ctx context.Context, location string) ([]string, error) {
	t, err := s.ReadTable(ctx, location)
	if err != nil {
		return nil, err
	}
	if err := t.Require("question"); err != nil {
		return nil, err
	}
	var out []string
	for i := range t.Rows {
		if q := strings.TrimSpace(t.Get(i, "question")); q != "" {
			out = append(out, q)
		}
	}
	zap.L().Info("dataset: loaded questions", zap.String("source", location), zap.Int("rows", len(out)))
	return out, nil
}

// LoadSolved reads question and answer columns, skipping rows missing
// either.
func (s *Source) LoadSolved(ctx context.Context, location string) ([]model.SolvedExample, error) {
	t, err := s.ReadTable(ctx, location)
	if err != nil {
		return nil, err
	}
	if err := t.Require("question", "answer"); err != nil {
		return nil, err
	}
	var out []model.SolvedExample
	for i := range t.Rows {
		q := strings.TrimSpace(t.Get(i, "question"))
		a := strings.TrimSpace(t.Get(i, "answer"))
		if q == "" || a == "" {
			continue
		}
		out = append(out, model.SolvedExample{Question: q, Answer: a})
	}
	zap.L().Info("dataset: loaded solved examples", zap.String("source", location), zap.Int("rows", len(out)))
	return out, nil
}
