package dataset

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/answer-engine/internal/model"
)

// Create opens path for writing, creating parent directories.
func Create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "dataset: mkdir %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: create %s", path)
	}
	return f, nil
}

// WriteMathCSV writes question,answer rows in trace order.
func WriteMathCSV(w io.Writer, traces []model.MathTrace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"question", "answer"}); err != nil {
		return eris.Wrap(err, "dataset: write header")
	}
	for _, t := range traces {
		if err := cw.Write([]string{t.Question, t.FinalAnswer}); err != nil {
			return eris.Wrap(err, "dataset: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

// WriteQACSV writes id, question, answer, supporting_facts, reasoning and
// confidence rows in result order.
func WriteQACSV(w io.Writer, results []model.QAResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "question", "answer", "supporting_facts", "reasoning", "confidence"}); err != nil {
		return eris.Wrap(err, "dataset: write header")
	}
	for _, r := range results {
		row := []string{
			r.ID,
			r.Question,
			r.Answer,
			FormatSupportingFacts(r.SupportingFacts),
			r.Reasoning,
			strconv.FormatFloat(r.Confidence, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "dataset: write row")
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush csv")
}

// WriteJSONL writes one JSON document per line.
func WriteJSONL[T any](w io.Writer, items []T) error {
	enc := json.NewEncoder(w)
	for i, item := range items {
		if err := enc.Encode(item); err != nil {
			return eris.Wrapf(err, "dataset: encode line %d", i)
		}
	}
	return nil
}
