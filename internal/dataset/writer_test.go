package dataset

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/answer-engine/internal/model"
)

func TestWriteMathCSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMathCSV(&buf, []model.MathTrace{
		{Question: "How many, total?", FinalAnswer: "18"},
		{Question: "Second", FinalAnswer: model.FallbackAnswer},
	})
	require.NoError(t, err)
	assert.Equal(t, "question,answer\n\"How many, total?\",18\nSecond,0\n", buf.String())
}

func TestWriteQACSV_ReadsBack(t *testing.T) {
	var buf bytes.Buffer
	err := WriteQACSV(&buf, []model.QAResult{{
		ID:              "a1",
		Question:        "Who directed Ed Wood?",
		Answer:          "Tim Burton",
		SupportingFacts: []model.FactRef{{Title: "Ed Wood", SentenceIndex: 1}},
		Reasoning:       "HOP 1:\nline",
		Confidence:      0.8,
	}})
	require.NoError(t, err)

	tbl, err := ParseCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "question", "answer", "supporting_facts", "reasoning", "confidence"}, tbl.Header)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "{'title': ['Ed Wood'], 'sent_id': [1]}", tbl.Get(0, "supporting_facts"))
	assert.Equal(t, "HOP 1:\nline", tbl.Get(0, "reasoning"))
	assert.Equal(t, "0.8", tbl.Get(0, "confidence"))
	assert.Equal(t, []model.FactRef{{Title: "Ed Wood", SentenceIndex: 1}}, ParseSupportingFacts(tbl.Get(0, "supporting_facts")))
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSONL(&buf, []model.SolvedExample{{Question: "a", Answer: "1"}, {Question: "b", Answer: "2"}}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got model.SolvedExample
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, "b", got.Question)
}

func TestCreate_MakesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out", "nested", "preds.csv")
	f, err := Create(p)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = os.Stat(p)
	assert.NoError(t, err)
}
