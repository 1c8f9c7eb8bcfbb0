package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/sells-group/answer-engine/internal/model"
)

func init() {
	color.NoColor = true
}

func TestPrintMathSummary(t *testing.T) {
	stats := model.RunStats{
		Total:      4,
		Succeeded:  4,
		PALSuccess: 3,
		CoTSuccess: 2,
		BothAgree:  2,
		BothFail:   1,
		Methods: map[model.Method]int{
			model.MethodBothAgree: 2,
			model.MethodPALOnly:   1,
			model.MethodFallback:  1,
		},
	}

	var buf bytes.Buffer
	printMathSummary(&buf, stats)
	out := buf.String()

	assert.Contains(t, out, "Questions:    4")
	assert.Contains(t, out, "PAL success:  3 (75.0%)")
	assert.Contains(t, out, "Both agree:   2 (50.0%)")
	assert.Contains(t, out, "Coverage:     75.0%")
	assert.Contains(t, out, "both_agree")
	assert.Contains(t, out, "fallback")
	assert.NotContains(t, out, "cot_only")
	assert.NotContains(t, out, "Errors")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("both_agree")), bytes.Index(buf.Bytes(), []byte("pal_only")))
}

func TestPrintMathSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	printMathSummary(&buf, model.RunStats{})
	assert.Contains(t, buf.String(), "Coverage:     0.0%")
	assert.NotContains(t, buf.String(), "Methods")
}

func TestPrintQASummary(t *testing.T) {
	results := []model.QAResult{
		{ID: "a", Answer: "Paris", Confidence: 0.8, SelfConsistency: true},
		{ID: "b", Answer: "", Confidence: 0.2, Error: "boom"},
	}
	var buf bytes.Buffer
	printQASummary(&buf, model.RunStats{Total: 2, Succeeded: 1, Failed: 1}, results)
	out := buf.String()

	assert.Contains(t, out, "Answered:         1 (50.0%)")
	assert.Contains(t, out, "Self-consistency: 1")
	assert.Contains(t, out, "Mean confidence:  0.50")
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Kind:      model.RunKindMath,
			Input:     "data/math/test.csv",
			Status:    model.RunStatusComplete,
			Stats:     &model.RunStats{Total: 10, Succeeded: 9},
			CreatedAt: now,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Kind:      model.RunKindQA,
			Input:     "data/qa/test.csv",
			Status:    model.RunStatusRunning,
			CreatedAt: now.Add(-time.Hour),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()

	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "math")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "running")
	assert.Contains(t, out, "2025-06-15 10:30")
	assert.Contains(t, out, "data/qa/test.csv")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}

func TestPct(t *testing.T) {
	assert.Equal(t, 0.0, pct(1, 0))
	assert.InDelta(t, 33.33, pct(1, 3), 0.01)
}
