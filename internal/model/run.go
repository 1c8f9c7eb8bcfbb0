package model

import (
	"encoding/json"
	"time"
)

// RunKind identifies which pipeline produced a run.
type RunKind string

// Run kinds.
const (
	RunKindMath RunKind = "math"
	RunKindQA   RunKind = "qa"
)

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

// Run statuses.
const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunStats summarizes a completed batch.
type RunStats struct {
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	PALSuccess int            `json:"pal_success,omitempty"`
	CoTSuccess int            `json:"cot_success,omitempty"`
	BothAgree  int            `json:"both_agree,omitempty"`
	BothFail   int            `json:"both_fail,omitempty"`
	Methods    map[Method]int `json:"methods,omitempty"`
}

// Coverage is the fraction of questions where at least one path succeeded.
func (s RunStats) Coverage() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Total-s.BothFail) / float64(s.Total)
}

// Run is one batch execution over an input file.
type Run struct {
	ID        string    `json:"id"`
	Kind      RunKind   `json:"kind"`
	Input     string    `json:"input"`
	Status    RunStatus `json:"status"`
	Stats     *RunStats `json:"stats,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Prediction is one answered question within a run.
type Prediction struct {
	ID         string          `json:"id"`
	RunID      string          `json:"run_id"`
	Position   int             `json:"position"`
	QuestionID string          `json:"question_id,omitempty"`
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Method     string          `json:"method,omitempty"`
	Confidence float64         `json:"confidence"`
	Trace      json.RawMessage `json:"trace,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
