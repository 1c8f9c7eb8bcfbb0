package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/answer-engine/internal/metrics"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/store"
)

type stubSolver struct {
	got string
	err error
}

func (s *stubSolver) Solve(_ context.Context, q string) (model.MathTrace, error) {
	s.got = q
	if s.err != nil {
		return model.MathTrace{}, s.err
	}
	return model.MathTrace{
		Question:     q,
		FinalAnswer:  "42",
		Verification: model.ReconciliationResult{FinalAnswer: "42", Method: model.MethodBothAgree, Confidence: 0.95},
	}, nil
}

type stubAnswerer struct {
	got model.QAExample
}

func (s *stubAnswerer) Answer(_ context.Context, q model.QAExample) model.QAResult {
	s.got = q
	return model.QAResult{ID: q.ID, Question: q.Question, Answer: "Paris", Confidence: 0.7}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Config{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}

func newTestAPI(t *testing.T) (*api, *stubSolver, *stubAnswerer) {
	t.Helper()
	solver := &stubSolver{}
	answerer := &stubAnswerer{}
	return &api{
		math:    solver,
		qa:      answerer,
		store:   newTestStore(t),
		metrics: metrics.New(),
		origins: []string{"*"},
	}, solver, answerer
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServe_Health(t *testing.T) {
	a, _, _ := newTestAPI(t)
	w := do(t, a.routes(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServe_Metrics(t *testing.T) {
	a, _, _ := newTestAPI(t)
	a.metrics.RecordIndexRebuild("qa")

	w := do(t, a.routes(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qa")
}

func TestServe_Solve(t *testing.T) {
	a, solver, _ := newTestAPI(t)
	w := do(t, a.routes(), http.MethodPost, "/v1/math/solve", `{"question":"  What is 6 times 7?  "}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "What is 6 times 7?", solver.got)

	var trace model.MathTrace
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &trace))
	assert.Equal(t, "42", trace.FinalAnswer)
	assert.Equal(t, model.MethodBothAgree, trace.Verification.Method)
}

func TestServe_SolveBadRequests(t *testing.T) {
	a, _, _ := newTestAPI(t)
	h := a.routes()

	w := do(t, h, http.MethodPost, "/v1/math/solve", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")

	w = do(t, h, http.MethodPost, "/v1/math/solve", `{"question":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "question is required")
}

func TestServe_SolveInterrupted(t *testing.T) {
	a, solver, _ := newTestAPI(t)
	solver.err = context.Canceled

	w := do(t, a.routes(), http.MethodPost, "/v1/math/solve", `{"question":"1+1?"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServe_Answer(t *testing.T) {
	a, _, answerer := newTestAPI(t)
	body := `{"id":"q1","question":"Capital of France?","level":"EASY","context":[{"title":"France","sentences":["Paris is the capital."]}]}`

	w := do(t, a.routes(), http.MethodPost, "/v1/qa/answer", body)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "easy", answerer.got.Level)
	assert.Equal(t, model.TypeBridge, answerer.got.Type)
	require.Len(t, answerer.got.Context, 1)

	var res model.QAResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "q1", res.ID)
	assert.Equal(t, "Paris", res.Answer)
}

func TestServe_AnswerValidation(t *testing.T) {
	a, _, _ := newTestAPI(t)
	h := a.routes()

	w := do(t, h, http.MethodPost, "/v1/qa/answer", `{"question":"Capital of France?"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "context is required")

	w = do(t, h, http.MethodPost, "/v1/qa/answer", `{"question":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	a.qa = nil
	w = do(t, a.routes(), http.MethodPost, "/v1/qa/answer", `{"question":"x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServe_Runs(t *testing.T) {
	a, _, _ := newTestAPI(t)
	ctx := context.Background()

	run, err := a.store.CreateRun(ctx, model.RunKindMath, "test.csv")
	require.NoError(t, err)
	require.NoError(t, a.store.SavePredictions(ctx, run.ID, []model.Prediction{
		store.NewPrediction(0, "", "1+1?", "2", string(model.MethodBothAgree), 0.95, nil),
	}))
	require.NoError(t, a.store.CompleteRun(ctx, run.ID, model.RunStats{Total: 1, Succeeded: 1}))
	_, err = a.store.CreateRun(ctx, model.RunKindQA, "qa.csv")
	require.NoError(t, err)

	h := a.routes()

	w := do(t, h, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var runs []model.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	assert.Len(t, runs, 2)

	w = do(t, h, http.MethodGet, "/v1/runs?kind=math", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)

	w = do(t, h, http.MethodGet, "/v1/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/v1/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, w.Code)
	var detail struct {
		ID          string             `json:"id"`
		Status      string             `json:"status"`
		Predictions []model.Prediction `json:"predictions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
	assert.Equal(t, run.ID, detail.ID)
	assert.Equal(t, string(model.RunStatusComplete), detail.Status)
	require.Len(t, detail.Predictions, 1)
	assert.Equal(t, "2", detail.Predictions[0].Answer)
}

func TestServe_RunsEmptyAndMissing(t *testing.T) {
	a, _, _ := newTestAPI(t)
	h := a.routes()

	w := do(t, h, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = do(t, h, http.MethodGet, "/v1/runs/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "run not found")
}

func TestServe_CORS(t *testing.T) {
	a, _, _ := newTestAPI(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/math/solve", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	a.routes().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
