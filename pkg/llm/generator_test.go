package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/answer-engine/internal/resilience"
)

// MockGenerator implements Generator for testing.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestSample_CollectsSuccesses(t *testing.T) {
	var n atomic.Int32
	g := &StubGenerator{Fn: func(Request) (string, error) {
		switch n.Add(1) {
		case 2:
			return "", errors.New("boom")
		case 3:
			return "", nil
		}
		return "#### 8", nil
	}}

	out, err := Sample(context.Background(), g, Request{Purpose: "cot"}, 5)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	for _, s := range out {
		assert.Equal(t, "#### 8", s)
	}
}

func TestSample_AllFail(t *testing.T) {
	g := &StubGenerator{Fn: func(Request) (string, error) { return "", errors.New("down") }}
	out, err := Sample(context.Background(), g, Request{}, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Empty(t, out)

	empty := &StubGenerator{Fn: func(Request) (string, error) { return "", nil }}
	_, err = Sample(context.Background(), empty, Request{}, 2)
	assert.Error(t, err)

	out, err = Sample(context.Background(), empty, Request{}, 0)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestWithResilience_RetriesRateLimits(t *testing.T) {
	m := new(MockGenerator)
	ctx := context.Background()
	req := Request{Purpose: "cot", Prompt: "p"}
	rl := resilience.NewTransientError(errors.New("slow down"), 429)
	m.On("Generate", mock.Anything, req).Return("", rl).Twice()
	m.On("Generate", mock.Anything, req).Return("#### 3", nil).Once()

	var observed []string
	g := WithResilience(m, "test",
		resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond},
		resilience.NewAdaptiveLimiter(1000, 10),
		func(purpose string) { observed = append(observed, purpose) })

	out, err := g.Generate(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "#### 3", out)
	assert.Equal(t, []string{"cot", "cot"}, observed)
	m.AssertExpectations(t)
}

func TestWithResilience_OtherErrorsPropagate(t *testing.T) {
	m := new(MockGenerator)
	req := Request{Purpose: "pal"}
	m.On("Generate", mock.Anything, req).Return("", errors.New("invalid key")).Once()

	g := WithResilience(m, "test", resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}, nil, nil)
	_, err := g.Generate(context.Background(), req)
	require.Error(t, err)
	m.AssertNumberOfCalls(t, "Generate", 1)
}

func TestOfflineGenerator(t *testing.T) {
	g := NewOfflineGenerator()
	out, err := g.Generate(context.Background(), Request{Purpose: "COT"})
	require.NoError(t, err)
	assert.Contains(t, out, "#### 0")

	out, err = g.Generate(context.Background(), Request{Purpose: "other"})
	require.NoError(t, err)
	assert.Equal(t, "FINAL ANSWER: unknown", out)
}
