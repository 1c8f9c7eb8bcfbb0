// Package sandbox executes generated programs with a restricted builtin
// set and reads back their answer binding.
package sandbox

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Binding is the variable a program must assign its result to.
const Binding = "answer"

var (
	// ErrExecution means the program raised or could not be run.
	ErrExecution = eris.New("sandbox: execution failed")
	// ErrMissingAnswer means the program ran but left the answer binding
	// unset or None.
	ErrMissingAnswer = eris.New("sandbox: answer binding missing or null")
	// ErrTimeout means the program exceeded its time limit.
	ErrTimeout = eris.New("sandbox: timed out")
)

// Executor runs a program and returns the string form of its answer.
type Executor interface {
	Execute(ctx context.Context, code string) (string, error)
}

//go:embed runner.py
var runnerScript string

// PythonExecutor runs programs in a python3 subprocess. The program sees
// only abs, round, min, max, sum, len, int, float, str, bool, range, pow and
// divmod: no imports and no I/O.
type PythonExecutor struct {
	Python  string
	Timeout time.Duration
}

// NewPythonExecutor returns an executor using the given interpreter and
// per-program timeout.
func NewPythonExecutor(python string, timeout time.Duration) *PythonExecutor {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PythonExecutor{Python: python, Timeout: timeout}
}

type runnerResult struct {
	Status string `json:"status"`
	Answer string `json:"answer"`
	Detail string `json:"detail"`
}

// Execute implements Executor.
func (p *PythonExecutor) Execute(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Python, "-I", "-S", "-c", runnerScript)
	cmd.Stdin = bytes.NewBufferString(code)
	cmd.Env = []string{}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		return "", eris.Wrapf(ErrTimeout, "sandbox: after %s", p.Timeout)
	}
	if err != nil {
		return "", eris.Wrapf(ErrExecution, "sandbox: run %s: %v: %s", p.Python, err, stderr.String())
	}

	var res runnerResult
	if err := json.Unmarshal(stdout.Bytes(), &res); err != nil {
		return "", eris.Wrapf(ErrExecution, "sandbox: decode result: %v", err)
	}
	switch res.Status {
	case "ok":
		return res.Answer, nil
	case "missing", "null":
		return "", eris.Wrap(ErrMissingAnswer, res.Status)
	default:
		zap.L().Debug("sandbox: program raised", zap.String("detail", res.Detail))
		return "", eris.Wrap(ErrExecution, res.Detail)
	}
}

var _ Executor = (*PythonExecutor)(nil)
