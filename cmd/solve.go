package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/dataset"
	"github.com/sells-group/answer-engine/internal/model"
	"github.com/sells-group/answer-engine/internal/solver"
	"github.com/sells-group/answer-engine/internal/store"
)

var solveFlags batchFlags

// batchFlags are shared by the solve and answer commands.
type batchFlags struct {
	input   string
	output  string
	traces  string
	train   string
	limit   int
	noStore bool
}

func (f *batchFlags) register(cmd *cobra.Command, defaultOutput string) {
	cmd.Flags().StringVar(&f.input, "input", "", "questions table (path, file://, http(s):// or ftp:// URL)")
	cmd.Flags().StringVar(&f.output, "output", defaultOutput, "predictions CSV path")
	cmd.Flags().StringVar(&f.traces, "traces", "", "optional JSONL path for per-question traces")
	cmd.Flags().StringVar(&f.train, "train", "", "training table for retrieval (default from config)")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "max number of questions to process (0 = all)")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "skip recording the run in the store")
	_ = cmd.MarkFlagRequired("input")
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Solve a batch of math word problems",
	Long:  "Solves every question in the input table with program-aided and chain-of-thought generation, reconciles the two, and writes question,answer predictions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "solve", !solveFlags.noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		questions, err := env.Source.LoadQuestions(ctx, solveFlags.input)
		if err != nil {
			return eris.Wrap(err, "load questions")
		}
		questions = limitSlice(questions, solveFlags.limit)

		pipeline, err := env.mathPipeline(ctx, orDefault(solveFlags.train, cfg.Math.FewShot.TrainPath))
		if err != nil {
			return err
		}

		run, err := startRun(ctx, env.Store, model.RunKindMath, solveFlags.input)
		if err != nil {
			return err
		}

		var done atomic.Int32
		total := len(questions)
		traces, batchErr := pipeline.SolveBatch(ctx, questions, cfg.Batch.MaxConcurrentQuestions, func(i int, t model.MathTrace) {
			n := done.Add(1)
			zap.L().Info("solved",
				zap.Int("index", i),
				zap.Int("done", int(n)),
				zap.Int("total", total),
				zap.String("method", string(t.Verification.Method)),
			)
		})

		stats := solver.Tally(traces)
		preds := make([]model.Prediction, len(traces))
		for i, t := range traces {
			preds[i] = store.NewPrediction(i, "", t.Question, t.FinalAnswer, string(t.Verification.Method), t.Verification.Confidence, t)
		}
		recordRun(ctx, env.Store, run, preds, stats, batchErr)

		if err := writeOutputs(solveFlags.output, solveFlags.traces,
			func(f *os.File) error { return dataset.WriteMathCSV(f, traces) },
			func(f *os.File) error { return dataset.WriteJSONL(f, traces) },
		); err != nil {
			return err
		}

		printMathSummary(os.Stdout, stats)
		if run != nil {
			fmt.Fprintf(os.Stdout, "Run: %s\n", run.ID)
		}
		return batchErr
	},
}

func init() {
	solveFlags.register(solveCmd, "predictions.csv")
	rootCmd.AddCommand(solveCmd)
}

// startRun records a new running batch, or returns nil when no store is
// configured.
func startRun(ctx context.Context, st store.Store, kind model.RunKind, input string) (*model.Run, error) {
	if st == nil {
		return nil, nil
	}
	run, err := st.CreateRun(ctx, kind, input)
	if err != nil {
		return nil, eris.Wrap(err, "create run")
	}
	return run, nil
}

// writeOutputs writes the predictions CSV and, when tracesPath is set, the
// traces JSONL.
func writeOutputs(csvPath, tracesPath string, writeCSV, writeTraces func(*os.File) error) error {
	if err := writeFile(csvPath, writeCSV); err != nil {
		return err
	}
	if tracesPath == "" {
		return nil
	}
	return writeFile(tracesPath, writeTraces)
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := dataset.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return eris.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "close %s", path)
	}
	zap.L().Info("wrote output", zap.String("path", path))
	return nil
}

func limitSlice[T any](items []T, limit int) []T {
	if limit > 0 && limit < len(items) {
		return items[:limit]
	}
	return items
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
