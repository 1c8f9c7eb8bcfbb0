package main

import (
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
	"github.com/sells-group/answer-engine/internal/reasoning"
	"github.com/sells-group/answer-engine/internal/store"
)

var answerFlags batchFlags

var answerCmd = &cobra.Command{
	Use:   "answer",
	Short: "Answer a batch of multi-hop questions",
	Long:  "Answers every question in the input table using worked examples retrieved from the pattern index, and writes answers with supporting facts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx, cfg, "answer", !answerFlags.noStore)
		if err != nil {
			return err
		}
		defer env.Close()

		questions, err := env.Source.LoadQA(ctx, answerFlags.input, dataset.QAOptions{})
		if err != nil {
			return eris.Wrap(err, "load questions")
		}
		questions = limitSlice(questions, answerFlags.limit)

		engine, err := env.qaEngine(ctx, orDefault(answerFlags.train, cfg.QA.TrainPath))
		if err != nil {
			return err
		}

		run, err := startRun(ctx, env.Store, model.RunKindQA, answerFlags.input)
		if err != nil {
			return err
		}

		var done atomic.Int32
		total := len(questions)
		results, batchErr := engine.AnswerBatch(ctx, questions, cfg.Batch.MaxConcurrentQuestions, func(i int, r model.QAResult) {
			n := done.Add(1)
			zap.L().Info("answered",
				zap.String("id", r.ID),
				zap.Int("done", int(n)),
				zap.Int("total", total),
				zap.Float64("confidence", r.Confidence),
			)
		})

		stats := reasoning.Tally(results)
		preds := make([]model.Prediction, len(results))
		for i, r := range results {
			preds[i] = store.NewPrediction(i, r.ID, r.Question, r.Answer, qaMethod(r), r.Confidence, r)
		}
		recordRun(ctx, env.Store, run, preds, stats, batchErr)

		if err := writeOutputs(answerFlags.output, answerFlags.traces,
			func(f *os.File) error { return dataset.WriteQACSV(f, results) },
			func(f *os.File) error { return dataset.WriteJSONL(f, results) },
		); err != nil {
			return err
		}

		printQASummary(os.Stdout, stats, results)
		if run != nil {
			fmt.Fprintf(os.Stdout, "Run: %s\n", run.ID)
		}
		return batchErr
	},
}

func init() {
	answerFlags.register(answerCmd, "qa_predictions.csv")
	rootCmd.AddCommand(answerCmd)
}

// qaMethod labels how a QA answer was produced.
func qaMethod(r model.QAResult) string {
	switch {
	case r.Error != "":
		return "error"
	case r.SelfConsistency:
		return "self_consistency"
	default:
		return "single"
	}
}
