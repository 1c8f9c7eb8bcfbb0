package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/answer-engine/internal/retrieval"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage retrieval indexes",
}

var (
	indexForce    bool
	indexQATrain  string
	indexMathData string
)

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the QA pattern index and math few-shot index",
	Long:  "Embeds the training tables and writes the partitioned indexes to their cache directories. Existing caches are reused unless --force is set.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx, cfg, "index", false)
		if err != nil {
			return err
		}
		defer env.Close()

		qaPath := orDefault(indexQATrain, cfg.QA.TrainPath)
		idx, rebuilt, err := env.patternIndex(ctx, qaPath, indexForce)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "QA pattern index: %d examples in %d categories (rebuilt=%t) at %s\n",
			idx.Size(), len(idx.Categories()), rebuilt, cfg.Index.QADir)

		mathPath := orDefault(indexMathData, cfg.Math.FewShot.TrainPath)
		if mathPath == "" {
			return nil
		}
		training, err := env.Source.LoadSolved(ctx, mathPath)
		if err != nil {
			return err
		}
		if indexForce {
			_ = os.RemoveAll(cfg.Index.FewShotDir)
		}
		if _, err := retrieval.NewFewShotRetriever(ctx, env.Emb, training, cfg.Index.FewShotDir, env.Metrics); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Math few-shot index: %d examples at %s\n", len(training), cfg.Index.FewShotDir)
		return nil
	},
}

func init() {
	indexBuildCmd.Flags().BoolVar(&indexForce, "force", false, "rebuild even when a valid cache exists")
	indexBuildCmd.Flags().StringVar(&indexQATrain, "qa-train", "", "QA training table (default from config)")
	indexBuildCmd.Flags().StringVar(&indexMathData, "math-train", "", "math training table (default from config)")
	indexCmd.AddCommand(indexBuildCmd)
	rootCmd.AddCommand(indexCmd)
}
