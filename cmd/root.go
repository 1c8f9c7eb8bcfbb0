package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/answer-engine/internal/config"
)

var (
	cfg     *config.Config
	offline bool
)

var rootCmd = &cobra.Command{
	Use:   "answer-engine",
	Short: "Retrieval-augmented math and multi-hop question answering",
	Long:  "Solves math word problems by cross-checking generated programs against sampled reasoning, and answers multi-hop questions with retrieved worked examples.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if offline {
			c.LLM.Provider = "offline"
			c.Embedding.Provider = "hash"
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use the stub generator and hashing embedder (no network)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
