package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/finsight-ai/finsight/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "AI-powered financial document analysis",
	Long:  "Extracts text from financial documents (PDF, DOCX, TXT) and runs a staged AI analysis: verification, financial analysis, risk assessment, investment recommendation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
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

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
