package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumisproject/digital-twin-project-oracle/internal/config"
)

var (
	v          = config.New()
	cfg        *config.Config
	flagConfig string
)

var rootCmd = &cobra.Command{
	Use:           "lumis",
	Short:         "Digital twin of a codebase: incremental knowledge sync and retrieval",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(v, flagConfig)
		if err != nil {
			return err
		}
		logger, err := c.Log.Logger()
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		cfg = c
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("lumis failed", "err", err)
		os.Exit(1)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&flagConfig, "config", "", "config file (default ./lumis.yaml if present)")
	f.String("repo-url", "", "repository to index")
	f.String("work-dir", "", "local working copy (default temp_project)")
	f.String("memory-dir", "", "knowledge store directory (default memory)")
	f.Int("workers", 0, "parallel extraction and enrichment workers (default NumCPU)")
	f.Int("top-k", 0, "units retrieved per question (default 3)")
	f.String("llm-provider", "", "completion provider: openrouter, openai or ollama")
	f.String("llm-model", "", "completion model")
	f.String("embed-provider", "", "embedding provider: ollama or openai")
	f.String("embed-model", "", "embedding model")
	f.String("log-level", "", "log level: debug, info, warn or error")
	f.String("log-format", "", "log format: text or json")

	for key, flag := range map[string]string{
		"repo_url":       "repo-url",
		"work_dir":       "work-dir",
		"memory_dir":     "memory-dir",
		"workers":        "workers",
		"top_k":          "top-k",
		"llm.provider":   "llm-provider",
		"llm.model":      "llm-model",
		"embed.provider": "embed-provider",
		"embed.model":    "embed-model",
		"log.level":      "log-level",
		"log.format":     "log-format",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(err)
		}
	}
}
