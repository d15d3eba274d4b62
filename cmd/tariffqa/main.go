// Package main provides the tariffqa CLI for ingesting and querying
// regulatory tariff orders.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tariffqa",
	Short: "Regulatory tariff order ingestion and question answering",
	Long: `CLI for building and querying a searchable corpus of regulatory
tariff orders.

PDF orders are extracted, split into overlapping passages, deduplicated by
content hash and indexed into Qdrant (dense) and Meilisearch (lexical).
Questions are answered from the most numerically rich passages.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
