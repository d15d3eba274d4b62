package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/regwatch/tariffqa/internal/config"
	"github.com/regwatch/tariffqa/internal/lexical"
	"github.com/regwatch/tariffqa/internal/storage"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus counts from both search backends",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	// Counting needs no embedder, so status works without an API key.
	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, nil, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	lexIndex, err := lexical.NewIndex(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex)
	if err != nil {
		return fmt.Errorf("failed to connect to Meilisearch: %w", err)
	}

	dense, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count Qdrant passages: %w", err)
	}
	lex, err := lexIndex.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count Meilisearch passages: %w", err)
	}

	fmt.Println("Index status:")
	fmt.Printf("  Collection: %s\n", cfg.QdrantCollection)
	fmt.Printf("  Index: %s\n", cfg.MeiliIndex)
	fmt.Printf("  Dense passages: %d\n", dense)
	fmt.Printf("  Lexical passages: %d\n", lex)
	if lex >= 0 && dense == uint64(lex) {
		fmt.Println("  Backends in sync")
	} else {
		fmt.Println("  Backends out of sync: re-run ingest to reconcile")
	}

	return nil
}
