package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/regwatch/tariffqa/internal/cache"
	"github.com/regwatch/tariffqa/internal/chunk"
	"github.com/regwatch/tariffqa/internal/config"
	"github.com/regwatch/tariffqa/internal/embedding"
	"github.com/regwatch/tariffqa/internal/extract"
	"github.com/regwatch/tariffqa/internal/index"
	"github.com/regwatch/tariffqa/internal/ingest"
	"github.com/regwatch/tariffqa/internal/lexical"
	"github.com/regwatch/tariffqa/internal/scrape"
	"github.com/regwatch/tariffqa/internal/storage"
)

var (
	ingestDir      string
	ingestFromFeed bool
	ingestListing  string
	downloadDir    string
	ingestSubjects []string
	ingestReset    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Build the tariff passage index from PDF orders",
	Long: `Extracts, chunks and indexes tariff order PDFs into both search backends.

This command:
1. Collects PDFs from a local directory, the regulator's orders feed, or a listing page
2. Connects to Qdrant and Meilisearch and ensures the collection and index exist
3. Extracts text and tables from each PDF through the on-disk extraction cache
4. Splits pages into overlapping passages and deduplicates them by content hash
5. Writes passage batches to both backends

Re-runs are idempotent: passages already indexed are recognized by content
hash and skipped.

Environment variables:
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  MEILI_URL       Meilisearch URL (default: http://localhost:7700)
  MEILI_API_KEY   Meilisearch API key (optional)
  OPENAI_API_KEY  OpenAI API key for embeddings (required)
  ORDERS_FEED_URL Regulator orders feed (used with --urls-from-feed)`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory of PDF orders to ingest")
	ingestCmd.Flags().BoolVar(&ingestFromFeed, "urls-from-feed", false, "download recent orders from the regulator's feed")
	ingestCmd.Flags().StringVar(&ingestListing, "listing-url", "", "scrape a tender listing page and download its PDFs")
	ingestCmd.Flags().StringVar(&downloadDir, "download-dir", "", "directory for downloaded PDFs (default from DOWNLOAD_DIR)")
	ingestCmd.Flags().StringSliceVar(&ingestSubjects, "subjects", nil, "feed subject filters (default: open access and multi year tariff)")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "clear both backends and the extraction cache first")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	start := time.Now()
	cfg := config.Load()

	if downloadDir == "" {
		downloadDir = cfg.DownloadDir
	}
	if ingestDir == "" && !ingestFromFeed && ingestListing == "" {
		return fmt.Errorf("nothing to ingest: pass --dir, --urls-from-feed or --listing-url")
	}

	fmt.Println("Starting ingest...")
	fmt.Println()

	// 1. Collect PDFs
	var paths []string
	if ingestDir != "" {
		found, err := collectPDFs(ingestDir)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", ingestDir, err)
		}
		fmt.Printf("Found %d PDFs under %s\n", len(found), ingestDir)
		paths = append(paths, found...)
	}
	if ingestFromFeed || ingestListing != "" {
		scraper := scrape.NewClient(slog.Default())
		if ingestFromFeed {
			subjects := ingestSubjects
			if len(subjects) == 0 {
				subjects = scrape.DefaultSubjects
			}
			fmt.Println("Fetching recent orders from the feed...")
			orders, err := scraper.FetchOrders(ctx, cfg.OrdersFeedURL, subjects)
			if err != nil {
				return fmt.Errorf("failed to fetch orders feed: %w", err)
			}
			fmt.Printf("Feed returned %d matching orders\n", len(orders))
			paths = append(paths, scraper.DownloadOrders(ctx, orders, downloadDir)...)
		}
		if ingestListing != "" {
			fmt.Printf("Scraping listing page %s...\n", ingestListing)
			listings, err := scraper.ScrapeListing(ctx, ingestListing)
			if err != nil {
				return fmt.Errorf("failed to scrape listing: %w", err)
			}
			fmt.Printf("Listing holds %d rows\n", len(listings))
			paths = append(paths, scraper.DownloadListings(ctx, listings, ingestListing, downloadDir)...)
		}
	}
	if len(paths) == 0 {
		return fmt.Errorf("no PDFs to ingest")
	}

	// 2. Connect to Qdrant
	fmt.Println()
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.QdrantHost, cfg.QdrantPort)
	client, err := embedding.NewClient(cfg.OpenAIAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create embedding client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, 0, cfg.EmbedRPM)
	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, embedder, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	fmt.Println("Qdrant ready")

	// 3. Connect to Meilisearch
	fmt.Printf("Connecting to Meilisearch at %s...\n", cfg.MeiliURL)
	lexIndex, err := lexical.NewIndex(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex)
	if err != nil {
		return fmt.Errorf("failed to connect to Meilisearch: %w", err)
	}
	if err := lexIndex.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("failed to ensure index: %w", err)
	}
	fmt.Println("Meilisearch ready")

	// 4. Open the extraction cache, clearing state first if requested
	extractionCache, err := cache.New(cfg.CacheDir, cache.DefaultSize, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open extraction cache: %w", err)
	}
	if ingestReset {
		fmt.Println()
		fmt.Println("Clearing backends and extraction cache...")
		if err := store.ClearCollection(ctx); err != nil {
			return fmt.Errorf("failed to clear collection: %w", err)
		}
		if err := lexIndex.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
		if err := extractionCache.Clear(); err != nil {
			return fmt.Errorf("failed to clear extraction cache: %w", err)
		}
		fmt.Println("Cleared")
	}

	// 5. Run the pipeline
	fmt.Println()
	fmt.Printf("Ingesting %d documents...\n", len(paths))
	pipeline := ingest.NewPipeline(
		extract.NewExtractor(slog.Default()),
		extractionCache,
		chunk.NewChunker(cfg.ChunkSize, cfg.ChunkOverlap, slog.Default()),
		index.NewIndexer(store, lexIndex, cfg.BatchSize, cfg.IndexConcurrency, slog.Default()),
		cache.Params{ChunkSize: cfg.ChunkSize, ChunkOverlap: cfg.ChunkOverlap},
		slog.Default(),
	)
	result := pipeline.Run(ctx, paths)

	// 6. Print results
	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d\n", result.TotalChunks)
	fmt.Printf("  Indexed: %d\n", result.Indexed)
	fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)
	fmt.Printf("  Cache hits: %d\n", result.CacheHits)
	fmt.Printf("  Duration: %s\n", result.Duration.Round(time.Second))

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}
	if len(result.FailedBatches) > 0 {
		fmt.Println()
		fmt.Println("Failed batches:")
		for _, failed := range result.FailedBatches {
			fmt.Printf("  - %s entries %d-%d: %s\n", failed.Backend, failed.Start, failed.End, failed.Reason)
		}
	}
	if result.Aborted {
		fmt.Println()
		fmt.Println("Run aborted; indexed passages are kept and a re-run resumes cleanly.")
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}

// collectPDFs walks dir for PDF files, sorted for a stable ingest order.
func collectPDFs(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}
