// Package main provides the MCP server entry point for tariff order
// question answering.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/regwatch/tariffqa/internal/config"
	"github.com/regwatch/tariffqa/internal/embedding"
	"github.com/regwatch/tariffqa/internal/lexical"
	"github.com/regwatch/tariffqa/internal/llm"
	mcpserver "github.com/regwatch/tariffqa/internal/mcp"
	"github.com/regwatch/tariffqa/internal/query"
	"github.com/regwatch/tariffqa/internal/storage"
)

func main() {
	// Local development reads .env; deployed environments set real variables.
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file, relying on process environment")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg := config.Load()

	// One OpenAI client serves both embeddings and answer generation.
	client, err := embedding.NewClient(cfg.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, 0, cfg.EmbedRPM)

	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, embedder, cfg.QdrantCollection)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	lexIndex, err := lexical.NewIndex(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex)
	if err != nil {
		log.Fatalf("failed to connect to Meilisearch: %v", err)
	}
	if err := lexIndex.EnsureIndex(ctx); err != nil {
		log.Fatalf("failed to ensure index: %v", err)
	}

	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever: query.NewRetriever(store, lexIndex, cfg.QueryConcurrency, slog.Default()),
		Ranker:    query.NewRanker(nil),
		Answerer:  llm.NewAnswerer(client.API(), cfg.AnswerModel, slog.Default()),
		Store:     store,
		Lexical:   lexIndex,
		TopK:      cfg.TopK,
		Logger:    slog.Default(),
	})

	// One mux carries the landing page, the health probe, and the MCP
	// transport, whichever mode the process runs in.
	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", server.HTTPHandler(false))

	if cfg.ServerMode {
		addr := "0.0.0.0:" + cfg.Port
		log.Printf("serving MCP over HTTP on %s (tools at /mcp, probe at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Local clients speak stdio; the HTTP endpoints stay up in the
		// background so the health probe keeps working.
		go func() {
			addr := "0.0.0.0:" + cfg.Port
			log.Printf("health endpoint on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("health endpoint error: %v", err)
			}
		}()

		log.Println("serving tariff tools over stdio")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}
