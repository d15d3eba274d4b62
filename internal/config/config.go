// Package config collects the environment configuration shared by the CLI
// and the MCP server.
package config

import (
	"fmt"
	"os"

	"github.com/regwatch/tariffqa/internal/chunk"
	"github.com/regwatch/tariffqa/internal/embedding"
	"github.com/regwatch/tariffqa/internal/index"
	"github.com/regwatch/tariffqa/internal/lexical"
	"github.com/regwatch/tariffqa/internal/llm"
	"github.com/regwatch/tariffqa/internal/query"
	"github.com/regwatch/tariffqa/internal/storage"
)

// DefaultOrdersFeedURL is the regulator's orders endpoint.
const DefaultOrdersFeedURL = "https://merc.gov.in/wp-admin/admin-ajax.php?action=getpostsfororderdatatables"

// Config carries every tunable the binaries read from the environment.
type Config struct {
	QdrantHost       string
	QdrantPort       int
	QdrantCollection string

	MeiliURL    string
	MeiliAPIKey string
	MeiliIndex  string

	OpenAIAPIKey   string
	EmbeddingModel string
	AnswerModel    string
	EmbedRPM       int

	ChunkSize    int
	ChunkOverlap int
	BatchSize    int
	TopK         int

	IndexConcurrency int
	QueryConcurrency int

	DownloadDir   string
	CacheDir      string
	OrdersFeedURL string

	Port       string
	ServerMode bool
}

// Load builds the configuration from the environment. Defaults suit a local
// docker-compose deployment; OPENAI_API_KEY is the only key without one.
func Load() Config {
	return Config{
		QdrantHost:       getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:       getEnvInt("QDRANT_PORT", 6334),
		QdrantCollection: getEnv("QDRANT_COLLECTION", storage.DefaultCollection),

		MeiliURL:    getEnv("MEILI_URL", "http://localhost:7700"),
		MeiliAPIKey: os.Getenv("MEILI_API_KEY"),
		MeiliIndex:  getEnv("MEILI_INDEX", lexical.DefaultIndex),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", embedding.DefaultModel),
		AnswerModel:    getEnv("ANSWER_MODEL", llm.DefaultModel),
		EmbedRPM:       getEnvInt("EMBED_RPM", 0),

		ChunkSize:    getEnvInt("CHUNK_SIZE", chunk.DefaultChunkSize),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", chunk.DefaultOverlap),
		BatchSize:    getEnvInt("BATCH_SIZE", index.DefaultBatchSize),
		TopK:         getEnvInt("TOP_K", query.DefaultTopK),

		IndexConcurrency: getEnvInt("INDEX_CONCURRENCY", 1),
		QueryConcurrency: getEnvInt("QUERY_CONCURRENCY", 4),

		DownloadDir:   getEnv("DOWNLOAD_DIR", "downloads"),
		CacheDir:      getEnv("CACHE_DIR", "cache"),
		OrdersFeedURL: getEnv("ORDERS_FEED_URL", DefaultOrdersFeedURL),

		Port:       getEnv("PORT", "8080"),
		ServerMode: getEnv("SERVER_MODE", "false") == "true",
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
