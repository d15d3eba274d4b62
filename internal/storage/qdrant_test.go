//go:build integration
// +build integration

package storage

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwatch/tariffqa/internal/document"
	"github.com/regwatch/tariffqa/internal/embedding"
	"github.com/regwatch/tariffqa/internal/index"
)

const testCollection = "tariff_passages_test"

// setupTestStore creates a test store instance and ensures the collection
// exists. Skips the test if OpenAI is not configured or Qdrant is not running.
func setupTestStore(t *testing.T) *Store {
	client, err := embedding.NewClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		t.Skipf("OpenAI not configured: %v", err)
	}
	embedder := embedding.NewEmbedder(client, embedding.DefaultModel, embedding.DefaultBatchSize, 0)

	store, err := NewStore("localhost", 6334, embedder, testCollection)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	err = store.EnsureCollection(context.Background())
	require.NoError(t, err, "Failed to ensure collection")

	return store
}

// entryFor builds an index entry the way the indexer would, with a
// content-hash id derived from the text.
func entryFor(text, source string) document.IndexEntry {
	return document.IndexEntry{
		ID:         index.EntryID(text),
		Text:       text,
		PageNumber: 1,
		Source:     source,
	}
}

func TestPassageRoundTrip(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	// Embed a sentinel marker in the text so the exact passage can be
	// recognised among whatever else the shared test collection holds.
	sentinel := uuid.New().String()
	text := "Fixed charges for HT consumers are Rs. 450 per kVA per month. Marker " + sentinel

	err := store.Add(ctx, []document.IndexEntry{entryFor(text, "test-order.pdf")})
	require.NoError(t, err, "Failed to add entry")

	// Searching with the passage's own text must rank it first.
	results, err := store.Search(ctx, text, 3)
	require.NoError(t, err, "Failed to search passages")

	require.NotEmpty(t, results, "Expected at least one search result")
	assert.Equal(t, text, results[0])
}

func TestAddIdempotent(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	text := "Energy charge is Rs. 6.75 per unit. Marker " + uuid.New().String()
	entry := entryFor(text, "test-order.pdf")

	err := store.Add(ctx, []document.IndexEntry{entry})
	require.NoError(t, err)

	countAfterFirst, err := store.Count(ctx)
	require.NoError(t, err)

	// Re-adding the same content overwrites the same point, so the
	// collection must not grow.
	err = store.Add(ctx, []document.IndexEntry{entry})
	require.NoError(t, err)

	countAfterSecond, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, countAfterSecond, "Duplicate add should not grow the collection")
}

func TestPersistence(t *testing.T) {
	store := setupTestStore(t)

	ctx := context.Background()

	sentinel := uuid.New().String()
	text := "Wheeling charges persist across reconnects. Marker " + sentinel

	err := store.Add(ctx, []document.IndexEntry{entryFor(text, "test-order.pdf")})
	require.NoError(t, err, "Failed to add entry")

	// Close the connection (simulates application restart)
	err = store.Close()
	require.NoError(t, err, "Failed to close store")

	// Create NEW store connection (simulates restart)
	client, err := embedding.NewClient(os.Getenv("OPENAI_API_KEY"))
	require.NoError(t, err)
	embedder := embedding.NewEmbedder(client, embedding.DefaultModel, embedding.DefaultBatchSize, 0)

	store2, err := NewStore("localhost", 6334, embedder, testCollection)
	require.NoError(t, err, "Failed to reconnect to Qdrant")
	defer store2.Close()

	results, err := store2.Search(ctx, text, 3)
	require.NoError(t, err, "Failed to search after reconnection")

	require.NotEmpty(t, results, "Expected the passage to survive reconnection")
	assert.Equal(t, text, results[0])
}

func TestClearCollection(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	err := store.Add(ctx, []document.IndexEntry{
		entryFor("Cross subsidy surcharge is 1.20 per unit. Marker "+uuid.New().String(), "test-order.pdf"),
	})
	require.NoError(t, err)

	err = store.ClearCollection(ctx)
	require.NoError(t, err, "Failed to clear collection")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count, "Expected empty collection after clear")
}
