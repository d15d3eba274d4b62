//go:build integration
// +build integration

package lexical

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwatch/tariffqa/internal/document"
	"github.com/regwatch/tariffqa/internal/index"
)

// setupTestIndex creates a test index instance and ensures it exists.
// Skips the test if Meilisearch is not running.
func setupTestIndex(t *testing.T) *Index {
	host := os.Getenv("MEILISEARCH_HOST")
	if host == "" {
		host = "http://localhost:7700"
	}

	ix, err := NewIndex(host, os.Getenv("MEILISEARCH_API_KEY"), "tariff_passages_test")
	if err != nil {
		t.Skipf("Meilisearch not available: %v", err)
	}

	err = ix.EnsureIndex(context.Background())
	require.NoError(t, err, "Failed to ensure index")

	return ix
}

func entryFor(text, source string) document.IndexEntry {
	return document.IndexEntry{
		ID:         index.EntryID(text),
		Text:       text,
		PageNumber: 1,
		Source:     source,
	}
}

func TestKeywordRoundTrip(t *testing.T) {
	ix := setupTestIndex(t)

	ctx := context.Background()

	// Embed a sentinel marker so the exact passage can be recognised
	// among whatever else the shared test index holds.
	sentinel := uuid.New().String()
	text := "Wheeling charges for open access consumers are Rs. 1.85 per unit. Marker " + sentinel

	err := ix.Add(ctx, []document.IndexEntry{entryFor(text, "test-order.pdf")})
	require.NoError(t, err, "Failed to add entry")

	results, err := ix.Search(ctx, sentinel, 5)
	require.NoError(t, err, "Failed to search")

	require.NotEmpty(t, results, "Expected the sentinel passage to be found")
	assert.Equal(t, text, results[0])
}

func TestAddIdempotent(t *testing.T) {
	ix := setupTestIndex(t)

	ctx := context.Background()

	text := "Energy charge is Rs. 6.75 per unit. Marker " + uuid.New().String()
	entry := entryFor(text, "test-order.pdf")

	err := ix.Add(ctx, []document.IndexEntry{entry})
	require.NoError(t, err)

	countAfterFirst, err := ix.Count(ctx)
	require.NoError(t, err)

	// Re-adding the same content overwrites the same document, so the
	// index must not grow.
	err = ix.Add(ctx, []document.IndexEntry{entry})
	require.NoError(t, err)

	countAfterSecond, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, countAfterSecond, "Duplicate add should not grow the index")
}

func TestAddHonoursCancellation(t *testing.T) {
	ix := setupTestIndex(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context must abort the write instead of indexing anyway.
	err := ix.Add(ctx, []document.IndexEntry{
		entryFor("Fixed charge is Rs. 120 per kVA. Marker "+uuid.New().String(), "test-order.pdf"),
	})
	require.Error(t, err, "Expected add with cancelled context to fail")
	assert.Contains(t, err.Error(), "context canceled")
}

func TestClear(t *testing.T) {
	ix := setupTestIndex(t)

	ctx := context.Background()

	err := ix.Add(ctx, []document.IndexEntry{
		entryFor("Cross subsidy surcharge is 1.20 per unit. Marker "+uuid.New().String(), "test-order.pdf"),
	})
	require.NoError(t, err)

	err = ix.Clear(ctx)
	require.NoError(t, err, "Failed to clear index")

	count, err := ix.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count, "Expected empty index after clear")
}
