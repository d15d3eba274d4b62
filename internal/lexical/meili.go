// Package lexical implements the keyword retrieval backend on Meilisearch.
// Unlike the dense store it needs no embeddings: passages are matched on
// their raw text, which keeps exact terms like "kVA" or "MYT" findable
// even when embeddings blur them.
package lexical

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/meilisearch/meilisearch-go"

	"github.com/regwatch/tariffqa/internal/document"
)

const (
	// DefaultIndex is the Meilisearch index holding tariff passages.
	DefaultIndex = "tariff_passages"

	// taskTimeout bounds how long writes wait for Meilisearch to
	// acknowledge an indexing task.
	taskTimeout = 15 * time.Second
)

var ErrUnreachable = errors.New("meilisearch server unreachable")

// Index wraps the Meilisearch client for keyword search over passages.
type Index struct {
	client meilisearch.ServiceManager
	index  meilisearch.IndexManager
}

// NewIndex connects to Meilisearch and verifies the server is healthy,
// retrying with exponential backoff before giving up. An empty index
// name selects DefaultIndex.
func NewIndex(host, apiKey, indexName string) (*Index, error) {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))

	if indexName == "" {
		indexName = DefaultIndex
	}

	ix := &Index{
		client: client,
		index:  client.Index(indexName),
	}

	if err := ix.waitHealthy(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return ix, nil
}

// waitHealthy repeats the health probe until it passes or the retry budget
// lapses, so NewIndex fails fast on a misconfigured deployment but rides
// out a backend that is still starting up.
func (ix *Index) waitHealthy() error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := ix.client.Health()
		return err
	}, b)
}

// EnsureIndex creates the passage index on first use and registers the
// searchable and filterable attributes. Safe to call on every startup.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	_, err := ix.index.FetchInfoWithContext(ctx)
	if err != nil {
		// Index doesn't exist yet. Meilisearch creates indexes lazily on
		// the first document write, so initialise with a marker document
		// and delete it again.
		marker := []map[string]interface{}{
			{"id": "init", "content": "index initialisation marker"},
		}

		task, err := ix.index.AddDocumentsWithContext(ctx, marker, nil)
		if err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
		if _, err := ix.index.WaitForTaskWithContext(ctx, task.TaskUID, taskTimeout); err != nil {
			return fmt.Errorf("failed to wait for index creation: %w", err)
		}

		deleteTask, err := ix.index.DeleteDocumentWithContext(ctx, "init", nil)
		if err == nil {
			ix.index.WaitForTaskWithContext(ctx, deleteTask.TaskUID, taskTimeout)
		}
	}

	settings, err := ix.index.GetSettingsWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to get index settings: %w", err)
	}

	// Match only on passage text, not on hashes or page numbers.
	if !hasAttributes(settings.SearchableAttributes, "content", "table_heading") {
		task, err := ix.index.UpdateSearchableAttributesWithContext(ctx, &[]string{"content", "table_heading"})
		if err != nil {
			return fmt.Errorf("failed to set searchable attributes: %w", err)
		}
		if _, err := ix.index.WaitForTaskWithContext(ctx, task.TaskUID, taskTimeout); err != nil {
			return fmt.Errorf("failed to wait for searchable attributes: %w", err)
		}
	}

	var haveSource, haveTable bool
	for _, attr := range settings.FilterableAttributes {
		if attr == "source" {
			haveSource = true
		}
		if attr == "is_table" {
			haveTable = true
		}
	}
	if !haveSource || !haveTable {
		task, err := ix.index.UpdateFilterableAttributesWithContext(ctx, &[]interface{}{"source", "is_table"})
		if err != nil {
			return fmt.Errorf("failed to set filterable attributes: %w", err)
		}
		if _, err := ix.index.WaitForTaskWithContext(ctx, task.TaskUID, taskTimeout); err != nil {
			return fmt.Errorf("failed to wait for filterable attributes: %w", err)
		}
	}

	return nil
}

// hasAttributes reports whether current contains every wanted attribute.
func hasAttributes(current []string, want ...string) bool {
	present := make(map[string]bool, len(current))
	for _, attr := range current {
		present[attr] = true
	}
	for _, attr := range want {
		if !present[attr] {
			return false
		}
	}
	return true
}

// Add indexes the entries for keyword search and waits for Meilisearch to
// acknowledge the task, so a successful return means the passages are
// searchable. Entry ids are content hashes, which makes repeated adds of
// the same text overwrites rather than duplicates.
func (ix *Index) Add(ctx context.Context, entries []document.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	task, err := ix.index.AddDocumentsWithContext(ctx, entries, nil)
	if err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	if _, err := ix.index.WaitForTaskWithContext(ctx, task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed to wait for indexing task: %w", err)
	}

	return nil
}

// Search runs a keyword query and returns the matching passage texts,
// best match first.
func (ix *Index) Search(ctx context.Context, query string, limit int) ([]string, error) {
	searchRequest := &meilisearch.SearchRequest{
		Query: query,
		Limit: int64(limit),
	}

	result, err := ix.index.SearchWithContext(ctx, query, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}

	texts := make([]string, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if content, ok := contentFromHit(hit); ok {
			texts = append(texts, content)
		}
	}

	return texts, nil
}

// contentFromHit extracts the passage text from a raw search hit.
func contentFromHit(hit meilisearch.Hit) (string, bool) {
	raw, ok := hit["content"]
	if !ok {
		return "", false
	}

	var content string
	if err := json.Unmarshal(raw, &content); err != nil || content == "" {
		return "", false
	}

	return content, true
}

// Count reports how many passages the index holds.
func (ix *Index) Count(ctx context.Context) (int64, error) {
	stats, err := ix.index.GetStatsWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get index stats: %w", err)
	}

	return stats.NumberOfDocuments, nil
}

// Clear removes every indexed passage; ingest --reset calls this before a
// full rebuild.
func (ix *Index) Clear(ctx context.Context) error {
	task, err := ix.index.DeleteAllDocumentsWithContext(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	if _, err := ix.index.WaitForTaskWithContext(ctx, task.TaskUID, taskTimeout); err != nil {
		return fmt.Errorf("failed to wait for clear task: %w", err)
	}

	return nil
}
