package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/regwatch/tariffqa/internal/document"
	"github.com/regwatch/tariffqa/internal/embedding"
)

const (
	// DefaultCollection is the Qdrant collection holding tariff passages.
	DefaultCollection = "tariff_passages"

	// VectorDimension matches embedding.Dimension for text-embedding-3-small.
	VectorDimension = 1536

	// vectorName is the named vector carrying passage embeddings.
	vectorName = "content"
)

// pointNamespace seeds the deterministic UUIDs derived from entry ids.
var pointNamespace = uuid.NameSpaceOID

// PointID maps a content-hash entry id to the UUID form Qdrant requires
// for point ids. The mapping is deterministic, so upserting the same
// content twice overwrites a single point instead of creating a duplicate.
func PointID(entryID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(entryID)).String()
}

// Store wraps the Qdrant client with connection management and health checks.
// It owns the embedding step: callers hand over raw passage text for both
// writes and queries.
type Store struct {
	client     *qdrant.Client
	embedder   *embedding.Embedder
	collection string
}

// NewStore creates a new Qdrant-backed dense store. It blocks until Qdrant
// answers a health probe so a misconfigured deployment fails at startup
// rather than mid-ingest. An empty collection name selects DefaultCollection.
func NewStore(host string, port int, embedder *embedding.Embedder, collection string) (*Store, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port, // the gRPC port, not the REST one
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}

	store := &Store{
		client:     client,
		embedder:   embedder,
		collection: collection,
	}

	if err := store.waitHealthy(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return store, nil
}

// retryPolicy is shared by the startup probe and upserts: transient gRPC
// failures get half a minute to clear before the operation gives up.
func retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

// waitHealthy repeats Health until it passes or the retry budget lapses.
func (s *Store) waitHealthy(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, retryPolicy(ctx))
}

// Health probes Qdrant once. The MCP health endpoint calls this on every
// request, so it must stay cheap.
func (s *Store) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// EnsureCollection creates the passage collection on first use: a named
// 1536-dimension cosine vector plus payload indexes for the filterable
// fields. Safe to call on every startup; an existing collection is left
// untouched.
func (s *Store) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     VectorDimension,
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	if err := s.createPayloadIndexes(ctx); err != nil {
		return fmt.Errorf("failed to create payload indexes: %w", err)
	}

	return nil
}

// createPayloadIndexes indexes the filterable payload fields. Filtering on
// an unindexed field degrades to a full payload scan.
func (s *Store) createPayloadIndexes(ctx context.Context) error {
	fields := []struct {
		name      string
		fieldType qdrant.FieldType
	}{
		{"source", qdrant.FieldType_FieldTypeKeyword}, // Filter passages by source document
		{"is_table", qdrant.FieldType_FieldTypeBool},  // Distinguish table rows from prose
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field.name,
			FieldType:      field.fieldType.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field.name, err)
		}
	}

	return nil
}

// ClearCollection drops every indexed passage by deleting and recreating
// the collection, which also resets the payload indexes.
func (s *Store) ClearCollection(ctx context.Context) error {
	err := s.client.DeleteCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	return s.EnsureCollection(ctx)
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertPoints writes one batch of points, retrying transient failures.
func (s *Store) upsertPoints(ctx context.Context, points []*qdrant.PointStruct) error {
	attempt := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(attempt, retryPolicy(ctx))
}

// Add embeds the entry texts and upserts one point per entry. Entries
// arrive in indexer-sized batches, so a single upsert call suffices.
// Entry ids are content hashes, which makes repeated adds of the same
// text overwrites rather than duplicates.
func (s *Store) Add(ctx context.Context, entries []document.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	texts := make([]string, len(entries))
	for i, entry := range entries {
		texts[i] = entry.Text
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed entries: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(entries))
	for i, entry := range entries {
		if len(embeddings[i]) != VectorDimension {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(embeddings[i]), VectorDimension)
		}

		points[i] = &qdrant.PointStruct{
			Id: qdrant.NewIDUUID(PointID(entry.ID)),
			Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
				vectorName: qdrant.NewVector(embeddings[i]...),
			}),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":       entry.Text,
				"content_hash":  entry.ID,
				"page_number":   entry.PageNumber,
				"source":        entry.Source,
				"table_heading": entry.TableHeading,
				"is_table":      entry.IsTable,
			}),
		}
	}

	return s.upsertPoints(ctx, points)
}

// Search embeds the query and performs vector similarity search.
// Returns the texts of the topK nearest passages, best match first.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]string, error) {
	embeddings, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	queryVector := embeddings[0]
	if len(queryVector) != VectorDimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(queryVector), VectorDimension)
	}

	// Perform vector search using the named content vector
	using := vectorName
	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(queryVector...),
		Using:          &using,
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayloadInclude("content"), // Only need passage text
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search passages: %w", err)
	}

	texts := make([]string, 0, len(results))
	for _, result := range results {
		if content := result.Payload["content"].GetStringValue(); content != "" {
			texts = append(texts, content)
		}
	}

	return texts, nil
}

// Count returns the total number of indexed passages.
// Retrieval uses it to skip the dense leg while the corpus is empty.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection info: %w", err)
	}

	return info.GetPointsCount(), nil
}
