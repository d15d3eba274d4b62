package embedding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
	"golang.org/x/time/rate"
)

const (
	// DefaultModel is the OpenAI model used for generating embeddings.
	DefaultModel = "text-embedding-3-small"

	// Dimension is the vector size for text-embedding-3-small.
	// This matches the dense collection's vector configuration (1536).
	Dimension = 1536

	// DefaultBatchSize trades request count against tokens-per-minute
	// pressure. The API accepts up to 2048 inputs per request; 500 keeps
	// a batch of tariff passages comfortably inside the token ceiling.
	DefaultBatchSize = 500
)

// Embedder turns passage text into vectors in batches. Rate-limited
// requests are retried with exponential backoff; an optional limiter paces
// outgoing requests so long ingest runs stay under the account's
// requests-per-minute quota.
type Embedder struct {
	client    *Client
	model     string
	batchSize int
	limiter   *rate.Limiter // nil means unlimited
}

// NewEmbedder creates an Embedder. An empty model selects DefaultModel,
// batchSize 0 selects DefaultBatchSize, and rpm 0 disables request pacing.
func NewEmbedder(client *Client, model string, batchSize, rpm int) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	var limiter *rate.Limiter
	if rpm > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}
	return &Embedder{
		client:    client,
		model:     model,
		batchSize: batchSize,
		limiter:   limiter,
	}
}

// Embed returns one vector per input text, in input order. Inputs beyond
// the batch size are split across requests; a failed batch aborts the rest
// because a partial vector set cannot be paired back to its entries.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch %d-%d: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embedBatch issues a single embeddings request, retrying only on HTTP 429.
// Any other failure is permanent: bad input or a bad key will not improve
// with waiting.
func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32

	attempt := func() error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		resp, err := e.client.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if rateLimited(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		vectors = make([][]float32, len(resp.Data))
		for i, data := range resp.Data {
			vectors[i] = vector32(data.Embedding)
		}
		return nil
	}

	err := backoff.Retry(attempt, retryPolicy(ctx))
	return vectors, err
}

// retryPolicy bounds the retry loop: 429 bursts usually clear within
// seconds, and half a minute of continuous failure should kill the run.
func retryPolicy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func rateLimited(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// vector32 narrows the API's float64 values to the float32 form the dense
// store persists.
func vector32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
