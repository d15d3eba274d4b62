package embedding

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client wraps the OpenAI API client shared by the embedding and answer
// boundaries. Constructing it once per process keeps connection reuse and
// makes the key requirement explicit instead of buried in library defaults.
type Client struct {
	api *openai.Client
}

// NewClient builds the OpenAI client from an explicit API key, typically
// config.Load().OpenAIAPIKey. An empty key fails fast here rather than on
// the first request.
func NewClient(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}

	api := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{api: &api}, nil
}

// API exposes the underlying client so the answer boundary can issue chat
// completions over the same connection pool.
func (c *Client) API() *openai.Client {
	return c.api
}
