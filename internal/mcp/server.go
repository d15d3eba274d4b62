package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/regwatch/tariffqa/internal/lexical"
	"github.com/regwatch/tariffqa/internal/llm"
	"github.com/regwatch/tariffqa/internal/query"
	"github.com/regwatch/tariffqa/internal/storage"
)

// Server exposes the retrieval pipeline and answer generation as MCP tools.
type Server struct {
	server *mcp.Server
	cfg    *Config
}

// Config carries the pipeline pieces the tool handlers call into.
type Config struct {
	Retriever *query.Retriever
	Ranker    *query.Ranker
	Answerer  *llm.Answerer
	Store     *storage.Store
	Lexical   *lexical.Index

	// TopK is the passage limit used when a tool call does not set one.
	TopK   int
	Logger *slog.Logger
}

// NewServer registers the tariff tools and returns the server ready to run
// over stdio or HTTP.
func NewServer(cfg *Config) *Server {
	c := *cfg
	if c.TopK <= 0 {
		c.TopK = query.DefaultTopK
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	impl := &mcp.Implementation{
		Name:    "tariff-orders-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_tariff",
		Description: "Answer a question about regulatory tariff orders. Retrieves the most numerically rich passages from the indexed corpus and generates a grounded answer. Set table=true for a structured charge table.",
	}, makeAskHandler(&c))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_passages",
		Description: "Retrieve ranked passages for a question without generating an answer. Returns passage text with numeric-richness scores. Use ask_tariff for a full answer.",
	}, makeSearchHandler(&c))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Get the current status of the tariff passage index, including passage counts in both search backends.",
	}, makeStatusHandler(&c))

	return &Server{
		server: server,
		cfg:    &c,
	}
}

// Run serves MCP over stdio and blocks until the client disconnects or the
// context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// HTTPHandler returns the Streamable HTTP transport for remote clients,
// ready to mount on a mux path such as /mcp. The tariff tools are plain
// request/response, so stateless mode works; stateful remains the default
// for clients that expect sessions.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Stateless: stateless})
}
