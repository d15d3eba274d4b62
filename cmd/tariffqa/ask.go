package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/regwatch/tariffqa/internal/config"
	"github.com/regwatch/tariffqa/internal/embedding"
	"github.com/regwatch/tariffqa/internal/lexical"
	"github.com/regwatch/tariffqa/internal/llm"
	"github.com/regwatch/tariffqa/internal/query"
	"github.com/regwatch/tariffqa/internal/storage"
)

var (
	askMustInclude string
	askExclude     []string
	askTopK        int
	askTable       bool
)

var askCmd = &cobra.Command{
	Use:   "ask \"question\"",
	Short: "Answer a question from the indexed tariff orders",
	Long: `Retrieves the most numerically rich passages for the question and
generates a grounded answer.

--must-include appends a term to every query variant (e.g. approved),
--exclude appends NOT clauses that steer matches away from terms (e.g.
proposed), and --table asks for a structured charge table instead of prose.

Environment variables:
  QDRANT_HOST     Qdrant hostname (default: localhost)
  QDRANT_PORT     Qdrant gRPC port (default: 6334)
  MEILI_URL       Meilisearch URL (default: http://localhost:7700)
  OPENAI_API_KEY  OpenAI API key for embeddings and answers (required)`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askMustInclude, "must-include", "", "term appended to every query variant")
	askCmd.Flags().StringSliceVar(&askExclude, "exclude", nil, "terms appended as NOT clauses to every query variant")
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of ranked passages to feed the answer (default from TOP_K)")
	askCmd.Flags().BoolVar(&askTable, "table", false, "answer as a charge table")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	question := args[0]
	cfg := config.Load()
	if askTopK <= 0 {
		askTopK = cfg.TopK
	}

	client, err := embedding.NewClient(cfg.OpenAIAPIKey)
	if err != nil {
		return fmt.Errorf("failed to create OpenAI client: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.EmbeddingModel, 0, cfg.EmbedRPM)

	store, err := storage.NewStore(cfg.QdrantHost, cfg.QdrantPort, embedder, cfg.QdrantCollection)
	if err != nil {
		return fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	defer store.Close()

	lexIndex, err := lexical.NewIndex(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex)
	if err != nil {
		return fmt.Errorf("failed to connect to Meilisearch: %w", err)
	}

	engine := query.NewEngine(
		query.NewExpander(askExclude, askMustInclude),
		query.NewRetriever(store, lexIndex, cfg.QueryConcurrency, slog.Default()),
		query.NewRanker(nil),
		askTopK,
		slog.Default(),
	)
	rc := engine.Retrieve(ctx, question)
	if rc.Degraded {
		fmt.Fprintln(os.Stderr, "warning: a search backend failed during retrieval, the answer may rest on partial context")
	}

	mode := llm.ModeText
	if askTable {
		mode = llm.ModeTable
	}
	answerer := llm.NewAnswerer(client.API(), cfg.AnswerModel, slog.Default())
	answer, err := answerer.Ask(ctx, question, rc, mode)
	if err != nil {
		return fmt.Errorf("failed to generate answer: %w", err)
	}

	if askTable {
		if rows := llm.ParseChargeTable(answer); len(rows) > 0 {
			renderChargeTable(os.Stdout, rows)
			return nil
		}
		// The model skipped the table; show whatever it said.
	}
	fmt.Println(answer)

	return nil
}

// renderChargeTable prints parsed rows borderless and left-aligned.
func renderChargeTable(w io.Writer, rows []llm.ChargeRow) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoWrap: tw.WrapNone,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{
					AutoFormat: tw.On,
				},
				Alignment: tw.CellAlignment{
					Global: tw.AlignLeft,
				},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{
					ShowHeader: tw.Off,
				},
			},
		}),
	)

	table.Header([]string{"CHARGE TYPE", "UNIT", "VALUE", "SOURCE"})
	data := make([][]string, 0, len(rows))
	for _, row := range rows {
		data = append(data, []string{row.ChargeType, row.Unit, row.Value, row.Source})
	}
	table.Bulk(data)
	table.Render()
}
