// Package llm is the answer boundary: it turns an assembled retrieval
// context and a question into a grounded answer.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"

	"github.com/regwatch/tariffqa/internal/query"
)

// NoPassagesAnswer is returned without a model call when retrieval found
// nothing. An empty prompt must never reach the model.
const NoPassagesAnswer = "No relevant passages were found in the indexed tariff orders for this question."

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o"

// Mode selects the answer format.
type Mode int

const (
	// ModeText answers in short prose with exact figures.
	ModeText Mode = iota
	// ModeTable answers as a markdown charge table.
	ModeTable
)

// Answerer issues one chat completion per question.
type Answerer struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewAnswerer wraps an OpenAI client for answering. An empty model selects
// DefaultModel.
func NewAnswerer(client *openai.Client, model string, logger *slog.Logger) *Answerer {
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Answerer{client: client, model: model, logger: logger}
}

// Ask answers the question from the retrieval context. An empty context
// short-circuits to NoPassagesAnswer; the model is never called with an
// empty prompt.
func (a *Answerer) Ask(ctx context.Context, question string, rc query.RetrievalContext, mode Mode) (string, error) {
	if rc.Empty() {
		a.logger.Info("Empty retrieval context, skipping model call", "question", question)
		return NoPassagesAnswer, nil
	}

	prompt := buildPrompt(rc.Text, question, mode)
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(a.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildPrompt(contextText, question string, mode Mode) string {
	if mode == ModeTable {
		return fmt.Sprintf(`You are a helpful assistant that extracts information from regulatory documents.

Here is the context to analyze:
%s

Based on this context, provide the answer for the following question:
%s

Format your response as only a markdown table with the following columns:
| Charge Type | Unit | Value | Source |

If a value is marked as - or empty, include it as well.`, contextText, question)
	}

	return fmt.Sprintf(`Based on the following excerpts from regulatory tariff orders:

%s

Answer the following question:
%s

Give precise answers with the exact figures from the excerpts. Do not explain
details that are not relevant to the question. If the excerpts do not contain
the answer, say so.`, contextText, question)
}
