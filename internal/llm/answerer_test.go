package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/regwatch/tariffqa/internal/query"
)

// TestAsk_EmptyContextShortCircuits verifies the model is never touched when
// retrieval produced nothing: the nil client would panic if it were.
func TestAsk_EmptyContextShortCircuits(t *testing.T) {
	answerer := NewAnswerer(nil, "", nil)

	answer, err := answerer.Ask(context.Background(), "What is the energy charge?", query.RetrievalContext{}, ModeText)
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != NoPassagesAnswer {
		t.Errorf("Expected the no-passages answer, got %q", answer)
	}
}

func TestBuildPrompt_TextMode(t *testing.T) {
	prompt := buildPrompt("The approved energy charge is Rs. 4.50 per unit.", "What is the energy charge?", ModeText)

	if !strings.Contains(prompt, "Rs. 4.50 per unit") {
		t.Error("Prompt missing the context")
	}
	if !strings.Contains(prompt, "What is the energy charge?") {
		t.Error("Prompt missing the question")
	}
	if !strings.Contains(prompt, "exact figures") {
		t.Error("Prompt missing the precision instruction")
	}
	if strings.Contains(prompt, "markdown table") {
		t.Error("Text-mode prompt must not ask for a table")
	}
}

func TestBuildPrompt_TableMode(t *testing.T) {
	prompt := buildPrompt("Table 5: Approved Wheeling Charges", "What are the wheeling charges?", ModeTable)

	if !strings.Contains(prompt, "| Charge Type | Unit | Value | Source |") {
		t.Error("Table-mode prompt missing the column layout")
	}
	if !strings.Contains(prompt, "Table 5: Approved Wheeling Charges") {
		t.Error("Prompt missing the context")
	}
}
