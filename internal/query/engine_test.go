package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_JoinsRankedOrder(t *testing.T) {
	passages := []ScoredPassage{
		{Text: "Table 2: rates at 15%", Score: 8, Tier: TierTable},
		{Text: "$100 charge", Score: 6, Tier: TierNumeric},
	}
	assert.Equal(t, "Table 2: rates at 15%\n\n$100 charge", Assemble(passages))
}

func TestAssemble_EmptyInput(t *testing.T) {
	assert.Equal(t, "", Assemble(nil))
	assert.Equal(t, "", Assemble([]ScoredPassage{}))
}

func TestEngine_EndToEnd(t *testing.T) {
	// Every expanded query returns the same three candidates; dedup and
	// ranking must boil them down to the two strongest in order.
	candidates := []string{
		"No numbers here.",
		"$100 charge",
		"Table 2: rates at 15%",
	}
	dense := &fakeDense{count: 3, results: map[string][]string{}}
	engine := NewEngine(
		NewExpander(nil, ""),
		NewRetriever(&staticDense{fakeDense: dense, always: candidates}, nil, 1, nil),
		NewRanker(nil),
		2,
		nil,
	)

	rc := engine.Retrieve(context.Background(), "What are Fixed Charges for HT?")

	require.Len(t, rc.Passages, 2)
	assert.Equal(t, "Table 2: rates at 15%", rc.Passages[0].Text)
	assert.Equal(t, "$100 charge", rc.Passages[1].Text)
	assert.Equal(t, "Table 2: rates at 15%\n\n$100 charge", rc.Text)
	assert.False(t, rc.Empty())
	assert.False(t, rc.Degraded)
	assert.Contains(t, rc.Queries, "What are Fixed Charges for HT?")
}

func TestEngine_EmptyCorpusYieldsEmptyContext(t *testing.T) {
	dense := &fakeDense{count: 0}
	engine := NewEngine(
		NewExpander(nil, ""),
		NewRetriever(dense, nil, 1, nil),
		NewRanker(nil),
		5,
		nil,
	)

	rc := engine.Retrieve(context.Background(), "What are wheeling charges?")

	assert.True(t, rc.Empty())
	assert.Equal(t, "", rc.Text)
	assert.Empty(t, rc.Passages)
	assert.False(t, rc.Degraded, "an empty corpus is not a degraded run")
}

// staticDense returns the same result set for every query.
type staticDense struct {
	*fakeDense
	always []string
}

func (s *staticDense) Search(ctx context.Context, query string, topK int) ([]string, error) {
	return s.always, nil
}
