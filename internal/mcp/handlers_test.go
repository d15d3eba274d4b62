package mcp

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwatch/tariffqa/internal/llm"
	"github.com/regwatch/tariffqa/internal/query"
)

// fakeDense serves the same passages for every query.
type fakeDense struct {
	count    uint64
	passages []string
	err      error
}

func (f *fakeDense) Search(ctx context.Context, q string, topK int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

func (f *fakeDense) Count(ctx context.Context) (uint64, error) {
	return f.count, nil
}

func testConfig(dense *fakeDense) *Config {
	return &Config{
		Retriever: query.NewRetriever(dense, nil, 1, nil),
		Ranker:    query.NewRanker(nil),
		Answerer:  llm.NewAnswerer(nil, "", nil),
		TopK:      2,
	}
}

func TestSearchPassages_RanksByNumericRichness(t *testing.T) {
	dense := &fakeDense{count: 3, passages: []string{
		"No numbers here.",
		"$100 charge",
		"Table 2: rates at 15%",
	}}
	handler := makeSearchHandler(testConfig(dense))

	_, out, err := handler(context.Background(), nil, SearchPassagesInput{
		Question: "What are the approved wheeling charges?",
	})

	require.NoError(t, err)
	require.Len(t, out.Passages, 2)
	assert.Equal(t, "Table 2: rates at 15%", out.Passages[0].Text)
	assert.Equal(t, "table", out.Passages[0].Tier)
	assert.Equal(t, "$100 charge", out.Passages[1].Text)
	assert.Equal(t, "numeric", out.Passages[1].Tier)
	assert.Greater(t, out.Passages[0].Score, out.Passages[1].Score)
	assert.NotEmpty(t, out.Queries)
	assert.False(t, out.Degraded)
	assert.Empty(t, out.Message)
}

func TestSearchPassages_TopKOverridesDefault(t *testing.T) {
	dense := &fakeDense{count: 3, passages: []string{
		"$100 charge",
		"Table 2: rates at 15%",
	}}
	handler := makeSearchHandler(testConfig(dense))

	_, out, err := handler(context.Background(), nil, SearchPassagesInput{
		Question: "What are the approved wheeling charges?",
		TopK:     1,
	})

	require.NoError(t, err)
	assert.Len(t, out.Passages, 1)
}

func TestSearchPassages_EmptyCorpus(t *testing.T) {
	handler := makeSearchHandler(testConfig(&fakeDense{count: 0}))

	_, out, err := handler(context.Background(), nil, SearchPassagesInput{
		Question: "What are the approved wheeling charges?",
	})

	require.NoError(t, err)
	assert.NotNil(t, out.Passages)
	assert.Empty(t, out.Passages)
	assert.Contains(t, out.Message, "No matching passages")
	assert.False(t, out.Degraded)
}

func TestSearchPassages_DegradedOnBackendFailure(t *testing.T) {
	dense := &fakeDense{count: 3, err: errors.New("backend unavailable")}
	handler := makeSearchHandler(testConfig(dense))

	_, out, err := handler(context.Background(), nil, SearchPassagesInput{
		Question: "What are the approved wheeling charges?",
	})

	require.NoError(t, err)
	assert.Empty(t, out.Passages)
	assert.True(t, out.Degraded)
}

func TestAskTariff_EmptyContextShortCircuits(t *testing.T) {
	// The answerer holds no client; touching the model would panic, so a
	// sentinel answer proves the empty context never reached it.
	handler := makeAskHandler(testConfig(&fakeDense{count: 0}))

	_, out, err := handler(context.Background(), nil, AskTariffInput{
		Question: "What are the approved wheeling charges?",
	})

	require.NoError(t, err)
	assert.Equal(t, llm.NoPassagesAnswer, out.Answer)
	assert.Zero(t, out.PassagesUsed)
	assert.Empty(t, out.Rows)
}

func TestChargeRows(t *testing.T) {
	rows := chargeRows([]llm.ChargeRow{
		{ChargeType: "Wheeling Charge", Unit: "Rs/kWh", Value: "0.85", Source: "MSEDCL"},
	})

	require.Len(t, rows, 1)
	assert.Equal(t, "Wheeling Charge", rows[0].ChargeType)
	assert.Equal(t, "Rs/kWh", rows[0].Unit)
	assert.Equal(t, "0.85", rows[0].Value)
	assert.Equal(t, "MSEDCL", rows[0].Source)

	assert.Nil(t, chargeRows(nil))
}

type fakeHealth struct {
	err error
}

func (f fakeHealth) Health(ctx context.Context) error {
	return f.err
}

func TestHealthHandler_Healthy(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)

	NewHealthHandler(fakeHealth{})(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	assert.Contains(t, rec.Body.String(), `"qdrant":"connected"`)
}

func TestHealthHandler_BackendDown(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)

	NewHealthHandler(fakeHealth{err: errors.New("connection refused")})(rec, req)

	assert.Equal(t, 503, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"qdrant":"disconnected"`)
}

func TestLandingHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "ask_tariff")
	assert.Contains(t, rec.Body.String(), "/mcp")
}

func TestLandingHandler_UnknownPath(t *testing.T) {
	rec := httptest.NewRecorder()
	NewLandingHandler()(rec, httptest.NewRequest("GET", "/missing", nil))

	assert.Equal(t, 404, rec.Code)
}
