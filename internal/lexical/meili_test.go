package lexical

import (
	"encoding/json"
	"testing"

	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hitFor builds a raw search hit the way Meilisearch returns them, with
// every field JSON-encoded.
func hitFor(t *testing.T, fields map[string]interface{}) meilisearch.Hit {
	t.Helper()

	hit := make(meilisearch.Hit)
	for k, v := range fields {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		hit[k] = data
	}
	return hit
}

func TestContentFromHit(t *testing.T) {
	hit := hitFor(t, map[string]interface{}{
		"id":          "9f86d081884c7d65",
		"content":     "Fixed charges for HT consumers are Rs. 450 per kVA per month.",
		"page_number": 12,
		"is_table":    false,
	})

	content, ok := contentFromHit(hit)
	assert.True(t, ok)
	assert.Equal(t, "Fixed charges for HT consumers are Rs. 450 per kVA per month.", content)
}

func TestContentFromHit_MissingField(t *testing.T) {
	hit := hitFor(t, map[string]interface{}{
		"id": "9f86d081884c7d65",
	})

	_, ok := contentFromHit(hit)
	assert.False(t, ok)
}

func TestContentFromHit_WrongType(t *testing.T) {
	hit := hitFor(t, map[string]interface{}{
		"content": 42,
	})

	_, ok := contentFromHit(hit)
	assert.False(t, ok, "Non-string content should be skipped")
}

func TestContentFromHit_Empty(t *testing.T) {
	hit := hitFor(t, map[string]interface{}{
		"content": "",
	})

	_, ok := contentFromHit(hit)
	assert.False(t, ok, "Empty content should be skipped")
}

func TestHasAttributes(t *testing.T) {
	assert.True(t, hasAttributes([]string{"source", "is_table", "extra"}, "source", "is_table"))
	assert.False(t, hasAttributes([]string{"source"}, "source", "is_table"))
	assert.False(t, hasAttributes([]string{"*"}, "content"))
	assert.False(t, hasAttributes(nil, "content"))
}
