package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regwatch/tariffqa/internal/document"
	"github.com/regwatch/tariffqa/internal/extract"
)

func sampleExtraction() *extract.Extraction {
	return &extract.Extraction{
		Pages: []document.Page{
			{PageNumber: 1, Content: "The approved energy charge is Rs. 4.50 per unit.", Source: "MYT_Order_2025"},
			{PageNumber: 2, Content: "Wheeling charges apply at 33 kV and below.", Source: "MYT_Order_2025"},
		},
		Tables: []document.Chunk{
			{
				PageNumber:   2,
				Content:      "Table 5: Approved Wheeling Charges\nVoltage Level|Charge\n33 kV|0.85",
				Source:       "MYT_Order_2025",
				TableHeading: "Table 5: Approved Wheeling Charges",
				HeaderRow:    "Voltage Level|Charge",
				IsTable:      true,
			},
		},
	}
}

func writeTestPDF(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPDF(t, dir, "MYT_Order_2025.pdf", "order body")
	params := Params{ChunkSize: 300, ChunkOverlap: 30}

	first, err := Fingerprint(path, params)
	require.NoError(t, err)
	second, err := Fingerprint(path, params)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
}

func TestFingerprint_ChangedInputsChangeKey(t *testing.T) {
	dir := t.TempDir()
	path := writeTestPDF(t, dir, "MYT_Order_2025.pdf", "order body")
	params := Params{ChunkSize: 300, ChunkOverlap: 30}

	base, err := Fingerprint(path, params)
	require.NoError(t, err)

	resized, err := Fingerprint(path, Params{ChunkSize: 500, ChunkOverlap: 30})
	require.NoError(t, err)
	assert.NotEqual(t, base, resized)

	require.NoError(t, os.WriteFile(path, []byte("amended order body"), 0o644))
	amended, err := Fingerprint(path, params)
	require.NoError(t, err)
	assert.NotEqual(t, base, amended)
}

func TestFingerprint_MissingFile(t *testing.T) {
	_, err := Fingerprint(filepath.Join(t.TempDir(), "absent.pdf"), Params{})
	assert.Error(t, err)
}

func TestGetOrBuild_BuildsOnceThenHits(t *testing.T) {
	c, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)

	var builds atomic.Int32
	build := func(ctx context.Context) (*extract.Extraction, error) {
		builds.Add(1)
		return sampleExtraction(), nil
	}

	ext, hit, err := c.GetOrBuild(context.Background(), "key-a", build)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, ext.Pages, 2)

	ext, hit, err = c.GetOrBuild(context.Background(), "key-a", build)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, ext.Pages, 2)
	assert.Equal(t, int32(1), builds.Load())
}

func TestGetOrBuild_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()

	first, err := New(dir, 0, nil)
	require.NoError(t, err)
	_, hit, err := first.GetOrBuild(context.Background(), "key-a", func(ctx context.Context) (*extract.Extraction, error) {
		return sampleExtraction(), nil
	})
	require.NoError(t, err)
	require.False(t, hit)

	second, err := New(dir, 0, nil)
	require.NoError(t, err)
	ext, hit, err := second.GetOrBuild(context.Background(), "key-a", func(ctx context.Context) (*extract.Extraction, error) {
		t.Fatal("build called despite persisted entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
	require.Len(t, ext.Tables, 1)
	assert.Equal(t, "Table 5: Approved Wheeling Charges", ext.Tables[0].TableHeading)
	assert.True(t, ext.Tables[0].IsTable)
}

func TestGetOrBuild_BuildErrorNotCached(t *testing.T) {
	c, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)

	wantErr := errors.New("parse failed")
	_, _, err = c.GetOrBuild(context.Background(), "key-a", func(ctx context.Context) (*extract.Extraction, error) {
		return nil, wantErr
	})
	require.ErrorIs(t, err, wantErr)

	_, hit, err := c.GetOrBuild(context.Background(), "key-a", func(ctx context.Context) (*extract.Extraction, error) {
		return sampleExtraction(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetOrBuild_ConcurrentCallersShareOneBuild(t *testing.T) {
	c, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)

	var builds atomic.Int32
	build := func(ctx context.Context) (*extract.Extraction, error) {
		builds.Add(1)
		time.Sleep(20 * time.Millisecond)
		return sampleExtraction(), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ext, _, err := c.GetOrBuild(context.Background(), "key-a", build)
			assert.NoError(t, err)
			assert.NotNil(t, ext)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), builds.Load())
}

func TestGetOrBuild_CorruptEntryRebuilt(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir, 0, nil)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "key-a.json"), []byte("{not json"), 0o644))

	var builds atomic.Int32
	ext, hit, err := c.GetOrBuild(context.Background(), "key-a", func(ctx context.Context) (*extract.Extraction, error) {
		builds.Add(1)
		return sampleExtraction(), nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(1), builds.Load())
	require.Len(t, ext.Pages, 2)

	// The rebuild overwrites the corrupt file.
	fresh, err := New(dir, 0, nil)
	require.NoError(t, err)
	_, hit, err = fresh.GetOrBuild(context.Background(), "key-a", func(ctx context.Context) (*extract.Extraction, error) {
		t.Fatal("build called despite repaired entry")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestClear(t *testing.T) {
	c, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)

	var builds atomic.Int32
	build := func(ctx context.Context) (*extract.Extraction, error) {
		builds.Add(1)
		return sampleExtraction(), nil
	}
	_, _, err = c.GetOrBuild(context.Background(), "key-a", build)
	require.NoError(t, err)

	require.NoError(t, c.Clear())
	assert.Equal(t, Stats{}, c.Stats())

	_, hit, err := c.GetOrBuild(context.Background(), "key-a", build)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, int32(2), builds.Load())
}

func TestStats(t *testing.T) {
	c, err := New(t.TempDir(), 0, nil)
	require.NoError(t, err)

	for _, key := range []string{"key-a", "key-b"} {
		_, _, err := c.GetOrBuild(context.Background(), key, func(ctx context.Context) (*extract.Extraction, error) {
			return sampleExtraction(), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, Stats{MemoryEntries: 2, DiskEntries: 2}, c.Stats())
}
