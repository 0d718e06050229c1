package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterDoc struct {
	Count   int      `json:"count"`
	Entries []string `json:"entries"`
}

func openCounter(t *testing.T) (*JSONDocument[counterDoc], *FileStore) {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	doc, err := OpenJSONDocument(fs, "counter.json", func() *counterDoc {
		return &counterDoc{Entries: []string{}}
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = doc.Close() })
	return doc, fs
}

func TestJSONDocumentConcurrentUpdatesAreNotLost(t *testing.T) {
	doc, fs := openCounter(t)
	ctx := context.Background()

	const writers = 40
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := doc.Update(ctx, func(c *counterDoc) error {
				c.Count++
				c.Entries = append(c.Entries, string(rune('a'+i%26)))
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	raw, err := fs.Read(ctx, "counter.json")
	require.NoError(t, err)
	var onDisk counterDoc
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, writers, onDisk.Count)
	assert.Len(t, onDisk.Entries, writers)
}

func TestJSONDocumentFailedMutationWritesNothing(t *testing.T) {
	doc, fs := openCounter(t)
	ctx := context.Background()

	require.NoError(t, doc.Update(ctx, func(c *counterDoc) error { c.Count = 1; return nil }))
	boom := errors.New("boom")
	err := doc.Update(ctx, func(c *counterDoc) error { c.Count = 99; return boom })
	assert.ErrorIs(t, err, boom)

	var seen int
	require.NoError(t, doc.View(ctx, func(c *counterDoc) { seen = c.Count }))
	assert.Equal(t, 1, seen)

	matches, err := filepath.Glob(filepath.Join(fs.BasePath(), ".counter.json.*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches, "temp files must not be left behind")
}

func TestJSONDocumentViewOfMissingFileUsesInit(t *testing.T) {
	doc, fs := openCounter(t)

	var entries []string
	require.NoError(t, doc.View(context.Background(), func(c *counterDoc) { entries = c.Entries }))
	assert.NotNil(t, entries)

	_, err := os.Stat(filepath.Join(fs.BasePath(), "counter.json"))
	assert.True(t, os.IsNotExist(err), "a read must not create the file")
}

func TestJSONDocumentClosed(t *testing.T) {
	doc, _ := openCounter(t)
	require.NoError(t, doc.Close())
	err := doc.Update(context.Background(), func(c *counterDoc) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSanitizeKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    string
		wantErr bool
	}{
		{name: "plain", key: "ledger.json", want: "ledger.json"},
		{name: "leading slash", key: "/data/ledger.json", want: "data/ledger.json"},
		{name: "dot prefix", key: "./users.json", want: "users.json"},
		{name: "windows separators", key: `a\b.json`, want: "a/b.json"},
		{name: "traversal", key: "../etc/passwd", wantErr: true},
		{name: "parent only", key: "..", wantErr: true},
		{name: "empty", key: "  ", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sanitizeKey(tc.key)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("sanitizeKey(%q) expected error, got %q", tc.key, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("sanitizeKey(%q) unexpected error: %v", tc.key, err)
			}
			if got != tc.want {
				t.Fatalf("sanitizeKey(%q) = %q, want %q", tc.key, got, tc.want)
			}
		})
	}
}
