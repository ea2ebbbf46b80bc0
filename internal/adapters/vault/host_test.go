package vault

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkcal/internal/adapters/filesystem"
	"linkcal/internal/adapters/sqlite"
)

func newTestHost(t *testing.T, files map[string]string) (*Host, string) {
	t.Helper()
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	vault := t.TempDir()
	for rel, content := range files {
		writeFile(t, vault, rel, content)
	}

	idx := sqlite.NewIndex()
	require.NoError(t, idx.Open(vault))
	t.Cleanup(func() { idx.Close() })

	h := NewHost(filesystem.NewRepository(vault), idx, nil)
	t.Cleanup(func() { h.Close() })

	_, err := h.Sync()
	require.NoError(t, err)
	return h, vault
}

func writeFile(t *testing.T, vault, rel, content string) {
	t.Helper()
	path := filepath.Join(vault, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestHost_LinksTo(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{
		"Projects/Atlas.md":   "# Atlas",
		"Daily/2025-11-05.md": "[[Atlas]] and [[Projects/Atlas|the project]]",
		"Daily/2025-11-06.md": "[[Atlas]]",
	})

	links, err := h.LinksTo(context.Background(), "Projects/Atlas.md")

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Daily/2025-11-05.md": 2, "Daily/2025-11-06.md": 1}, links)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.LinksTo(ctx, "Projects/Atlas.md")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHost_LinksFrom(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{
		"Daily/2025-11-05.md": "[[Atlas]] [[atlas]] [[People/Ada]]",
	})

	edges, err := h.LinksFrom(context.Background(), "Daily/2025-11-05.md")

	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "atlas", edges[0].Target)
	assert.Equal(t, 2, edges[0].Occurrences)
	assert.Equal(t, "people/ada", edges[1].Target)
}

func TestHost_WriteDocumentReindexesAndNotifies(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{"Projects/Atlas.md": "# Atlas"})
	var fired atomic.Int32
	unsubscribe := h.OnLinksResolved(func() { fired.Add(1) })

	err := h.WriteDocument(context.Background(), "Daily/2025-11-07.md", "- [[Atlas]] [[Atlas]]")

	require.NoError(t, err)
	assert.Equal(t, int32(1), fired.Load())
	links, _ := h.LinksTo(context.Background(), "Projects/Atlas.md")
	assert.Equal(t, 2, links["Daily/2025-11-07.md"])

	unsubscribe()
	unsubscribe()
	require.NoError(t, h.WriteDocument(context.Background(), "Daily/2025-11-07.md", "none"))
	assert.Equal(t, int32(1), fired.Load(), "unsubscribed callbacks never run")
}

func TestHost_ActiveGraphDocument(t *testing.T) {
	h, _ := newTestHost(t, nil)

	_, ok := h.ActiveGraphDocument()
	assert.False(t, ok)

	require.NoError(t, h.SetActiveGraphDocument("Boards/Plan.canvas"))
	path, ok := h.ActiveGraphDocument()
	assert.True(t, ok)
	assert.Equal(t, "Boards/Plan.canvas", path)

	assert.Error(t, h.SetActiveGraphDocument("Notes.md"))
	require.NoError(t, h.SetActiveGraphDocument(""))
	_, ok = h.ActiveGraphDocument()
	assert.False(t, ok)
}

func TestHost_LookupDocument(t *testing.T) {
	h, _ := newTestHost(t, map[string]string{"Projects/Atlas.md": "# Atlas"})

	doc, err := h.LookupDocument(context.Background(), "Projects/Atlas.md")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Atlas", doc.Name)

	doc, err = h.LookupDocument(context.Background(), "Missing.md")
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestHost_WatchPicksUpExternalEdits(t *testing.T) {
	h, vault := newTestHost(t, map[string]string{
		"Projects/Atlas.md": "# Atlas",
		"Daily/.keep.md":    "",
	})
	var fired atomic.Int32
	h.OnLinksResolved(func() { fired.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, h.Watch(ctx))
	assert.Error(t, h.Watch(ctx), "a host watches once")

	writeFile(t, vault, "Daily/2025-11-08.md", "- [[Atlas]]")

	require.Eventually(t, func() bool {
		links, _ := h.LinksTo(context.Background(), "Projects/Atlas.md")
		return links["Daily/2025-11-08.md"] == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Positive(t, fired.Load())

	require.NoError(t, os.Remove(filepath.Join(vault, "Daily", "2025-11-08.md")))
	require.Eventually(t, func() bool {
		links, _ := h.LinksTo(context.Background(), "Projects/Atlas.md")
		return len(links) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestOpen(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	vault := t.TempDir()
	writeFile(t, vault, "Projects/Atlas.md", "# Atlas")
	writeFile(t, vault, "Daily/2025-11-05.md", "[[Atlas]]")

	h, err := Open(vault, nil)
	require.NoError(t, err)

	links, err := h.LinksTo(context.Background(), "Projects/Atlas.md")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"Daily/2025-11-05.md": 1}, links)
	assert.NoError(t, h.Close())

	_, err = Open(filepath.Join(vault, "missing"), nil)
	assert.Error(t, err)
}
