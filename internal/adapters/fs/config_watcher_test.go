package fs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigWatcher_DetectsContentChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "govsync.toml")
	require.NoError(t, os.WriteFile(path, []byte("[networks.anvil]\n"), 0644))

	w, err := NewConfigWatcher(path, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(path, []byte("[networks.sepolia]\n"), 0644))

	select {
	case <-w.Changes():
	case <-time.After(3 * time.Second):
		t.Fatal("expected a change notification")
	}
}

func TestConfigWatcher_IgnoresOtherFilesAndSameContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "govsync.toml")
	content := []byte("[networks.anvil]\n")
	require.NoError(t, os.WriteFile(path, content, 0644))

	w, err := NewConfigWatcher(path, 20*time.Millisecond, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.toml"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(path, content, 0644))

	select {
	case <-w.Changes():
		t.Fatal("unexpected change notification")
	case <-time.After(300 * time.Millisecond):
	}
	assert.Len(t, w.Changes(), 0)
}
