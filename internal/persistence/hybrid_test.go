package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	syncengine "github.com/iamthegreatdestroyer/agentic-qe-core/internal/sync"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestHybrid(t *testing.T) (*HybridProvider, *InMemoryRemote) {
	t.Helper()
	local, err := OpenLocal(filepath.Join(t.TempDir(), "hybrid.db"), nil)
	require.NoError(t, err)
	remote := NewInMemoryRemote()
	h := NewHybrid(local, remote, syncengine.Config{DebounceMs: 20}, nil)
	t.Cleanup(func() { _ = h.Shutdown(context.Background()) })
	return h, remote
}

func TestHybridWritesLocalImmediatelyAndSyncsToRemote(t *testing.T) {
	h, remote := openTestHybrid(t)
	ctx := context.Background()

	entry := MemoryEntry{Key: "k1", Partition: "ns", Value: []byte("v1"), CreatedAt: time.Now()}
	require.NoError(t, h.StoreMemoryEntry(ctx, entry))

	got, err := h.local.GetMemoryEntry(ctx, "k1", "ns")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got.Value)

	require.Eventually(t, func() bool {
		_, err := remote.GetMemoryEntry(ctx, "k1", "ns")
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestHybridReadFallsBackToLocalWhenRemoteEmpty(t *testing.T) {
	h, _ := openTestHybrid(t)
	ctx := context.Background()

	entry := MemoryEntry{Key: "only-local", Partition: "ns", Value: []byte("v"), CreatedAt: time.Now()}
	require.NoError(t, h.local.StoreMemoryEntry(ctx, entry))

	got, err := h.GetMemoryEntry(ctx, "only-local", "ns")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.Value)
}

func TestHybridProviderInfoReportsHybridMode(t *testing.T) {
	h, _ := openTestHybrid(t)
	info := h.ProviderInfo()
	assert.Equal(t, "hybrid", info.Mode)
}
