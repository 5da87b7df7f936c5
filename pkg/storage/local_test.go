package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveAndOpen(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	info, err := store.Save(ctx, "ata 6A.pdf", "application/pdf", strings.NewReader("%PDF-1.4 body"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), info.Size)
	assert.Equal(t, StatePending, info.State)

	rc, got, err := store.Open(ctx, info.ID)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
	assert.Equal(t, "ata 6A.pdf", got.Name)
}

func TestLocalStorage_PendingAndComplete(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	first, err := store.Save(ctx, "a.pdf", "application/pdf", strings.NewReader("a"))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := store.Save(ctx, "b.xlsx", "", strings.NewReader("b"))
	require.NoError(t, err)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	require.NoError(t, store.Complete(ctx, first.ID, true))
	require.NoError(t, store.Complete(ctx, second.ID, false))

	pending, err = store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = os.Stat(filepath.Join(base, string(StateProcessed), first.Path))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(base, string(StateFailed), second.Path))
	assert.NoError(t, err)

	assert.Error(t, store.Complete(ctx, first.ID, true), "completing twice fails")
}

func TestLocalStorage_Claim(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	info, err := store.Save(ctx, "a.pdf", "application/pdf", strings.NewReader("a"))
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Claim(ctx, info.ID); err == nil {
				wins.Add(1)
			} else {
				assert.ErrorIs(t, err, ErrClaimed)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending, "claimed files leave the inbox")

	_, err = os.Stat(filepath.Join(base, string(StateImporting), info.Path))
	assert.NoError(t, err)

	require.NoError(t, store.Complete(ctx, info.ID, true))
	got, err := store.GetInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, StateProcessed, got.State)
}

func TestLocalStorage_SaveClaimed(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	info, err := store.SaveClaimed(ctx, "a.pdf", "application/pdf", strings.NewReader("a"))
	require.NoError(t, err)
	assert.Equal(t, StateImporting, info.State)

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = store.Claim(ctx, info.ID)
	assert.ErrorIs(t, err, ErrClaimed)

	require.NoError(t, store.Complete(ctx, info.ID, false))
	got, err := store.GetInfo(ctx, info.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, got.State)
}

func TestLocalStorage_NotFound(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Open(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "__etc_passwd", sanitizeFilename("../etc/passwd"))
	assert.Equal(t, "notas_2025.xlsx", sanitizeFilename("notas:2025.xlsx"))
}
