package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/service"
	"github.com/FACorreiaa/report-card-importer/pkg/storage"
)

// mockImporter fails every file whose content is "bad"
type mockImporter struct {
	mu    sync.Mutex
	calls [][]service.FileInput
}

func (m *mockImporter) ImportBatch(_ context.Context, files []service.FileInput) *service.BatchResult {
	m.mu.Lock()
	m.calls = append(m.calls, files)
	m.mu.Unlock()

	batch := &service.BatchResult{}
	for _, f := range files {
		if string(f.Data) == "bad" {
			batch.Errors = append(batch.Errors, &service.FileError{File: f.Name, Err: errors.New("unreadable")})
			continue
		}
		batch.Results = append(batch.Results, &service.ImportResult{File: f.Name})
	}
	return batch
}

func newTestScheduler(t *testing.T) (*Scheduler, *storage.LocalStorage, *mockImporter) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	importer := &mockImporter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScheduler("*/5 * * * *", store, importer, logger), store, importer
}

func TestScheduler_ProcessInbox(t *testing.T) {
	ctx := context.Background()
	sched, store, importer := newTestScheduler(t)

	// same display name twice; only one fails
	_, err := store.Save(ctx, "ata.pdf", "application/pdf", strings.NewReader("good"))
	require.NoError(t, err)
	_, err = store.Save(ctx, "ata.pdf", "application/pdf", strings.NewReader("bad"))
	require.NoError(t, err)

	processed, failed := sched.ProcessInbox(ctx)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, failed)

	require.Len(t, importer.calls, 1)
	assert.Len(t, importer.calls[0], 2)
	assert.True(t, strings.HasSuffix(importer.calls[0][0].Name, "_ata.pdf"))

	pending, err := store.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	processed, failed = sched.ProcessInbox(ctx)
	assert.Zero(t, processed)
	assert.Zero(t, failed)
	assert.Len(t, importer.calls, 1, "empty inbox does not call the importer")
}

func TestScheduler_ProcessInboxSkipsClaimed(t *testing.T) {
	ctx := context.Background()
	sched, store, importer := newTestScheduler(t)

	queued, err := store.Save(ctx, "a.pdf", "application/pdf", strings.NewReader("good"))
	require.NoError(t, err)
	_, err = store.SaveClaimed(ctx, "b.pdf", "application/pdf", strings.NewReader("good"))
	require.NoError(t, err)
	taken, err := store.Save(ctx, "c.pdf", "application/pdf", strings.NewReader("good"))
	require.NoError(t, err)
	_, err = store.Claim(ctx, taken.ID)
	require.NoError(t, err)

	processed, failed := sched.ProcessInbox(ctx)
	assert.Equal(t, 1, processed)
	assert.Zero(t, failed)

	require.Len(t, importer.calls, 1)
	require.Len(t, importer.calls[0], 1)
	assert.Equal(t, queued.Path, importer.calls[0][0].Name)

	info, err := store.GetInfo(ctx, taken.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.StateImporting, info.State, "files claimed elsewhere are left alone")
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	sched := NewScheduler("not a schedule", store, &mockImporter{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, sched.Start())
}

func TestScheduler_StartStop(t *testing.T) {
	sched, _, _ := newTestScheduler(t)
	require.NoError(t, sched.Start())
	<-sched.Stop().Done()
}
