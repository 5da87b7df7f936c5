// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/service"
	"github.com/FACorreiaa/report-card-importer/pkg/storage"
)

// Importer is the subset of the import service the scheduler drives
type Importer interface {
	ImportBatch(ctx context.Context, files []service.FileInput) *service.BatchResult
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron     *cron.Cron
	schedule string
	store    storage.Storage
	importer Importer
	timeout  time.Duration
	running  sync.Mutex
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that imports the upload inbox on schedule.
func NewScheduler(schedule string, store storage.Storage, importer Importer, logger *slog.Logger) *Scheduler {
	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:     c,
		schedule: schedule,
		store:    store,
		importer: importer,
		timeout:  30 * time.Minute,
		logger:   logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.ProcessInbox(context.Background()) }); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.String("schedule", s.schedule),
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers an inbox scan.
func (s *Scheduler) RunNow() {
	go s.ProcessInbox(context.Background())
}

// ProcessInbox imports every pending upload and files each one as processed
// or failed. Overlapping runs are skipped.
func (s *Scheduler) ProcessInbox(ctx context.Context) (processed, failed int) {
	if !s.running.TryLock() {
		s.logger.Debug("inbox scan already running")
		return 0, 0
	}
	defer s.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pending, err := s.store.Pending(ctx)
	if err != nil {
		s.logger.Error("failed to list pending uploads", slog.Any("error", err))
		return 0, 0
	}
	if len(pending) == 0 {
		return 0, 0
	}

	inputs := make([]service.FileInput, 0, len(pending))
	loaded := make([]*storage.FileInfo, 0, len(pending))
	for _, info := range pending {
		if _, err := s.store.Claim(ctx, info.ID); err != nil {
			if !errors.Is(err, storage.ErrClaimed) {
				s.logger.Warn("failed to claim upload", slog.String("file", info.Name), slog.Any("error", err))
			}
			continue
		}
		data, err := s.read(ctx, info)
		if err != nil {
			s.logger.Warn("failed to read upload", slog.String("file", info.Name), slog.Any("error", err))
			s.complete(ctx, info, false)
			failed++
			continue
		}
		// stored names are unique, so batch errors map back to files
		inputs = append(inputs, service.FileInput{Name: info.Path, Data: data})
		loaded = append(loaded, info)
	}

	if len(inputs) == 0 {
		return processed, failed
	}

	s.logger.Info("starting inbox import", slog.Int("files", len(inputs)))
	batch := s.importer.ImportBatch(ctx, inputs)

	failedPaths := make(map[string]struct{}, len(batch.Errors))
	for _, fe := range batch.Errors {
		failedPaths[fe.File] = struct{}{}
	}
	for _, info := range loaded {
		_, bad := failedPaths[info.Path]
		ok := !bad
		s.complete(ctx, info, ok)
		if ok {
			processed++
		} else {
			failed++
		}
	}

	s.logger.Info("inbox import completed",
		slog.Int("files_processed", processed),
		slog.Int("files_failed", failed),
	)
	return processed, failed
}

func (s *Scheduler) read(ctx context.Context, info *storage.FileInfo) ([]byte, error) {
	rc, _, err := s.store.Open(ctx, info.ID)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (s *Scheduler) complete(ctx context.Context, info *storage.FileInfo, ok bool) {
	if err := s.store.Complete(ctx, info.ID, ok); err != nil {
		s.logger.Warn("failed to file upload",
			slog.String("file_id", info.ID.String()),
			slog.Any("error", err),
		)
	}
}
