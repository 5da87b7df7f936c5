// Command api serves report-card uploads, the dashboard and student search.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/FACorreiaa/report-card-importer/pkg/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Observability.LogLevel)
	slog.SetDefault(logger)

	deps, err := InitDependencies(cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := warmIndex(ctx, deps); err != nil {
		logger.Warn("failed to warm student index", slog.Any("error", err))
	}

	if deps.Scheduler != nil {
		if err := deps.Scheduler.Start(); err != nil {
			return err
		}
		deps.Scheduler.RunNow()
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           deps.Router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Import.DocumentTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// warmIndex loads the current school year into the search index
func warmIndex(ctx context.Context, deps *Dependencies) error {
	classes, err := deps.ReportCardRepo.ListClasses(ctx, deps.Config.Import.SchoolYear)
	if err != nil {
		return err
	}
	return deps.StudentIndex.IndexClasses(classes)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
