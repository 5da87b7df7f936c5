package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/handler"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/repository"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/search"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/service"
	"github.com/FACorreiaa/report-card-importer/pkg/config"
	"github.com/FACorreiaa/report-card-importer/pkg/cron"
	"github.com/FACorreiaa/report-card-importer/pkg/db"
	"github.com/FACorreiaa/report-card-importer/pkg/metrics"
	"github.com/FACorreiaa/report-card-importer/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	ReportCardRepo repository.ReportCardRepository

	// Services
	Registry      *prometheus.Registry
	Metrics       *metrics.Recorder
	StudentIndex  *search.StudentIndex
	ImportService *service.ImportService
	FileStorage   storage.Storage
	Scheduler     *cron.Scheduler

	// Handlers
	ReportCardHandler *handler.ReportCardHandler
	Router            http.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        int32(d.Config.Database.MinConns),
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.ReportCardRepo = repository.NewPostgresRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if d.Config.Observability.MetricsEnabled {
		d.Metrics = metrics.New(d.Registry)
	}

	index, err := search.NewStudentIndex()
	if err != nil {
		return fmt.Errorf("failed to init student index: %w", err)
	}
	d.StudentIndex = index

	parserCfg := parser.DefaultConfig()
	parserCfg.Logger = d.Logger
	parserCfg.Subjects = normalizer.SubjectOrder(d.Config.Import.SubjectOrder)
	if d.Config.Import.NameBufferCap > 0 {
		parserCfg.BufferCap = d.Config.Import.NameBufferCap
	}

	pdfParser := parser.NewPDFParser(parser.NewPDFTextDecoder(), parserCfg, d.Logger)
	excelParser := parser.NewExcelParser(parserCfg.Subjects, d.Logger)

	d.ImportService = service.NewImportService(d.ReportCardRepo, pdfParser, excelParser, d.Logger).
		WithStudentIndex(d.StudentIndex).
		WithMetrics(d.Metrics).
		WithSchoolYear(d.Config.Import.SchoolYear).
		WithTimeout(d.Config.Import.DocumentTimeout).
		WithWorkers(d.Config.Import.Workers)

	fileStorage, err := storage.NewLocalStorage(d.Config.Import.UploadDir)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	if d.Config.Import.CronSchedule != "" {
		d.Scheduler = cron.NewScheduler(d.Config.Import.CronSchedule, d.FileStorage, d.ImportService, d.Logger)
	}

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.ReportCardHandler = handler.NewReportCardHandler(d.ImportService, d.ReportCardRepo, d.Logger).
		WithStorage(d.FileStorage).
		WithSearch(d.StudentIndex).
		WithMaxUpload(int64(d.Config.Server.MaxUploadMB) << 20)

	routerCfg := handler.RouterConfig{
		AllowedOrigins:     d.Config.Server.AllowedOrigins,
		RateLimitPerSecond: d.Config.Server.RateLimitPerSecond,
		RateLimitBurst:     d.Config.Server.RateLimitBurst,
	}
	if d.Config.Observability.MetricsEnabled {
		routerCfg.Metrics = metrics.Handler(d.Registry)
	}
	d.Router = handler.NewRouter(d.ReportCardHandler, routerCfg, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.StudentIndex != nil {
		_ = d.StudentIndex.Close()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
