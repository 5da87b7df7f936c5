// Command importer parses and imports report-card documents from the shell.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/export"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/insights"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/normalizer"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/parser"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/repository"
	"github.com/FACorreiaa/report-card-importer/internal/domain/reportcard/service"
	"github.com/FACorreiaa/report-card-importer/pkg/config"
	"github.com/FACorreiaa/report-card-importer/pkg/db"
)

var supportedExt = map[string]bool{".pdf": true, ".xlsx": true, ".xls": true}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "importer",
		Short:         "Report-card document importer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringSlice("subjects", nil, "Grade column order (defaults to IMPORT_SUBJECT_ORDER or the built-in order)")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log parser diagnostics to stderr")

	rootCmd.AddCommand(parseCmd(), analyzeCmd(), importCmd())
	return rootCmd
}

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse one document and print the rosters",
		Long: `Parse one report-card document without touching the database.

Example:
  importer parse ata-6a.pdf
  importer parse notas.xlsx --format csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			report, err := parseFile(cmd, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				return writeJSON(out, report)
			case "csv":
				return export.WriteCSV(out, report.Classes, nil)
			case "results":
				return export.WriteResults(out, report.Classes)
			default:
				return fmt.Errorf("unknown format %q (want json, csv or results)", format)
			}
		},
	}
	cmd.Flags().StringP("format", "f", "json", "Output format: json, csv or results")
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Parse one document and print pedagogical insights",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			report, err := parseFile(cmd, args[0])
			if err != nil {
				return err
			}
			analysis := insights.Analyze(report.Classes)

			switch format {
			case "json":
				return writeJSON(cmd.OutOrStdout(), analysis)
			case "text":
				_, err := io.WriteString(cmd.OutOrStdout(), insights.FormatText(analysis, reportTitle(report.Classes, args[0])))
				return err
			default:
				return fmt.Errorf("unknown format %q (want json or text)", format)
			}
		},
	}
	cmd.Flags().StringP("format", "f", "json", "Output format: json or text")
	return cmd
}

// reportTitle names the classes in a document, falling back to its file name
func reportTitle(classes []parser.ParsedClass, path string) string {
	names := make([]string, 0, len(classes))
	for _, c := range classes {
		names = append(names, c.ClassName)
	}
	if len(names) == 0 {
		return filepath.Base(path)
	}
	return strings.Join(names, ", ")
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <files|dirs>...",
		Short: "Import documents into the database",
		Long: `Import report-card documents into PostgreSQL. Directories are scanned
for .pdf, .xlsx and .xls files. A failing document never stops the others.

Example:
  importer import atas/ --year 2025 --workers 4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if y, _ := cmd.Flags().GetInt("year"); y > 0 {
				cfg.Import.SchoolYear = y
			}
			if w, _ := cmd.Flags().GetInt("workers"); w > 0 {
				cfg.Import.Workers = w
			}

			paths, err := collectFiles(args)
			if err != nil {
				return err
			}
			if len(paths) == 0 {
				return fmt.Errorf("no supported documents found")
			}

			files := make([]service.FileInput, 0, len(paths))
			for _, p := range paths {
				data, err := os.ReadFile(p)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", p, err)
				}
				files = append(files, service.FileInput{Name: p, Data: data})
			}

			logger := newLogger(cmd)
			database, err := db.New(db.Config{
				DSN:      cfg.Database.DSN(),
				MaxConns: int32(max(cfg.Database.MaxConns, 1)),
			}, logger)
			if err != nil {
				return err
			}
			defer database.Close()
			if err := database.RunMigrations(); err != nil {
				return err
			}

			subjects := subjectsFlag(cmd, cfg.Import.SubjectOrder)
			parserCfg := parser.DefaultConfig()
			parserCfg.Subjects = subjects
			parserCfg.Logger = logger

			svc := service.NewImportService(
				repository.NewPostgresRepository(database.Pool),
				parser.NewPDFParser(parser.NewPDFTextDecoder(), parserCfg, logger),
				parser.NewExcelParser(subjects, logger),
				logger,
			).
				WithSchoolYear(cfg.Import.SchoolYear).
				WithTimeout(cfg.Import.DocumentTimeout).
				WithWorkers(cfg.Import.Workers)

			batch := svc.ImportBatch(cmd.Context(), files)
			printBatch(cmd.OutOrStdout(), batch)

			if len(batch.Errors) > 0 {
				return fmt.Errorf("%d of %d documents failed", len(batch.Errors), len(files))
			}
			return nil
		},
	}
	cmd.Flags().Int("year", 0, "School year (defaults to IMPORT_SCHOOL_YEAR)")
	cmd.Flags().Int("workers", 0, "Concurrent documents (defaults to IMPORT_WORKERS or GOMAXPROCS)")
	return cmd
}

// parseFile parses a document with the parsers alone; no repository is needed
func parseFile(cmd *cobra.Command, path string) (*service.ParseReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	logger := newLogger(cmd)
	subjects := subjectsFlag(cmd, splitEnv("IMPORT_SUBJECT_ORDER"))
	parserCfg := parser.DefaultConfig()
	parserCfg.Subjects = subjects
	parserCfg.Logger = logger

	svc := service.NewImportService(
		nil,
		parser.NewPDFParser(parser.NewPDFTextDecoder(), parserCfg, logger),
		parser.NewExcelParser(subjects, logger),
		logger,
	)
	return svc.Parse(cmd.Context(), path, data)
}

// collectFiles expands directories into the supported documents they hold
func collectFiles(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		var found []string
		for _, e := range entries {
			if e.IsDir() || !supportedExt[strings.ToLower(filepath.Ext(e.Name()))] {
				continue
			}
			found = append(found, filepath.Join(arg, e.Name()))
		}
		sort.Strings(found)
		out = append(out, found...)
	}
	return out, nil
}

func printBatch(w io.Writer, batch *service.BatchResult) {
	for _, r := range batch.Results {
		fmt.Fprintf(w, "OK    %s: %d classes, %d students, %d grades, %d dropped\n",
			r.File, r.Classes, r.Students, r.Results, r.Dropped)
	}
	for _, e := range batch.Errors {
		fmt.Fprintf(w, "FAIL  %s\n", e.Error())
	}
}

func subjectsFlag(cmd *cobra.Command, fallback []string) []string {
	subjects, _ := cmd.Flags().GetStringSlice("subjects")
	if len(subjects) == 0 {
		subjects = fallback
	}
	return normalizer.SubjectOrder(subjects)
}

func splitEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
