package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/banshee-data/trajectory.report/internal/config"
	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/pipeline"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/store"
	"github.com/banshee-data/trajectory.report/internal/ulogcsv"
)

func runAnalyse(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyse", flag.ContinueOnError)
	configPath := fs.String("config", "", "Analysis config JSON (defaults built in)")
	outDir := fs.String("out", ".", "Directory for the PDF and HTML report")
	name := fs.String("name", "", "Report file base name (defaults to the log directory name)")
	dbPath := fs.String("db", "", "SQLite results database; empty skips storing")
	storeRows := fs.Bool("store-rows", false, "Store every aligned cell in the results database")
	policy := fs.String("policy", "", "Override merge_policy (ordered or asof)")
	verbose := fs.Bool("v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("analyse needs exactly one log directory, got %d", fs.NArg())
	}
	logDir := fs.Arg(0)
	monitoring.SetVerbose(*verbose)

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadAnalysisConfig(*configPath); err != nil {
			return err
		}
	}
	if *policy != "" {
		cfg.MergePolicy = policy
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid -policy: %w", err)
		}
	}

	topics, err := ulogcsv.Load(os.DirFS(logDir), cfg.GetRequiredTopics())
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", logDir, err)
	}
	res, err := pipeline.Run(topics, pipeline.Config{Analysis: cfg})
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	runID := uuid.NewString()
	rep, err := report.Build(runID, res)
	if err != nil {
		return err
	}
	base := *name
	if base == "" {
		base = filepath.Base(filepath.Clean(logDir))
	}
	paths, err := rep.WriteFiles(fsutil.OSFileSystem{}, *outDir, base, cfg.GetPlotWidthIn(), cfg.GetPlotHeightIn())
	if err != nil {
		return err
	}

	if *dbPath != "" {
		db, err := store.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open results database: %w", err)
		}
		defer db.Close()
		if _, err := db.SaveRun(context.Background(), runID, res, store.SaveOptions{
			Source:      logDir,
			MergePolicy: cfg.GetMergePolicy(),
			Config:      cfg,
			Summaries:   rep.Summaries,
			StoreRows:   *storeRows,
		}); err != nil {
			return err
		}
	}

	fmt.Fprintf(stdout, "run %s: %d rows, %d auto runs\n", runID, res.Table.Len(), len(res.AutoRuns))
	for _, s := range rep.Summaries {
		fmt.Fprintf(stdout, "  run %d: %d rows, %d waypoints, path %.1f m, mean error %.2f m, max error %.2f m\n",
			s.GroupID, s.Rows, s.Waypoints, s.PathLength, s.MeanError, s.MaxError)
	}
	for _, p := range paths {
		fmt.Fprintf(stdout, "wrote %s\n", p)
	}
	return nil
}
