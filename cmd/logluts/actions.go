package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinytelemetry/logluts/internal/backup"
	"github.com/tinytelemetry/logluts/internal/duckdb"
	"github.com/tinytelemetry/logluts/internal/gitrepo"
	"github.com/tinytelemetry/logluts/internal/history"
	"github.com/tinytelemetry/logluts/internal/logparse"
	"github.com/tinytelemetry/logluts/internal/model"
	"github.com/tinytelemetry/logluts/internal/report"
	"github.com/tinytelemetry/logluts/internal/timeline"
	"github.com/tinytelemetry/logluts/internal/tui"
)

// action runs one invocation of the tool.
type action func(ctx context.Context, cfg appConfig, w io.Writer) error

// selectAction returns the action asked for, or nil when none was.
func selectAction(cfg appConfig) (action, error) {
	type choice struct {
		flag string
		set  bool
		run  action
	}
	choices := []choice{
		{"--add-commit", cfg.AddCommit, runAddCommit},
		{"--plot", cfg.Plot, runPlot},
		{"--html", cfg.HTMLPath != "", runHTML},
		{"--summary", cfg.Summary, runSummary},
		{"--serve", cfg.Serve, runServe},
	}

	var picked []choice
	for _, c := range choices {
		if c.set {
			picked = append(picked, c)
		}
	}
	switch len(picked) {
	case 0:
		return nil, nil
	case 1:
		return picked[0].run, nil
	}
	names := make([]string, len(picked))
	for i, c := range picked {
		names[i] = c.flag
	}
	return nil, fmt.Errorf("only one action may be given, got %s", strings.Join(names, ", "))
}

func openRepo(ctx context.Context, cfg appConfig) (*gitrepo.Repo, error) {
	repo, err := gitrepo.Open(ctx, cfg.GitPath)
	if err != nil {
		return nil, err
	}
	repo.Branch = cfg.Branch
	return repo, nil
}

// scrapeCurrent scrapes the logs of the last build, prints what it found and
// stamps the result with the current commit.
func scrapeCurrent(ctx context.Context, cfg appConfig, repo model.CommitResolver, w io.Writer) (model.Record, error) {
	fmt.Fprintf(w, "target is %s\n", cfg.target)
	stats, err := logparse.ScrapeFiles(cfg.YosysLog, cfg.NextpnrLog, cfg.target)
	if err != nil {
		return model.Record{}, err
	}
	fmt.Fprintf(w, "flops %d\n", stats.Flops)
	fmt.Fprintf(w, "luts %d\n", stats.LUTs)
	fmt.Fprintf(w, "max freq %.2f MHz\n", stats.FreqMHz)
	if stats.HasLogicCells {
		fmt.Fprintf(w, "lcs %d\n", stats.LogicCells)
	}

	id, err := repo.Current(ctx)
	if err != nil {
		return model.Record{}, err
	}
	return stats.Record(id), nil
}

func runAddCommit(ctx context.Context, cfg appConfig, w io.Writer) error {
	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}

	store := history.New(cfg.CSVFile)
	if err := addCurrent(ctx, cfg, repo, store, w); err != nil {
		return err
	}

	mgr, err := backup.NewManager(store, cfg.backupConfig())
	if err != nil {
		log.Printf("backup: disabled: %v", err)
		return nil
	}
	mgr.AfterAppend(ctx)
	return nil
}

// addCurrent scrapes the logs and appends one record. Nothing is written when
// scraping or commit resolution fails.
func addCurrent(ctx context.Context, cfg appConfig, repo model.CommitResolver, hist model.HistoryWriter, w io.Writer) error {
	rec, err := scrapeCurrent(ctx, cfg, repo, w)
	if err != nil {
		return err
	}
	if err := hist.Append(rec); err != nil {
		return err
	}
	fmt.Fprintf(w, "added %s to %s\n", rec.Commit, cfg.CSVFile)
	return nil
}

// loadRecords reads the history and, with --plot-current, appends the stats
// of the current logs as a trailing record.
func loadRecords(ctx context.Context, cfg appConfig, repo model.CommitResolver, w io.Writer) ([]model.Record, error) {
	records, err := history.New(cfg.CSVFile).LoadAll()
	if err != nil {
		return nil, err
	}
	if cfg.PlotCurrent {
		rec, err := scrapeCurrent(ctx, cfg, repo, w)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func loadPoints(ctx context.Context, cfg appConfig, w io.Writer) ([]model.Point, error) {
	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	records, err := loadRecords(ctx, cfg, repo, w)
	if err != nil {
		return nil, err
	}
	return timeline.Prepare(ctx, records, repo)
}

func runPlot(ctx context.Context, cfg appConfig, w io.Writer) error {
	points, err := loadPoints(ctx, cfg, w)
	if err != nil {
		return err
	}
	return tui.Run(ctx, points)
}

func runHTML(ctx context.Context, cfg appConfig, w io.Writer) error {
	points, err := loadPoints(ctx, cfg, w)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(cfg.HTMLPath, func(out io.Writer) error {
		return report.WriteHTML(out, points)
	}); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %d points to %s\n", len(points), cfg.HTMLPath)
	return nil
}

func runSummary(ctx context.Context, cfg appConfig, w io.Writer) error {
	var resolver model.CommitResolver
	if cfg.PlotCurrent {
		repo, err := openRepo(ctx, cfg)
		if err != nil {
			return err
		}
		resolver = repo
	}

	// Scrape chatter stays off stdout so yaml and json output remain parseable.
	records, err := loadRecords(ctx, cfg, resolver, os.Stderr)
	if err != nil {
		return err
	}

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("open summary store: %w", err)
	}
	defer store.Close()

	if err := store.Load(records); err != nil {
		return err
	}
	summary, err := store.Summary()
	if err != nil {
		return err
	}
	return report.WriteSummary(w, summary, records, cfg.format)
}

// writeFileAtomic writes through a temp file in the target directory, so a
// failed render never leaves a truncated file behind.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}
