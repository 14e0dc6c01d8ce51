package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/logluts/internal/duckdb"
	"github.com/tinytelemetry/logluts/internal/history"
	"github.com/tinytelemetry/logluts/internal/httpserver"
)

func runServe(ctx context.Context, cfg appConfig, w io.Writer) error {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	repo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}

	store, err := duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
	if err != nil {
		return fmt.Errorf("open query store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("server: close query store: %v", err)
		}
	}()

	hist := history.New(cfg.CSVFile)
	srv := httpserver.NewServer(cfg.APIAddr, hist, repo, store)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start http api: %w", err)
	}
	defer func() {
		if err := srv.Stop(); err != nil {
			log.Printf("server: stop http api: %v", err)
		}
	}()

	printStartupBanner(w, cfg, store.DBPath(), srv.Addr())

	g, gctx := errgroup.WithContext(ctx)

	// Warm the query store so the first request does not pay for it. A
	// malformed history stops the server; a missing one may appear later.
	g.Go(func() error {
		records, err := hist.LoadAll()
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("server: history %s does not exist yet", cfg.CSVFile)
			return nil
		}
		if err != nil {
			return err
		}
		if err := store.Load(records); err != nil {
			return err
		}
		log.Printf("server: loaded %d history rows", len(records))
		return nil
	})

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("server: shutting down")
	return nil
}

func printStartupBanner(w io.Writer, cfg appConfig, dbPath, addr string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	var lines []string
	lines = append(lines, "")
	lines = append(lines, "    "+cyan.Bold(true).Render("logluts")+" "+dim.Render("v"+version))
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	lines = append(lines, bold.Render("    API"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render("http://"+addr)))
	lines = append(lines, fmt.Sprintf("    %s  Chart          %s", check, cyan.Render("http://"+addr+"/chart")))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Storage"))
	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("    %s  History        %s", check, dim.Render(shortenPath(cfg.CSVFile))))
	if dbPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Query store    %s", check, dim.Render(shortenPath(dbPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Query store    %s", check, dim.Render("in-memory")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Repository     %s", check, dim.Render(shortenPath(cfg.GitPath))))
	lines = append(lines, "")

	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Fprintln(w, strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
