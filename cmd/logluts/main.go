package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	// Batch runs print short diagnostics; serve switches to timestamps.
	log.SetFlags(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		stop()
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if showVersion, _ := fs.GetBool("version"); showVersion {
		printVersion(stdout)
		return nil
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	act, err := selectAction(cfg)
	if err != nil {
		return err
	}
	if act == nil {
		fmt.Fprintln(stdout, "nothing to do")
		return nil
	}
	return act(ctx, cfg, stdout)
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "logluts - FPGA resource usage history\n")
	fmt.Fprintf(w, "  Version:    %s\n", version)
	fmt.Fprintf(w, "  Commit:     %s\n", commit)
	fmt.Fprintf(w, "  Built:      %s\n", buildTime)
	fmt.Fprintf(w, "  Go version: %s\n", goVersion)
}
