// Command nifbatch is the CLI entrypoint for the LXF/LXFML -> NIF batch
// converter.
//
// It loads configuration, validates it, and either runs system diagnostics
// (--check) or the batch pipeline, which drives one headless host process
// per input file.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/backmassage/nifbatch/internal/check"
	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/device"
	"github.com/backmassage/nifbatch/internal/display"
	"github.com/backmassage/nifbatch/internal/logging"
	"github.com/backmassage/nifbatch/internal/pipeline"
	"github.com/backmassage/nifbatch/internal/report"
)

// version and commit are injected at build time via -ldflags.
// When built with plain "go build" (no make), these retain their defaults.
var (
	version = "1.0.0"
	commit  = "unknown"
)

// envFile is read from the working directory when present.
const envFile = ".env"

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap. The logger doesn't exist yet, so errors go
	// directly to stderr via fmt.
	cfg := config.DefaultConfig()
	if err := config.LoadEnv(&cfg, envFile); err != nil {
		fmt.Fprintf(os.Stderr, "nifbatch: %v\n", err)
		return report.ExitUsage
	}
	if err := config.ParseFlags(&cfg, os.Args[1:], version); err != nil {
		if errors.Is(err, config.ErrHelp) || errors.Is(err, config.ErrVersion) {
			return report.ExitOK
		}
		fmt.Fprintf(os.Stderr, "nifbatch: %v\n", err)
		return report.ExitUsage
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "nifbatch: %v\n", err)
		return report.ExitUsage
	}

	log, err := logging.NewLogger(&cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nifbatch: %v\n", err)
		return report.ExitUsage
	}
	defer log.Close()

	// Phase 2: Logger available. All output goes through log from here on.
	display.PrintBanner(os.Stdout, version)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.CheckOnly {
		check.RunCheck(ctx, &cfg, device.SMIProber{}, log)
		return report.ExitOK
	}

	log.Info("=== nifbatch v%s (%s) ===", version, commit)
	log.Info("In:  %s", cfg.Input)
	if cfg.OutputDir != "" {
		log.Info("Out: %s", cfg.OutputDir)
	} else {
		log.Info("Out: beside each input")
	}

	// Fail fast if the input, host or driver is missing. A dry run only
	// prints commands, so missing host dependencies are just a warning.
	if err := preflight(&cfg); err != nil {
		code := report.ExitCodeFor(err)
		if !cfg.DryRun || code == report.ExitInputNotFound {
			log.Error("%v", err)
			return code
		}
		log.Warn("%v", err)
	}

	// Phase 3: Signal handling. Cancel on SIGINT/SIGTERM so no new files are
	// started; in-flight host processes finish unless --kill-grace is set.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			log.Warn("Received interrupt, finishing in-flight files…")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Phase 4: Run pipeline (discover → schedule → invoke → log → summarize).
	outcome, err := pipeline.Run(ctx, &cfg, log, pipeline.Deps{})
	if err != nil {
		log.Error("%v", err)
		return report.ExitCodeFor(err)
	}

	code, summary := report.Summarize(outcome, report.Options{
		Tolerance: cfg.SkipTolerance,
		Verbose:   cfg.Verbose,
	})
	fmt.Fprintln(os.Stdout)
	fmt.Fprint(os.Stdout, summary)
	if code == report.ExitOK {
		log.Success("Batch complete")
	} else {
		log.Error("Batch finished with failures")
	}
	return code
}

// preflight checks the input before the host dependencies so a missing
// input is reported as not found even when the host is absent too.
func preflight(cfg *config.Config) error {
	if err := pipeline.CheckInput(cfg.Input); err != nil {
		return err
	}
	return check.CheckDeps(cfg)
}
