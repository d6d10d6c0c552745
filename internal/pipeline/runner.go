package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/convert"
	"github.com/backmassage/nifbatch/internal/device"
	"github.com/backmassage/nifbatch/internal/display"
	"github.com/backmassage/nifbatch/internal/joblog"
	"github.com/backmassage/nifbatch/internal/logging"
)

// Deps overrides the collaborators Run wires by default. Zero fields get
// the production implementation.
type Deps struct {
	Prober  device.Prober // Default: nvidia-smi.
	Invoker Invoker       // Default: *convert.Runner from cfg.
	RunID   string        // Default: random UUID.
}

// Run is the top-level batch entry point. It discovers inputs, builds the
// worklist, and processes it with a Pool configured from cfg. The returned
// error is always a *DiscoveryError; job failures are reported through the
// Outcome.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, deps Deps) (*Outcome, error) {
	files, err := Discover(cfg.Input, cfg.Recursive, ParsePatterns(cfg.EffectivePattern()))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &DiscoveryError{Root: cfg.Input, Err: ErrNoMatches}
	}
	jobs := NewJobs(cfg, files)

	runID := deps.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log = log.With(zap.String("run_id", runID))

	prober := deps.Prober
	if prober == nil {
		prober = device.SMIProber{}
	}
	invoker := deps.Invoker
	if invoker == nil {
		invoker = newRunner(cfg, log)
	}

	pool := &Pool{
		Concurrency:  cfg.Jobs,
		Resolver:     device.NewSelector(prober, log),
		Invoker:      invoker,
		Logs:         &joblog.Writer{RunID: runID, TailLines: cfg.LogTailLines},
		Log:          log,
		KillGrace:    cfg.KillGrace,
		SkipExisting: cfg.SkipExisting,
		DryRun:       cfg.DryRun,
		Verbose:      cfg.Verbose,
		RunID:        runID,
	}
	if cfg.WorkDirRoot != "" {
		pool.Workspace = DirWorkspaces(cfg.WorkDirRoot)
	}

	logBatchHeader(cfg, log, runID, len(jobs))
	return pool.Run(ctx, jobs), nil
}

// newRunner builds the default host runner from cfg. Stray cleanup needs a
// working directory owned by one host at a time, so it is disabled when
// several workers share the orchestrator's directory.
func newRunner(cfg *config.Config, log *logging.Logger) *convert.Runner {
	r := &convert.Runner{Timeout: cfg.Timeout, StrayNames: cfg.StrayNames}
	if cfg.Verbose {
		r.Tee = os.Stderr
	}
	if cfg.Jobs > 1 && cfg.WorkDirRoot == "" && len(r.StrayNames) > 0 {
		log.Warn("Stray cleanup (%s) disabled: workers share one working directory", strings.Join(r.StrayNames, ", "))
		r.StrayNames = nil
	}
	return r
}

func logBatchHeader(cfg *config.Config, log *logging.Logger, runID string, n int) {
	log.Info("Found %s in %s", display.Plural(n, "file"), cfg.Input)
	mode := "convert"
	if cfg.Render {
		mode = "render (" + string(cfg.RenderType) + ")"
	}
	log.Info("Mode: %s, device: %s, jobs: %d", mode, cfg.Device, cfg.Jobs)
	log.Debug(cfg.Verbose, "Run id: %s", runID)
	log.Debug(cfg.Verbose, "Host: %s, driver: %s", cfg.Host, cfg.ActiveDriver())
	log.Debug(cfg.Verbose, "Patterns: %s", strings.Join(ParsePatterns(cfg.EffectivePattern()), ", "))
	if cfg.Timeout > 0 {
		log.Info("Per-file timeout: %s", cfg.Timeout)
	}
	if cfg.WorkDirRoot != "" {
		log.Info("Worker directories under %s", cfg.WorkDirRoot)
	} else if cfg.Jobs > 1 {
		log.Warn("Running %d host instances in one working directory; use --workdir-root if the host is not safe for that", cfg.Jobs)
	}
	if cfg.SkipExisting {
		log.Info("Existing outputs are skipped")
	}
	if cfg.DryRun {
		log.Warn("Dry run: no host processes will be started")
	}
	log.Event("batch_start",
		zap.String("input", cfg.Input),
		zap.Int("files", n),
		zap.String("device", string(cfg.Device)),
		zap.Int("jobs", cfg.Jobs),
		zap.Bool("render", cfg.Render),
	)
}
