package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/backmassage/nifbatch/internal/convert"
	"github.com/backmassage/nifbatch/internal/device"
	"github.com/backmassage/nifbatch/internal/display"
	"github.com/backmassage/nifbatch/internal/logging"
)

// Resolver maps a requested device to the one a job will use.
type Resolver interface {
	Resolve(ctx context.Context, req device.Request) device.Resolution
}

// Invoker runs one host invocation to completion.
type Invoker interface {
	Invoke(ctx context.Context, spec *convert.Spec, ws convert.Workspace) convert.Result
}

// LogWriter writes the per-file result artifact.
type LogWriter interface {
	Write(input, output string, res *convert.Result) (string, error)
}

// WorkspaceFunc supplies the working directory and environment for a
// worker (numbered from 1). An error fails the job being started.
type WorkspaceFunc func(worker int) (convert.Workspace, error)

// DirWorkspaces returns a WorkspaceFunc that gives each worker its own
// directory <root>/worker-<n>, created on demand.
func DirWorkspaces(root string) WorkspaceFunc {
	return func(worker int) (convert.Workspace, error) {
		dir := filepath.Join(root, "worker-"+strconv.Itoa(worker))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return convert.Workspace{}, fmt.Errorf("create workspace: %w", err)
		}
		return convert.Workspace{
			Dir: dir,
			Env: []string{"NIFBATCH_WORKER=" + strconv.Itoa(worker)},
		}, nil
	}
}

// Pool dispatches jobs across a bounded number of workers.
type Pool struct {
	Concurrency int // < 1 is treated as 1.
	Resolver    Resolver
	Invoker     Invoker
	Logs        LogWriter       // Nil: no per-file logs.
	Workspace   WorkspaceFunc   // Nil: shared working directory.
	Log         *logging.Logger // Nil: discard.

	// KillGrace > 0 kills in-flight host processes that are still running
	// this long after ctx is cancelled. 0 lets them finish.
	KillGrace    time.Duration
	SkipExisting bool
	DryRun       bool
	Verbose      bool
	RunID        string
}

// Run processes jobs and returns their outcome. Jobs are fed to workers in
// worklist order; with Concurrency 1 they run strictly sequentially. Every
// job ends up ok, failed, or skipped.
func (p *Pool) Run(ctx context.Context, jobs []Job) *Outcome {
	start := time.Now()
	out := NewOutcome(jobs, p.RunID)
	if p.Log == nil {
		p.Log = logging.New(io.Discard, io.Discard, nil)
	}

	// Host processes outlive batch cancellation unless hard-kill is set.
	procCtx, cancelProcs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelProcs()
	if p.KillGrace > 0 {
		stop := context.AfterFunc(ctx, func() {
			t := time.NewTimer(p.KillGrace)
			defer t.Stop()
			select {
			case <-t.C:
				p.Log.Warn("Grace period (%s) elapsed, killing in-flight jobs", p.KillGrace)
				cancelProcs()
			case <-procCtx.Done():
			}
		})
		defer stop()
	}

	workers := p.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	feed := make(chan int)
	var g errgroup.Group
	for w := 1; w <= workers; w++ {
		worker := w
		g.Go(func() error {
			for i := range feed {
				if ctx.Err() != nil {
					continue // Left pending; skipped below.
				}
				jr := p.runJob(procCtx, worker, &jobs[i])
				n := out.Record(jr)
				p.report(jr, n, len(jobs))
			}
			return nil
		})
	}

dispatch:
	for i := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case feed <- i:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(feed)
	_ = g.Wait()

	if ctx.Err() != nil {
		p.Log.Warn("Interrupted: remaining jobs skipped")
	}
	out.skipPending(ReasonCancelled)
	out.Duration = time.Since(start)
	return out
}

// runJob takes one job through skip checks, device resolution, invocation,
// and log writing.
func (p *Pool) runJob(ctx context.Context, worker int, job *Job) JobResult {
	jr := JobResult{Job: *job}

	if p.SkipExisting {
		if _, err := os.Stat(job.Output); err == nil {
			jr.Status, jr.Reason = StatusSkipped, ReasonExists
			return jr
		}
	}

	spec := job.Spec
	spec.Device = p.resolve(ctx, job.Device)

	if p.DryRun {
		tmp := convert.Result{Command: convert.Build(&spec)}
		p.Log.Info("[DRY] %s", tmp.CommandLine())
		jr.Status, jr.Reason = StatusSkipped, ReasonDryRun
		return jr
	}

	p.Log.Debug(p.Verbose, "Worker %d: %s", worker, filepath.Base(job.Input))

	var res convert.Result
	ws, err := p.workspace(worker)
	if err != nil {
		res = convert.Failed(&spec, fmt.Errorf("workspace for worker %d: %w", worker, err))
	} else {
		res = p.Invoker.Invoke(ctx, &spec, ws)
	}
	jr.Result = &res
	jr.Status = StatusFailed
	if res.OK() {
		jr.Status = StatusOK
	}
	if res.Device.Fallback && !spec.Device.Fallback {
		p.Log.Warn("Host fell back to CPU for %s", filepath.Base(job.Input))
	}

	if p.Logs != nil {
		jr.LogPath, jr.LogErr = p.Logs.Write(job.Input, job.Output, &res)
		if jr.LogErr != nil {
			p.Log.Warn("Cannot write log for %s: %v", filepath.Base(job.Input), jr.LogErr)
		}
	}
	return jr
}

func (p *Pool) resolve(ctx context.Context, req device.Request) device.Resolution {
	if p.Resolver == nil {
		return device.Resolution{Requested: req, Effective: req}
	}
	return p.Resolver.Resolve(ctx, req)
}

func (p *Pool) workspace(worker int) (convert.Workspace, error) {
	if p.Workspace == nil {
		return convert.Workspace{}, nil
	}
	return p.Workspace(worker)
}

// report prints the live progress line for a finished job and emits its
// structured event.
func (p *Pool) report(jr JobResult, done, total int) {
	in, outName := filepath.Base(jr.Job.Input), filepath.Base(jr.Job.Output)
	fields := []zap.Field{
		zap.Int("index", jr.Job.Index),
		zap.String("input", jr.Job.Input),
		zap.String("output", jr.Job.Output),
		zap.String("status", string(jr.Status)),
	}

	switch jr.Status {
	case StatusSkipped:
		p.Log.Info("[SKIP] %s (%s)", in, jr.Reason)
		fields = append(fields, zap.String("reason", jr.Reason))
	case StatusOK:
		p.Log.Success("[OK] %s -> %s (%s)", in, outName, display.FormatDuration(jr.Result.Duration))
	case StatusFailed:
		p.Log.Error("[FAIL:%d] %s -> %s (%s)", jr.Result.ExitCode, in, outName, display.FormatDuration(jr.Result.Duration))
		if jr.LogPath != "" && jr.LogErr == nil {
			p.Log.Error("  See log: %s", jr.LogPath)
		}
	}

	if r := jr.Result; r != nil {
		fields = append(fields,
			zap.Int("exit_code", r.ExitCode),
			zap.Duration("duration", r.Duration),
			zap.String("device_requested", string(r.Device.Requested)),
			zap.String("device_used", string(r.Device.Effective)),
			zap.Bool("fallback", r.Device.Fallback),
			zap.Bool("timed_out", r.TimedOut),
		)
		if r.HostReported != "" {
			fields = append(fields, zap.String("host_reported_device", string(r.HostReported)))
		}
	}
	if jr.LogPath != "" {
		fields = append(fields, zap.String("log_path", jr.LogPath))
	}
	p.Log.Debug(p.Verbose, "Progress: %d/%d", done, total)
	p.Log.Event("job", fields...)
}
