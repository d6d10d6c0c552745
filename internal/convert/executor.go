package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/backmassage/nifbatch/internal/device"
)

// defaultWaitDelay bounds how long Invoke waits for output pipes after the
// host exits or is killed (grandchildren can hold them open).
const defaultWaitDelay = 10 * time.Second

// Workspace is the per-worker execution context: the host's working
// directory and extra environment entries ("KEY=value"). The zero value runs
// in the orchestrator's own working directory and environment.
type Workspace struct {
	Dir string
	Env []string
}

// Result holds the outcome of a single host invocation. It is immutable once
// returned by Invoke.
type Result struct {
	Command      []string
	ExitCode     int // -1 when the process could not be launched or was killed.
	Stdout       string
	Stderr       string
	Duration     time.Duration
	Device       device.Resolution
	HostReported device.Request // Best-effort parse of the host's device lines.
	LaunchErr    error
	TimedOut     bool
	Killed       bool
	Cleaned      []string // Stray files removed from the working directory.
}

// OK reports whether the invocation succeeded.
func (r *Result) OK() bool {
	return r.LaunchErr == nil && r.ExitCode == 0 && !r.TimedOut && !r.Killed
}

// CommandLine returns the command shell-quoted for logs.
func (r *Result) CommandLine() string {
	return shellquote.Join(r.Command...)
}

// Failed returns a failed Result for spec without running anything. Used
// when a precondition such as workspace setup fails.
func Failed(spec *Spec, err error) Result {
	res := Result{Command: Build(spec), Device: spec.Device, ExitCode: -1}
	markLaunchFailure(&res, err)
	return res
}

// Runner executes host invocations. The zero value runs without timeout,
// tee, or stray cleanup. A Runner is safe for concurrent use.
type Runner struct {
	Timeout    time.Duration // 0: unbounded.
	Tee        io.Writer     // When set, host stdout/stderr are mirrored here live.
	StrayNames []string      // File names the host may drop in its working directory.
	WaitDelay  time.Duration // 0: defaultWaitDelay.
}

// Invoke builds the command for spec and runs it to completion in ws. When
// ctx is cancelled the host is killed; callers that want in-flight jobs to
// finish pass a context detached from batch cancellation.
func (r *Runner) Invoke(ctx context.Context, spec *Spec, ws Workspace) Result {
	args := Build(spec)
	res := Result{Command: args, Device: spec.Device, ExitCode: -1}

	if err := os.MkdirAll(filepath.Dir(spec.Output), 0o755); err != nil {
		markLaunchFailure(&res, fmt.Errorf("create output directory: %w", err))
		return res
	}

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	strays := r.snapshotStrays(ws.Dir)

	cmd := exec.CommandContext(runCtx, args[0], args[1:]...)
	cmd.Dir = ws.Dir
	if len(ws.Env) > 0 {
		cmd.Env = append(os.Environ(), ws.Env...)
	}
	cmd.WaitDelay = r.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = defaultWaitDelay
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	if r.Tee != nil {
		cmd.Stdout = io.MultiWriter(&stdoutBuf, r.Tee)
		cmd.Stderr = io.MultiWriter(&stderrBuf, r.Tee)
	} else {
		cmd.Stdout = &stdoutBuf
		cmd.Stderr = &stderrBuf
	}

	start := time.Now()
	err := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdoutBuf.String()
	res.Stderr = stderrBuf.String()
	res.Cleaned = r.removeStrays(ws.Dir, strays, spec.Output)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	case runCtx.Err() != nil:
		// Killed before an exit status was available.
	default:
		markLaunchFailure(&res, err)
	}

	if err != nil && runCtx.Err() != nil {
		if ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
			res.Stderr += fmt.Sprintf("\n[nifbatch] timed out after %s; process killed\n", r.Timeout)
		} else {
			res.Killed = true
			res.Stderr += "\n[nifbatch] cancelled; process killed\n"
		}
	}

	detectDevice(&res)
	return res
}

// markLaunchFailure records a launch error. The text goes into Stderr so the
// failure log distinguishes it from an in-process failure.
func markLaunchFailure(res *Result, err error) {
	res.LaunchErr = err
	res.ExitCode = -1
	res.Stderr += "launch error: " + err.Error() + "\n"
}

// detectDevice refines the pre-launch resolution with what the host printed.
func detectDevice(res *Result) {
	combined := res.Stdout + "\n" + res.Stderr
	res.HostReported = device.DetectReported(combined)
	if res.Device.Effective.Accelerated() && device.DetectFallback(combined) {
		res.Device.Effective = device.CPU
		res.Device.Fallback = true
		res.Device.Reason = "host reported no usable accelerator"
	}
}

// snapshotStrays records which stray names already exist in dir so only
// files created by this invocation are removed.
func (r *Runner) snapshotStrays(dir string) map[string]bool {
	if len(r.StrayNames) == 0 {
		return nil
	}
	existing := make(map[string]bool, len(r.StrayNames))
	for _, name := range r.StrayNames {
		if _, err := os.Lstat(filepath.Join(workDir(dir), name)); err == nil {
			existing[name] = true
		}
	}
	return existing
}

func (r *Runner) removeStrays(dir string, existing map[string]bool, output string) []string {
	var removed []string
	outAbs, _ := filepath.Abs(output)
	for _, name := range r.StrayNames {
		if existing[name] {
			continue
		}
		path := filepath.Join(workDir(dir), name)
		if abs, _ := filepath.Abs(path); abs == outAbs {
			continue
		}
		fi, err := os.Lstat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if err := os.Remove(path); err == nil {
			removed = append(removed, path)
		}
	}
	return removed
}

func workDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
