// Package report turns a batch outcome into the process exit code and the
// human-readable summary.
package report

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/backmassage/nifbatch/internal/check"
	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/display"
	"github.com/backmassage/nifbatch/internal/pipeline"
)

// Process exit codes.
const (
	ExitOK             = 0
	ExitUsage          = 1 // Bad arguments or missing host/driver.
	ExitInputNotFound  = 2
	ExitDiscoveryError = 3 // Walk error or no matching files.
	ExitRunFailed      = 4 // Any job failed, or skip tolerance exceeded.
)

// ExitCodeFor maps a fatal pre-run error to its exit code.
func ExitCodeFor(err error) int {
	var ue *config.UsageError
	var de *pipeline.DiscoveryError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ue),
		errors.Is(err, check.ErrHostNotFound),
		errors.Is(err, check.ErrDriverNotFound),
		errors.Is(err, check.ErrRenderDriverNotFound),
		errors.Is(err, check.ErrBrickDBNotFound):
		return ExitUsage
	case errors.Is(err, pipeline.ErrInputNotFound):
		return ExitInputNotFound
	case errors.As(err, &de):
		return ExitDiscoveryError
	default:
		return ExitRunFailed
	}
}

// Options tunes Summarize.
type Options struct {
	Tolerance int  // Max skipped jobs before a non-zero exit. < 0: unlimited.
	Verbose   bool // List skipped jobs with reasons.
}

// Summarize returns the exit code for outcome and the summary text: failed
// jobs first (worklist order) with their log paths, then skipped jobs when
// verbose, then the counts.
func Summarize(outcome *pipeline.Outcome, opts Options) (int, string) {
	ok, failed, skipped := outcome.Counts()

	var b strings.Builder
	if failures := outcome.Filter(pipeline.StatusFailed); len(failures) > 0 {
		fmt.Fprintf(&b, "Failed (%d):\n", len(failures))
		for _, r := range failures {
			fmt.Fprintf(&b, "  %s%s\n", r.Job.Input, failureDetail(r))
			if r.LogPath != "" && r.LogErr == nil {
				fmt.Fprintf(&b, "    log: %s\n", r.LogPath)
			}
		}
	}
	if opts.Verbose {
		if skips := outcome.Filter(pipeline.StatusSkipped); len(skips) > 0 {
			fmt.Fprintf(&b, "Skipped (%d):\n", len(skips))
			for _, r := range skips {
				fmt.Fprintf(&b, "  %s (%s)\n", r.Job.Input, r.Reason)
			}
		}
	}

	fmt.Fprintf(&b, "Total: %d  OK: %d  Failed: %d  Skipped: %d\n", outcome.Total(), ok, failed, skipped)
	if size := outputBytes(outcome); size > 0 {
		fmt.Fprintf(&b, "Output: %s\n", display.FormatBytes(size))
	}
	fmt.Fprintf(&b, "Elapsed: %s", display.FormatDuration(outcome.Duration))
	if outcome.RunID != "" {
		fmt.Fprintf(&b, "  Run: %s", outcome.RunID)
	}
	b.WriteByte('\n')

	code := ExitOK
	switch {
	case failed > 0:
		code = ExitRunFailed
	case opts.Tolerance >= 0 && skipped > opts.Tolerance:
		code = ExitRunFailed
		fmt.Fprintf(&b, "Skipped %d exceeds tolerance %d\n", skipped, opts.Tolerance)
	}
	return code, b.String()
}

func failureDetail(r pipeline.JobResult) string {
	res := r.Result
	if res == nil {
		return ""
	}
	switch {
	case res.TimedOut:
		return " (timed out)"
	case res.Killed:
		return " (killed)"
	case res.LaunchErr != nil:
		return fmt.Sprintf(" (launch error: %v)", res.LaunchErr)
	default:
		return fmt.Sprintf(" (exit %d)", res.ExitCode)
	}
}

// outputBytes sums the sizes of outputs produced by ok jobs.
func outputBytes(outcome *pipeline.Outcome) int64 {
	var total int64
	for _, r := range outcome.Filter(pipeline.StatusOK) {
		if fi, err := os.Stat(r.Job.Output); err == nil {
			total += fi.Size()
		}
	}
	return total
}
