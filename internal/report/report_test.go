package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backmassage/nifbatch/internal/check"
	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/convert"
	"github.com/backmassage/nifbatch/internal/pipeline"
)

// outcomeOf builds an Outcome whose jobs end in the given statuses.
func outcomeOf(t *testing.T, statuses ...pipeline.Status) *pipeline.Outcome {
	t.Helper()
	dir := t.TempDir()
	var files []string
	for i := range statuses {
		files = append(files, filepath.Join(dir, fmt.Sprintf("m%d.lxf", i)))
	}
	cfg := config.DefaultConfig()
	jobs := pipeline.NewJobs(&cfg, files)
	out := pipeline.NewOutcome(jobs, "run-7")
	out.Duration = 1500 * time.Millisecond

	for i, s := range statuses {
		jr := pipeline.JobResult{Job: jobs[i], Status: s}
		switch s {
		case pipeline.StatusOK:
			require.NoError(t, os.WriteFile(jobs[i].Output, make([]byte, 2048), 0o644))
			jr.Result = &convert.Result{}
		case pipeline.StatusFailed:
			jr.Result = &convert.Result{ExitCode: 3}
			jr.LogPath = strings.TrimSuffix(jobs[i].Output, ".nif") + ".err.log"
		case pipeline.StatusSkipped:
			jr.Reason = pipeline.ReasonExists
		}
		out.Record(jr)
	}
	return out
}

func TestSummarize_AllOK(t *testing.T) {
	code, text := Summarize(outcomeOf(t, pipeline.StatusOK, pipeline.StatusOK), Options{Tolerance: -1})
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, text, "Total: 2  OK: 2  Failed: 0  Skipped: 0")
	assert.Contains(t, text, "Output: 4.0 KiB")
	assert.Contains(t, text, "Elapsed: 1.5s")
	assert.Contains(t, text, "Run: run-7")
	assert.NotContains(t, text, "Failed (")
}

func TestSummarize_FailuresListedFirst(t *testing.T) {
	out := outcomeOf(t, pipeline.StatusOK, pipeline.StatusFailed, pipeline.StatusOK, pipeline.StatusFailed)
	code, text := Summarize(out, Options{Tolerance: -1})

	assert.Equal(t, ExitRunFailed, code)
	results := out.Results()
	first := strings.Index(text, results[1].Job.Input)
	second := strings.Index(text, results[3].Job.Input)
	counts := strings.Index(text, "Total:")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second, "failures in worklist order")
	assert.Less(t, second, counts, "failures before counts")
	assert.Contains(t, text, "(exit 3)")
	assert.Contains(t, text, "log: "+results[1].LogPath)
}

func TestSummarize_SkipTolerance(t *testing.T) {
	tests := []struct {
		name      string
		tolerance int
		want      int
	}{
		{"unlimited", -1, ExitOK},
		{"within", 2, ExitOK},
		{"exceeded", 1, ExitRunFailed},
		{"zero", 0, ExitRunFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := outcomeOf(t, pipeline.StatusOK, pipeline.StatusSkipped, pipeline.StatusSkipped)
			code, _ := Summarize(out, Options{Tolerance: tt.tolerance})
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestSummarize_VerboseListsSkips(t *testing.T) {
	out := outcomeOf(t, pipeline.StatusSkipped)
	_, quiet := Summarize(out, Options{Tolerance: -1})
	_, verbose := Summarize(out, Options{Tolerance: -1, Verbose: true})

	assert.NotContains(t, quiet, "Skipped (1)")
	assert.Contains(t, verbose, "Skipped (1)")
	assert.Contains(t, verbose, "(output exists)")
}

func TestFailureDetail(t *testing.T) {
	tests := []struct {
		res  *convert.Result
		want string
	}{
		{nil, ""},
		{&convert.Result{TimedOut: true, ExitCode: -1}, " (timed out)"},
		{&convert.Result{Killed: true, ExitCode: -1}, " (killed)"},
		{&convert.Result{LaunchErr: errors.New("no such file"), ExitCode: -1}, " (launch error: no such file)"},
		{&convert.Result{ExitCode: 2}, " (exit 2)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, failureDetail(pipeline.JobResult{Result: tt.res}))
	}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"usage", &config.UsageError{Err: errors.New("bad flag")}, ExitUsage},
		{"host missing", fmt.Errorf("%w: blender", check.ErrHostNotFound), ExitUsage},
		{"driver missing", fmt.Errorf("%w: x", check.ErrDriverNotFound), ExitUsage},
		{"input not found", &pipeline.DiscoveryError{Root: "x", Err: pipeline.ErrInputNotFound}, ExitInputNotFound},
		{"no matches", &pipeline.DiscoveryError{Root: "x", Err: pipeline.ErrNoMatches}, ExitDiscoveryError},
		{"walk error", &pipeline.DiscoveryError{Root: "x", Err: os.ErrPermission}, ExitDiscoveryError},
		{"other", errors.New("boom"), ExitRunFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}
