// Package joblog writes the per-file result artifact that sits beside each
// output: <output-without-ext>.ok.log on success, .err.log on failure.
//
// Exactly one artifact exists per processed output. Writing one removes the
// opposite artifact left by an earlier run, so re-running a batch converges
// on the latest classification.
package joblog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/nifbatch/internal/convert"
)

// Artifact suffixes appended to the output path without its extension.
const (
	OKSuffix  = ".ok.log"
	ErrSuffix = ".err.log"
)

// DefaultTailLines is the number of trailing output lines kept in logs.
const DefaultTailLines = 40

// Writer writes per-file logs. The zero value uses DefaultTailLines and no
// run id.
type Writer struct {
	RunID     string
	TailLines int
}

// Paths returns the success and failure artifact paths for output.
func Paths(output string) (okPath, errPath string) {
	base := strings.TrimSuffix(output, filepath.Ext(output))
	return base + OKSuffix, base + ErrSuffix
}

// Write records res for the job that converted input into output and
// returns the artifact path. A returned error is informational: callers
// report it and keep the job's classification.
func (w *Writer) Write(input, output string, res *convert.Result) (string, error) {
	okPath, errPath := Paths(output)
	path, stale := errPath, okPath
	body := w.failure(input, output, res)
	if res.OK() {
		path, stale = okPath, errPath
		body = w.success(input, output, res)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return path, fmt.Errorf("create log directory: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return path, fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Remove(stale); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return path, fmt.Errorf("remove stale %s: %w", filepath.Base(stale), err)
	}
	return path, nil
}

func (w *Writer) success(input, output string, res *convert.Result) []byte {
	var b bytes.Buffer
	w.header(&b, "OK", input, output)
	fmt.Fprintf(&b, "device_requested: %s\n", res.Device.Requested)
	fmt.Fprintf(&b, "device_used: %s\n", res.Device.Effective)
	fmt.Fprintf(&b, "fallback: %t\n", res.Device.Fallback)
	if res.Device.Reason != "" {
		fmt.Fprintf(&b, "fallback_reason: %s\n", res.Device.Reason)
	}
	if res.HostReported != "" {
		fmt.Fprintf(&b, "host_reported_device: %s\n", res.HostReported)
	}
	fmt.Fprintf(&b, "duration: %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "command: %s\n", res.CommandLine())
	for _, p := range res.Cleaned {
		fmt.Fprintf(&b, "cleaned: %s\n", p)
	}
	w.section(&b, "stdout (tail)", Tail(res.Stdout, w.tailLines()))
	w.section(&b, "stderr (tail)", Tail(res.Stderr, w.tailLines()))
	return b.Bytes()
}

func (w *Writer) failure(input, output string, res *convert.Result) []byte {
	var b bytes.Buffer
	w.header(&b, "FAILED", input, output)
	fmt.Fprintf(&b, "exit_code: %d\n", res.ExitCode)
	fmt.Fprintf(&b, "timed_out: %t\n", res.TimedOut)
	if res.Killed {
		b.WriteString("killed: true\n")
	}
	if res.LaunchErr != nil {
		fmt.Fprintf(&b, "launch_error: %v\n", res.LaunchErr)
	}
	fmt.Fprintf(&b, "device_requested: %s\n", res.Device.Requested)
	fmt.Fprintf(&b, "device_used: %s\n", res.Device.Effective)
	fmt.Fprintf(&b, "fallback: %t\n", res.Device.Fallback)
	fmt.Fprintf(&b, "duration: %s\n", res.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "command: %s\n", res.CommandLine())
	w.section(&b, "stderr", res.Stderr)
	w.section(&b, "stdout (tail)", Tail(res.Stdout, w.tailLines()))
	return b.Bytes()
}

func (w *Writer) header(b *bytes.Buffer, status, input, output string) {
	fmt.Fprintf(b, "status: %s\n", status)
	if w.RunID != "" {
		fmt.Fprintf(b, "run_id: %s\n", w.RunID)
	}
	fmt.Fprintf(b, "input: %s\n", input)
	fmt.Fprintf(b, "output: %s\n", output)
}

func (w *Writer) section(b *bytes.Buffer, title, text string) {
	fmt.Fprintf(b, "\n--- %s ---\n", title)
	b.WriteString(text)
	if text != "" && !strings.HasSuffix(text, "\n") {
		b.WriteByte('\n')
	}
}

func (w *Writer) tailLines() int {
	if w.TailLines <= 0 {
		return DefaultTailLines
	}
	return w.TailLines
}

// Tail returns the last n lines of s. A trailing newline does not count as
// an extra empty line.
func Tail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	trimmed := strings.TrimRight(s, "\n")
	idx := len(trimmed)
	for i := 0; i < n; i++ {
		j := strings.LastIndexByte(trimmed[:idx], '\n')
		if j < 0 {
			return s
		}
		idx = j
	}
	return s[idx+1:]
}
