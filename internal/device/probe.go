package device

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// GPU is one accelerator reported by nvidia-smi.
type GPU struct {
	Index int
	Name  string
}

// SMIProber queries NVIDIA GPUs with a single nvidia-smi CSV call. CUDA and
// OptiX both run on the same NVIDIA devices, so the count is shared.
type SMIProber struct {
	Path string // Default: "nvidia-smi" on PATH.
}

// Count implements [Prober]. A missing nvidia-smi binary means zero GPUs,
// not an error.
func (p SMIProber) Count(ctx context.Context, r Request) (int, error) {
	if !r.Accelerated() {
		return 0, nil
	}
	gpus, err := p.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(gpus), nil
}

// List returns the GPUs nvidia-smi reports.
func (p SMIProber) List(ctx context.Context) ([]GPU, error) {
	path := p.Path
	if path == "" {
		path = "nvidia-smi"
	}
	if _, err := exec.LookPath(path); err != nil {
		return nil, nil
	}

	cmd := exec.CommandContext(ctx, path,
		"--query-gpu=index,name",
		"--format=csv,noheader",
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	return ParseGPUList(out)
}

// ParseGPUList converts nvidia-smi "index, name" CSV rows into GPUs.
// Exported for testing without a real nvidia-smi binary.
func ParseGPUList(data []byte) ([]GPU, error) {
	var gpus []GPU
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		idx, name, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("parse nvidia-smi row %q: missing name column", line)
		}
		n, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil {
			return nil, fmt.Errorf("parse nvidia-smi row %q: %w", line, err)
		}
		gpus = append(gpus, GPU{Index: n, Name: strings.TrimSpace(name)})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return gpus, nil
}

// StaticProber reports a fixed count. Useful when the hardware is known
// up front and in tests.
type StaticProber int

func (s StaticProber) Count(ctx context.Context, r Request) (int, error) {
	if !r.Accelerated() {
		return 0, nil
	}
	return int(s), nil
}
