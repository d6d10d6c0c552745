// Package check provides system diagnostics (--check mode) and pre-run
// dependency validation (CheckDeps) for the host executable, the driver
// scripts, the brick database, and GPU accelerators.
package check

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/device"
)

// Sentinel errors returned (wrapped with the offending path) by CheckDeps.
var (
	ErrHostNotFound         = errors.New("host executable not found")
	ErrDriverNotFound       = errors.New("driver script not found")
	ErrRenderDriverNotFound = errors.New("render driver script not found")
	ErrBrickDBNotFound      = errors.New("brick database not found")
)

// versionTimeout bounds the host --version probe; some hosts initialise
// GPU drivers before printing anything.
const versionTimeout = 30 * time.Second

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// GPULister enumerates accelerators for the report. device.SMIProber
// satisfies it.
type GPULister interface {
	List(ctx context.Context) ([]device.GPU, error)
}

// RunCheck runs the interactive --check flow: prints the host version,
// driver and brick database presence, and detected accelerators. This is
// informational only; it does not stop on failure.
func RunCheck(ctx context.Context, cfg *config.Config, gpus GPULister, log Logger) {
	log.Info("=== System Check ===")

	checkHost(ctx, cfg.Host, log)
	checkFile(log, "Driver", cfg.Driver)
	checkFile(log, "Render driver", cfg.RenderDriver)
	checkFile(log, "Brick database", cfg.BrickDB)
	checkGPUs(ctx, cfg, gpus, log)
}

// checkHost verifies the host is resolvable and logs its version line.
func checkHost(ctx context.Context, host string, log Logger) {
	path, err := exec.LookPath(host)
	if err != nil {
		log.Error("Host not found: %s", host)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		log.Warn("Host found at %s but --version failed: %v", path, err)
		return
	}
	log.Success("Host: %s (%s)", firstLine(string(out)), path)
}

func checkFile(log Logger, label, path string) {
	if path == "" {
		log.Info("%s: not configured", label)
		return
	}
	if err := regularFile(path); err != nil {
		log.Error("%s: %v", label, err)
		return
	}
	log.Success("%s: %s", label, path)
}

func checkGPUs(ctx context.Context, cfg *config.Config, gpus GPULister, log Logger) {
	if gpus == nil {
		return
	}
	list, err := gpus.List(ctx)
	switch {
	case err != nil:
		log.Warn("GPU query failed: %v", err)
	case len(list) == 0:
		log.Warn("No NVIDIA GPUs detected (cuda/optix requests will use CPU)")
	default:
		log.Success("GPUs: %d", len(list))
		for _, g := range list {
			log.Info("  [%d] %s", g.Index, g.Name)
		}
	}
	if cfg.Device.Accelerated() && err == nil && len(list) == 0 {
		log.Warn("Configured device %s will fall back to CPU", cfg.Device)
	}
}

// CheckDeps is the pre-run validation: the host must be resolvable, the
// driver for the active job kind must exist, and a configured brick
// database must exist. Returns a wrapped sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath(cfg.Host); err != nil {
		return fmt.Errorf("%w: %s", ErrHostNotFound, cfg.Host)
	}

	driverErr := ErrDriverNotFound
	if cfg.Render {
		driverErr = ErrRenderDriverNotFound
	}
	if err := regularFile(cfg.ActiveDriver()); err != nil {
		return fmt.Errorf("%w: %v", driverErr, err)
	}

	if cfg.BrickDB != "" {
		if _, err := os.Stat(cfg.BrickDB); err != nil {
			return fmt.Errorf("%w: %s", ErrBrickDBNotFound, cfg.BrickDB)
		}
	}
	return nil
}

// --- internal helpers ---

func regularFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !fi.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", path)
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx > 0 {
		return strings.TrimSpace(s[:idx])
	}
	return s
}
