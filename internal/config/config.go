// Package config holds runtime configuration: defaults, environment and CLI
// flag parsing, and validation.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/backmassage/nifbatch/internal/device"
)

// --- Enum types for validated string fields ---

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// RenderType selects the render driver's framing preset.
type RenderType string

const (
	RenderBrickBuild RenderType = "brickbuild" // Default.
	RenderRocket     RenderType = "rocket"
	RenderCar        RenderType = "car"
)

// Default discovery patterns per job kind.
const (
	DefaultConvertPattern = "*.lxf;*.lxfml"
	DefaultRenderPattern  = "*.blend"
)

// UsageError reports bad arguments. It is fatal: no jobs run.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string { return "usage: " + e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Err: fmt.Errorf(format, args...)}
}

// Property is one caller-supplied key=value override passed to the host
// driver verbatim. The orchestrator never interprets Key or Value.
type Property struct {
	Key   string
	Value string
}

// String renders the property in the host's key=value form.
func (p Property) String() string { return p.Key + "=" + p.Value }

// ParseProperty splits raw at the first '='. Only the shape is checked.
func ParseProperty(raw string) (Property, error) {
	k, v, ok := strings.Cut(raw, "=")
	if !ok || k == "" {
		return Property{}, fmt.Errorf("invalid property %q (use key=value)", raw)
	}
	return Property{Key: k, Value: v}, nil
}

// Config holds all runtime settings. It is populated by [DefaultConfig],
// then [LoadEnv], then [ParseFlags], and passed by pointer to packages that
// need it.
type Config struct {
	// Paths.
	Input     string // File or directory (--input).
	OutputDir string // Empty: outputs land beside each input.

	// Host collaborator.
	Host         string // Host executable. Default: "blender".
	Driver       string // Conversion driver script passed via --python.
	RenderDriver string // Render driver script (render mode only).

	// Discovery.
	Pattern   string // Semicolon-separated globs. Default depends on mode.
	Recursive bool

	// Conversion parameters, forwarded to the driver.
	Device       device.Request // Default: auto.
	ImportOp     string
	ProcessOp    string
	BakeOp       string
	ProcessProps []Property
	BakeProps    []Property
	BrickDB      string
	ExtraArgs    []string // Shell-split --extra-driver-args.

	// Render job type.
	Render       bool
	RenderType   RenderType
	Resolution   float64 // 0: driver default.
	FramingScale float64 // 0: driver default.
	ImageExt     string  // Default: ".png".

	// Scheduling.
	Jobs          int           // Default: 1 (strict sequential).
	Timeout       time.Duration // Per invocation. 0: unbounded.
	KillGrace     time.Duration // Hard-kill delay after cancellation. 0: never kill.
	WorkDirRoot   string        // Per-worker working directories live under here.
	StrayNames    []string      // Files the host may drop in its working dir. Default: ["NIF"].
	SkipExisting  bool          // Default: false (re-runs overwrite).
	SkipTolerance int           // Max skips before non-zero exit. -1: unlimited (default).

	// Display and logging.
	DryRun       bool
	Verbose      bool
	ColorMode    ColorMode // Default: "auto".
	LogFile      string    // Optional structured log file.
	LogTailLines int       // Fixed: 40 lines of captured output in per-file logs.
	CheckOnly    bool      // Run --check diagnostics and exit.
}

// DefaultConfig returns a Config with all defaults applied. Used as the base
// before [LoadEnv] and [ParseFlags].
func DefaultConfig() Config {
	return Config{
		Host:          "blender",
		Device:        device.Auto,
		RenderType:    RenderBrickBuild,
		ImageExt:      ".png",
		Jobs:          1,
		StrayNames:    []string{"NIF"},
		SkipExisting:  false,
		SkipTolerance: -1,
		ColorMode:     ColorAuto,
		LogTailLines:  40,
	}
}

// EffectivePattern returns the discovery pattern, falling back to the
// default for the active job kind.
func (c *Config) EffectivePattern() string {
	if c.Pattern != "" {
		return c.Pattern
	}
	if c.Render {
		return DefaultRenderPattern
	}
	return DefaultConvertPattern
}

// ActiveDriver returns the driver script for the active job kind.
func (c *Config) ActiveDriver() string {
	if c.Render {
		return c.RenderDriver
	}
	return c.Driver
}

// Validate checks enum and range fields. When not in CheckOnly mode it also
// requires an input path and a driver for the active job kind. All failures
// are *UsageError.
func (c *Config) Validate() error {
	if _, err := device.Parse(string(c.Device)); err != nil {
		return &UsageError{Err: err}
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return usageErrorf("invalid color mode %q", c.ColorMode)
	}

	switch c.RenderType {
	case RenderBrickBuild, RenderRocket, RenderCar:
		// valid
	default:
		return usageErrorf("invalid render type (use 'brickbuild', 'rocket' or 'car')")
	}

	if c.Jobs < 1 {
		return usageErrorf("--jobs must be at least 1 (got %d)", c.Jobs)
	}
	if c.Timeout < 0 || c.KillGrace < 0 {
		return usageErrorf("durations must not be negative")
	}
	if c.SkipTolerance < -1 {
		return usageErrorf("--skip-tolerance must be -1 (unlimited) or >= 0")
	}
	if c.Resolution < 0 || c.FramingScale < 0 {
		return usageErrorf("--res and --framing-scale must not be negative")
	}
	if c.ImageExt != "" && !strings.HasPrefix(c.ImageExt, ".") {
		c.ImageExt = "." + c.ImageExt
	}
	if strings.TrimSpace(c.Host) == "" {
		return usageErrorf("host executable must not be empty")
	}

	if c.CheckOnly {
		return nil
	}
	if c.Input == "" {
		return &UsageError{Err: errors.New("need --input <file-or-dir>")}
	}
	if c.ActiveDriver() == "" {
		if c.Render {
			return usageErrorf("need --render-driver <script> (or NIFBATCH_RENDER_DRIVER)")
		}
		return usageErrorf("need --driver <script> (or NIFBATCH_DRIVER)")
	}
	return nil
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}
