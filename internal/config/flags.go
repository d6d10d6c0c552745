package config

// This file implements CLI flag parsing and help text.
// Flags are grouped into input/output, host, conversion, scheduling, display, and utility.
// Negated flags (e.g. --no-color) are applied after Parse so Config defaults hold unless set.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/backmassage/nifbatch/internal/device"
)

// ErrHelp and ErrVersion are returned by [ParseFlags] after the help text or
// version string has been printed. Callers should exit 0.
var (
	ErrHelp    = errors.New("help requested")
	ErrVersion = errors.New("version requested")
)

// ParseFlags parses args (normally os.Args[1:]) into cfg. Flag errors are
// returned as *UsageError.
func ParseFlags(cfg *Config, args []string, version string) error {
	fs := flag.NewFlagSet("nifbatch", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var n negatedFlags

	definePathFlags(fs, cfg)
	defineHostFlags(fs, cfg)
	defineConversionFlags(fs, cfg, &n)
	defineRenderFlags(fs, cfg)
	defineSchedulingFlags(fs, cfg, &n)
	defineDisplayFlags(fs, cfg, &n)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			printUsage(os.Stderr, version)
			return ErrHelp
		}
		return &UsageError{Err: err}
	}

	if n.showHelp {
		printUsage(os.Stderr, version)
		return ErrHelp
	}
	if n.showVersion {
		fmt.Fprintln(os.Stdout, "nifbatch v"+version)
		return ErrVersion
	}

	if err := applyNegatedFlags(cfg, &n); err != nil {
		return err
	}

	// A bare positional argument is accepted as the input when --input is absent.
	if rest := fs.Args(); len(rest) > 0 {
		if cfg.Input != "" || len(rest) > 1 {
			return usageErrorf("unexpected arguments: %s", strings.Join(rest, " "))
		}
		cfg.Input = rest[0]
	}
	if cfg.OutputDir != "" {
		cfg.OutputDir = NormalizeDirArg(cfg.OutputDir)
	}
	return nil
}

// negatedFlags holds values that are post-processed after Parse: inversions,
// raw strings that need splitting, and exit triggers.
type negatedFlags struct {
	extraArgs   string
	strayNames  string
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// definePathFlags registers --input, --output, --pattern, --recursive.
func definePathFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Input, "input", cfg.Input, "Input file or directory")
	fs.StringVar(&cfg.Input, "i", cfg.Input, "Same as --input")
	fs.StringVar(&cfg.OutputDir, "output", cfg.OutputDir, "Output directory (default: beside each input)")
	fs.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "Same as --output")
	fs.StringVar(&cfg.Pattern, "pattern", cfg.Pattern, "Semicolon-separated discovery globs")
	fs.BoolVar(&cfg.Recursive, "recursive", cfg.Recursive, "Descend into subdirectories")
	fs.BoolVar(&cfg.Recursive, "r", cfg.Recursive, "Same as --recursive")
}

// defineHostFlags registers --host, --driver, --render-driver.
func defineHostFlags(fs *flag.FlagSet, cfg *Config) {
	fs.StringVar(&cfg.Host, "host", cfg.Host, "Host application executable")
	fs.StringVar(&cfg.Driver, "driver", cfg.Driver, "Conversion driver script")
	fs.StringVar(&cfg.RenderDriver, "render-driver", cfg.RenderDriver, "Render driver script")
}

// defineConversionFlags registers device, operator and property overrides.
func defineConversionFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.Var(&deviceValue{&cfg.Device}, "device", "Compute device: cpu | cuda | optix | auto")
	fs.StringVar(&cfg.ImportOp, "import-op", cfg.ImportOp, "Import operator id override")
	fs.StringVar(&cfg.ProcessOp, "process-op", cfg.ProcessOp, "Process operator id override")
	fs.StringVar(&cfg.BakeOp, "bake-op", cfg.BakeOp, "Bake operator id override")
	fs.Var(&propertyList{&cfg.ProcessProps}, "process-prop", "Process property key=value (repeatable)")
	fs.Var(&propertyList{&cfg.BakeProps}, "bake-prop", "Bake property key=value (repeatable)")
	fs.StringVar(&cfg.BrickDB, "brickdb", cfg.BrickDB, "Brick database path for the host plugin")
	fs.StringVar(&n.extraArgs, "extra-driver-args", "", "Extra driver arguments (shell syntax)")
}

// defineRenderFlags registers the render job type and its options.
func defineRenderFlags(fs *flag.FlagSet, cfg *Config) {
	fs.BoolVar(&cfg.Render, "render", cfg.Render, "Run the render job type instead of conversion")
	fs.Var(&renderTypeValue{&cfg.RenderType}, "render-type", "Render preset: brickbuild | rocket | car")
	fs.Float64Var(&cfg.Resolution, "res", cfg.Resolution, "Square render resolution")
	fs.Float64Var(&cfg.FramingScale, "framing-scale", cfg.FramingScale, "Render framing scale")
	fs.StringVar(&cfg.ImageExt, "image-ext", cfg.ImageExt, "Render output extension")
}

// defineSchedulingFlags registers concurrency, timeouts and skip policy.
func defineSchedulingFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "Concurrent host processes")
	fs.IntVar(&cfg.Jobs, "j", cfg.Jobs, "Same as --jobs")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "Per-file timeout (0 = none)")
	fs.DurationVar(&cfg.KillGrace, "kill-grace", cfg.KillGrace, "Kill in-flight jobs this long after interrupt (0 = never)")
	fs.StringVar(&cfg.WorkDirRoot, "workdir-root", cfg.WorkDirRoot, "Root for per-worker working directories")
	fs.StringVar(&n.strayNames, "stray", strings.Join(cfg.StrayNames, ","), "Comma list of stray host files to remove")
	fs.BoolVar(&cfg.SkipExisting, "skip-existing", cfg.SkipExisting, "Skip files whose output already exists")
	fs.IntVar(&cfg.SkipTolerance, "skip-tolerance", cfg.SkipTolerance, "Max skipped files before failing (-1 = unlimited)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "Print commands without running them")
	fs.BoolVar(&cfg.DryRun, "d", cfg.DryRun, "Same as --dry-run")
}

// defineDisplayFlags registers color, verbose, log, check, version and help.
func defineDisplayFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Same as --verbose")
	fs.StringVar(&cfg.LogFile, "log", cfg.LogFile, "Append structured logs to file")
	fs.StringVar(&cfg.LogFile, "l", cfg.LogFile, "Same as --log")
	fs.BoolVar(&cfg.CheckOnly, "check", cfg.CheckOnly, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", cfg.CheckOnly, "Same as --check")
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies post-processed values into cfg.
func applyNegatedFlags(cfg *Config, n *negatedFlags) error {
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}

	if n.extraArgs != "" {
		words, err := shellquote.Split(n.extraArgs)
		if err != nil {
			return usageErrorf("--extra-driver-args: %v", err)
		}
		cfg.ExtraArgs = append(cfg.ExtraArgs, words...)
	}

	var strays []string
	for _, name := range strings.Split(n.strayNames, ",") {
		if name = strings.TrimSpace(name); name != "" {
			strays = append(strays, name)
		}
	}
	cfg.StrayNames = strays
	return nil
}

// printUsage writes the help text to w. Column-aligned for readability.
func printUsage(w io.Writer, version string) {
	const col1 = 34
	lines := []struct {
		flags string
		desc  string
	}{
		{"", "nifbatch v" + version + " - batch LXF/LXFML to NIF converter"},
		{"", ""},
		{"  nifbatch [OPTIONS] --input <file-or-dir> --driver <script>", ""},
		{"", ""},
		{"Input & output", ""},
		{"  -i, --input <path>", "Input file or directory"},
		{"  -o, --output <dir>", "Output directory (default: beside each input)"},
		{"  --pattern <globs>", "Discovery globs (default: " + DefaultConvertPattern + ")"},
		{"  -r, --recursive", "Descend into subdirectories"},
		{"", ""},
		{"Host", ""},
		{"  --host <path>", "Host executable (default: blender, env NIFBATCH_HOST)"},
		{"  --driver <path>", "Conversion driver script (env NIFBATCH_DRIVER)"},
		{"  --render-driver <path>", "Render driver script (env NIFBATCH_RENDER_DRIVER)"},
		{"", ""},
		{"Conversion", ""},
		{"  --device <cpu|cuda|optix|auto>", "Compute device (default: auto)"},
		{"  --import-op <id>", "Import operator override"},
		{"  --process-op <id>", "Process operator override"},
		{"  --bake-op <id>", "Bake operator override"},
		{"  --process-prop <key=value>", "Process property override (repeatable)"},
		{"  --bake-prop <key=value>", "Bake property override (repeatable)"},
		{"  --brickdb <path>", "Brick database path"},
		{"  --extra-driver-args <args>", "Extra driver arguments (shell syntax)"},
		{"", ""},
		{"Render", ""},
		{"  --render", "Render thumbnails instead of converting (pattern: " + DefaultRenderPattern + ")"},
		{"  --render-type <kind>", "brickbuild | rocket | car (default: brickbuild)"},
		{"  --res <n>", "Square resolution"},
		{"  --framing-scale <f>", "Framing scale (1.0 = as framed)"},
		{"  --image-ext <ext>", "Render output extension (default: .png)"},
		{"", ""},
		{"Scheduling", ""},
		{"  -j, --jobs <n>", "Concurrent host processes (default: 1)"},
		{"  --timeout <dur>", "Per-file timeout, e.g. 10m (default: none)"},
		{"  --kill-grace <dur>", "Kill in-flight jobs after interrupt (default: never)"},
		{"  --workdir-root <dir>", "Isolated working directory per worker"},
		{"  --stray <names>", "Stray host files to remove (default: NIF)"},
		{"  --skip-existing", "Skip files whose output exists (default: overwrite)"},
		{"  --skip-tolerance <n>", "Max skips before non-zero exit (default: -1)"},
		{"  -d, --dry-run", "Print commands without running them"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output (tee host output)"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append structured JSON logs to file"},
		{"  -c, --check", "System diagnostics (host, driver, GPUs)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	}

	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(w)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(w, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(w, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(w, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}

// flag.Value adapters so we can use enum types and repeatable lists with flag.Var.

type deviceValue struct{ p *device.Request }

func (d *deviceValue) String() string {
	if d.p == nil {
		return ""
	}
	return string(*d.p)
}
func (d *deviceValue) Set(s string) error {
	r, err := device.Parse(s)
	if err != nil {
		return err
	}
	*d.p = r
	return nil
}

type renderTypeValue struct{ p *RenderType }

func (r *renderTypeValue) String() string {
	if r.p == nil {
		return ""
	}
	return string(*r.p)
}
func (r *renderTypeValue) Set(s string) error {
	switch RenderType(strings.ToLower(s)) {
	case RenderBrickBuild:
		*r.p = RenderBrickBuild
	case RenderRocket:
		*r.p = RenderRocket
	case RenderCar:
		*r.p = RenderCar
	default:
		return fmt.Errorf("invalid render type %q (use 'brickbuild', 'rocket' or 'car')", s)
	}
	return nil
}

// propertyList appends each occurrence, preserving command-line order.
type propertyList struct{ p *[]Property }

func (l *propertyList) String() string {
	if l.p == nil {
		return ""
	}
	parts := make([]string, len(*l.p))
	for i, prop := range *l.p {
		parts[i] = prop.String()
	}
	return strings.Join(parts, ",")
}
func (l *propertyList) Set(s string) error {
	prop, err := ParseProperty(s)
	if err != nil {
		return err
	}
	*l.p = append(*l.p, prop)
	return nil
}
