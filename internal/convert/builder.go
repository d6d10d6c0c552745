package convert

import (
	"strconv"

	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/device"
)

// Kind is the job type a Spec describes.
type Kind string

const (
	KindConvert Kind = "convert" // Headless LXF/LXFML -> NIF.
	KindRender  Kind = "render"  // UI-mode thumbnail render.
)

// Render holds the render driver's options.
type Render struct {
	Type         config.RenderType
	Resolution   float64 // 0: omit.
	FramingScale float64 // 0: omit.
}

// Spec is everything needed to build one host command line.
type Spec struct {
	Kind   Kind
	Host   string
	Driver string
	Input  string
	Output string
	Device device.Resolution

	ImportOp     string
	ProcessOp    string
	BakeOp       string
	ProcessProps []config.Property
	BakeProps    []config.Property
	BrickDB      string
	Extra        []string

	Render Render
}

// Build constructs the complete host argument slice (args[0] is the host).
//
//	convert: <host> -b --factory-startup --python <driver> -- --input <in> --output <out> --device <d> [overrides...]
//	render:  <host> --python <driver> -- --input <in> --output <out> --device <d> --type-<kind> [--res n] [--framingscale f]
//
// The device passed to the host is the resolved (effective) device.
func Build(s *Spec) []string {
	args := make([]string, 0, 24)

	// --- Host mode flags ---
	args = append(args, s.Host)
	if s.Kind != KindRender {
		args = append(args, "-b", "--factory-startup")
	}
	args = append(args, "--python", s.Driver, "--")

	// --- Driver arguments ---
	args = append(args,
		"--input", s.Input,
		"--output", s.Output,
		"--device", string(effectiveDevice(s.Device)),
	)

	if s.Kind == KindRender {
		return appendRenderArgs(args, s)
	}

	args = appendNonEmpty(args, "--import-op", s.ImportOp)
	args = appendNonEmpty(args, "--process-op", s.ProcessOp)
	args = appendNonEmpty(args, "--bake-op", s.BakeOp)
	for _, p := range s.ProcessProps {
		args = append(args, "--process-prop", p.String())
	}
	for _, p := range s.BakeProps {
		args = append(args, "--bake-prop", p.String())
	}
	args = appendNonEmpty(args, "--brickdb", s.BrickDB)

	return append(args, s.Extra...)
}

func appendRenderArgs(args []string, s *Spec) []string {
	kind := s.Render.Type
	if kind == "" {
		kind = config.RenderBrickBuild
	}
	args = append(args, "--type-"+string(kind))
	if s.Render.Resolution > 0 {
		args = append(args, "--res", formatFloat(s.Render.Resolution))
	}
	if s.Render.FramingScale > 0 {
		args = append(args, "--framingscale", formatFloat(s.Render.FramingScale))
	}
	return append(args, s.Extra...)
}

func appendNonEmpty(args []string, flag, value string) []string {
	if value == "" {
		return args
	}
	return append(args, flag, value)
}

func effectiveDevice(r device.Resolution) device.Request {
	if r.Effective == "" {
		return device.Auto
	}
	return r.Effective
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
