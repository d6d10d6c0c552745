package pipeline

import (
	"github.com/backmassage/nifbatch/internal/config"
	"github.com/backmassage/nifbatch/internal/convert"
	"github.com/backmassage/nifbatch/internal/device"
	"github.com/backmassage/nifbatch/internal/naming"
)

// NIFExt is the extension of conversion outputs.
const NIFExt = ".nif"

// Job is one unit of work: one input, one output. Its identity is Input.
// A Job is owned by the worker that claims it.
type Job struct {
	Index  int // Worklist position.
	Input  string
	Output string
	Device device.Request

	// Spec is the invocation template. Its Device field is filled in per
	// run by the selector.
	Spec convert.Spec
}

// NewJobs builds the worklist for files in order. Output paths are derived
// from cfg and deduplicated so no two jobs share an output.
func NewJobs(cfg *config.Config, files []string) []Job {
	kind := convert.KindConvert
	ext := NIFExt
	if cfg.Render {
		kind = convert.KindRender
		ext = cfg.ImageExt
	}

	resolver := naming.NewCollisionResolver()
	jobs := make([]Job, len(files))
	for i, in := range files {
		out := resolver.Resolve(in, naming.OutputPath(in, cfg.OutputDir, ext))
		jobs[i] = Job{
			Index:  i,
			Input:  in,
			Output: out,
			Device: cfg.Device,
			Spec: convert.Spec{
				Kind:         kind,
				Host:         cfg.Host,
				Driver:       cfg.ActiveDriver(),
				Input:        in,
				Output:       out,
				ImportOp:     cfg.ImportOp,
				ProcessOp:    cfg.ProcessOp,
				BakeOp:       cfg.BakeOp,
				ProcessProps: cfg.ProcessProps,
				BakeProps:    cfg.BakeProps,
				BrickDB:      cfg.BrickDB,
				Extra:        cfg.ExtraArgs,
				Render: convert.Render{
					Type:         cfg.RenderType,
					Resolution:   cfg.Resolution,
					FramingScale: cfg.FramingScale,
				},
			},
		}
	}
	return jobs
}
