// Package device resolves a requested compute device against the hardware
// actually present, downgrading accelerator requests to CPU when no qualifying
// GPU is found. Absence of hardware is a normal condition: resolution never
// fails.
package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Request is the device a caller asks for.
type Request string

const (
	CPU   Request = "cpu"
	CUDA  Request = "cuda"
	OptiX Request = "optix"
	Auto  Request = "auto" // Host-side saved preferences decide.
)

// Parse validates a device name (case-insensitive).
func Parse(s string) (Request, error) {
	switch r := Request(strings.ToLower(strings.TrimSpace(s))); r {
	case CPU, CUDA, OptiX, Auto:
		return r, nil
	default:
		return "", fmt.Errorf("invalid device %q (use 'cpu', 'cuda', 'optix' or 'auto')", s)
	}
}

// Accelerated reports whether r names a GPU backend.
func (r Request) Accelerated() bool { return r == CUDA || r == OptiX }

// Resolution is the outcome of resolving one Request.
type Resolution struct {
	Requested Request
	Effective Request // cpu, cuda, optix, or auto (opaque to this layer).
	Fallback  bool
	Reason    string // Why a fallback happened; empty otherwise.
}

func (r Resolution) String() string {
	if r.Fallback {
		return fmt.Sprintf("%s -> %s (fallback: %s)", r.Requested, r.Effective, r.Reason)
	}
	return string(r.Effective)
}

// Prober counts accelerators usable for an accelerated Request.
type Prober interface {
	Count(ctx context.Context, r Request) (int, error)
}

// Logger is the minimal logging interface the selector needs.
type Logger interface {
	Warn(string, ...interface{})
}

// Selector resolves requests against a Prober. Probe results are cached per
// backend for the selector's lifetime; it is safe for concurrent use.
type Selector struct {
	prober Prober
	log    Logger

	mu     sync.Mutex
	counts map[Request]*probeEntry
}

type probeResult struct {
	n   int
	err error
}

// probeEntry is one backend's probe. done closes once res is set; callers
// for the same backend wait on it instead of probing again.
type probeEntry struct {
	done chan struct{}
	res  probeResult
}

// NewSelector returns a Selector. log may be nil.
func NewSelector(p Prober, log Logger) *Selector {
	return &Selector{prober: p, log: log, counts: make(map[Request]*probeEntry)}
}

// Resolve maps req to the device that will be used. cpu and auto pass
// through unchanged; cuda/optix fall back to cpu with a warning when the
// prober finds nothing (or fails).
func (s *Selector) Resolve(ctx context.Context, req Request) Resolution {
	switch req {
	case CPU, Auto:
		return Resolution{Requested: req, Effective: req}
	case CUDA, OptiX:
		// handled below
	default:
		res := Resolution{Requested: req, Effective: CPU, Fallback: true,
			Reason: fmt.Sprintf("unknown device %q", req)}
		s.warn(res)
		return res
	}

	pr := s.probe(ctx, req)
	if pr.err == nil && pr.n > 0 {
		return Resolution{Requested: req, Effective: req}
	}

	reason := fmt.Sprintf("no %s accelerator found", strings.ToUpper(string(req)))
	if pr.err != nil {
		reason = fmt.Sprintf("accelerator query failed: %v", pr.err)
	}
	res := Resolution{Requested: req, Effective: CPU, Fallback: true, Reason: reason}
	s.warn(res)
	return res
}

// probe returns the cached result for req, running the prober at most once
// per backend. The lock is not held while the prober runs.
func (s *Selector) probe(ctx context.Context, req Request) probeResult {
	s.mu.Lock()
	if e, ok := s.counts[req]; ok {
		s.mu.Unlock()
		select {
		case <-e.done:
			return e.res
		case <-ctx.Done():
			return probeResult{err: ctx.Err()}
		}
	}
	e := &probeEntry{done: make(chan struct{})}
	s.counts[req] = e
	s.mu.Unlock()

	if s.prober != nil {
		n, err := s.prober.Count(ctx, req)
		e.res = probeResult{n: n, err: err}
	}
	// A cancelled probe says nothing about the hardware; don't cache it.
	if ctx.Err() != nil {
		s.mu.Lock()
		delete(s.counts, req)
		s.mu.Unlock()
	}
	close(e.done)
	return e.res
}

func (s *Selector) warn(res Resolution) {
	if s.log != nil {
		s.log.Warn("Device %s requested, using CPU: %s", res.Requested, res.Reason)
	}
}
