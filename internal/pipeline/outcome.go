package pipeline

import (
	"sync"
	"time"

	"github.com/backmassage/nifbatch/internal/convert"
)

// Status is a job's terminal state.
type Status string

const (
	StatusPending Status = ""
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Skip reasons.
const (
	ReasonCancelled = "cancelled"
	ReasonExists    = "output exists"
	ReasonDryRun    = "dry-run"
)

// JobResult is the terminal record for one job.
type JobResult struct {
	Job     Job
	Status  Status
	Reason  string          // Skip reason; empty otherwise.
	Result  *convert.Result // Nil for skipped jobs.
	LogPath string
	LogErr  error
}

// Outcome aggregates job results in worklist order. It is written by pool
// workers under a mutex and read after Pool.Run returns.
type Outcome struct {
	RunID    string
	Duration time.Duration

	mu      sync.Mutex
	results []JobResult
	done    int
}

// NewOutcome returns an Outcome with every job pending.
func NewOutcome(jobs []Job, runID string) *Outcome {
	o := &Outcome{RunID: runID, results: make([]JobResult, len(jobs))}
	for i := range jobs {
		o.results[i].Job = jobs[i]
	}
	return o
}

// Record stores jr at its worklist index and returns how many jobs have
// reached a terminal state. A job is recorded at most once.
func (o *Outcome) Record(jr JobResult) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results[jr.Job.Index].Status == StatusPending {
		o.results[jr.Job.Index] = jr
		o.done++
	}
	return o.done
}

// skipPending marks every job that never reached a terminal state as skipped.
func (o *Outcome) skipPending(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.results {
		if o.results[i].Status == StatusPending {
			o.results[i].Status = StatusSkipped
			o.results[i].Reason = reason
			o.done++
		}
	}
}

// Results returns a copy of all results in worklist order.
func (o *Outcome) Results() []JobResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]JobResult(nil), o.results...)
}

// Total returns the worklist size.
func (o *Outcome) Total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.results)
}

// Counts returns the aggregate counts. After Pool.Run returns,
// ok+failed+skipped equals Total.
func (o *Outcome) Counts() (ok, failed, skipped int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range o.results {
		switch r.Status {
		case StatusOK:
			ok++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return ok, failed, skipped
}

// Filter returns the results with status s in worklist order.
func (o *Outcome) Filter(s Status) []JobResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []JobResult
	for _, r := range o.results {
		if r.Status == s {
			out = append(out, r)
		}
	}
	return out
}
