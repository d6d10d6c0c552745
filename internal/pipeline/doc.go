// Package pipeline turns a discovered worklist into a batch outcome.
//
// Flow:
//
//	Discover(root) → NewJobs(cfg, files) → Pool.Run(ctx, jobs) → *Outcome
//
// Pool runs each job through the device selector, one host invocation, and
// the per-file log writer. Workers pull job indexes from a channel filled in
// worklist order; results are stored by index so reporting order is the
// discovery order regardless of completion order.
//
// Cancellation stops dispatch. In-flight host processes keep running unless
// KillGrace is set, in which case they are killed once the grace period
// elapses. Jobs that were never started are recorded as skipped.
package pipeline
