// Package convert builds and runs one host-application invocation per job:
// exactly one input file to exactly one output file.
//
// Build assembles the argv from a [Spec]; [Runner.Invoke] runs it to
// completion inside a per-worker [Workspace], captures stdout/stderr, exit
// status and duration, applies post-hoc device fallback detection, and
// removes stray files the host leaves in its working directory. Operator ids
// and property overrides are forwarded verbatim; this package never
// interprets them.
package convert
