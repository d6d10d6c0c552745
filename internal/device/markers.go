package device

import (
	"regexp"
	"strings"
)

// Pre-compiled patterns for the host driver's device messages. Detection is
// best-effort: the host decides whether these land on stdout or stderr, so
// callers pass both streams.
var (
	reFallback = regexp.MustCompile(
		`(?i)No (CUDA|OPTIX) GPUs found; using CPU|` +
			`No (CUDA|OPTIX) -> CPU|` +
			`Cycles (addon )?(not available|unavailable)|` +
			`Cannot set backend (CUDA|OPTIX)`)

	reReported = regexp.MustCompile(
		`(?i)\[Device\][^\n]*?(?:Using|->)\s+(CPU|CUDA|OPTIX)\b`)
)

// DetectFallback reports whether host output says an accelerator request
// was downgraded to CPU.
func DetectFallback(output string) bool {
	return reFallback.MatchString(output)
}

// DetectReported returns the last device the host says it used, or "" when
// the output carries no device line.
func DetectReported(output string) Request {
	m := reReported.FindAllStringSubmatch(output, -1)
	if len(m) == 0 {
		return ""
	}
	return Request(strings.ToLower(m[len(m)-1][1]))
}
