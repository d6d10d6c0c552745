// Package term holds the ANSI color state shared by the console logger and
// the banner.
//
// [Configure] sets the palette once during startup. When colors are off the
// palette variables are empty strings, so concatenating or [Paint]ing with
// them is a no-op.
package term

import (
	"os"
	"strings"

	"github.com/backmassage/nifbatch/internal/config"
)

// ANSI color codes. Empty when colors are disabled.
var (
	Red     = ""
	Green   = ""
	Yellow  = ""
	Blue    = ""
	Cyan    = ""
	Magenta = ""
	NC      = "" // Reset sequence.
)

// Configure resolves mode against the process's stdout and environment and
// sets the palette accordingly. Tests call it to pin the output.
func Configure(mode config.ColorMode) {
	set(Wants(mode, IsTerminal(os.Stdout), os.Getenv))
}

func set(on bool) {
	if !on {
		Red, Green, Yellow, Blue, Cyan, Magenta, NC = "", "", "", "", "", "", ""
		return
	}
	Red = "\033[1;91m"
	Green = "\033[1;92m"
	Yellow = "\033[1;93m"
	Blue = "\033[1;94m"
	Cyan = "\033[1;96m"
	Magenta = "\033[1;95m"
	NC = "\033[0m"
}

// Enabled reports whether ANSI colors are currently active.
func Enabled() bool { return NC != "" }

// Paint wraps s in color and a reset. With colors off, or an empty color,
// s is returned unchanged.
func Paint(color, s string) string {
	if color == "" || NC == "" {
		return s
	}
	return color + s + NC
}

// Wants decides whether colors should be on. Explicit modes win. In auto
// mode FORCE_COLOR turns colors on; otherwise they need a TTY, an unset
// NO_COLOR (https://no-color.org), and a TERM other than "dumb". Host
// output teed to a pipe in CI stays plain.
func Wants(mode config.ColorMode, tty bool, getenv func(string) string) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	if getenv("FORCE_COLOR") != "" {
		return true
	}
	return tty &&
		getenv("NO_COLOR") == "" &&
		strings.ToLower(getenv("TERM")) != "dumb"
}

// IsTerminal reports whether f is attached to a character device.
func IsTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
