package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Discovery sentinels. Both are wrapped in *DiscoveryError.
var (
	ErrInputNotFound = errors.New("input not found")
	ErrNoMatches     = errors.New("no matching input files")
)

// DiscoveryError is fatal to the batch: no jobs run.
type DiscoveryError struct {
	Root string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Root, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// CheckInput reports a missing root the same way Discover does. The CLI
// runs it before dependency checks so a missing input exits as not found.
func CheckInput(root string) error {
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &DiscoveryError{Root: root, Err: ErrInputNotFound}
		}
		return &DiscoveryError{Root: root, Err: err}
	}
	return nil
}

// ParsePatterns splits a "*.lxf;*.lxfml" list (commas also accepted) into
// lowercased globs. Empty entries are dropped.
func ParsePatterns(s string) []string {
	var out []string
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToLower(p))
		}
	}
	return out
}

// Discover returns the input files under root whose base names match one of
// patterns (case-insensitive globs), sorted lexicographically by full path.
//
// A root that is itself a matching file yields just that file; a
// non-matching file yields nothing. Directories are searched one level deep
// unless recursive is set. An empty result is not an error here: the caller
// decides whether an empty worklist is fatal.
func Discover(root string, recursive bool, patterns []string) ([]string, error) {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, &DiscoveryError{Root: root, Err: fmt.Errorf("pattern %q: %w", p, err)}
		}
	}

	fi, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &DiscoveryError{Root: root, Err: ErrInputNotFound}
		}
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	if !fi.IsDir() {
		if matchAny(patterns, filepath.Base(root)) {
			return []string{root}, nil
		}
		return nil, nil
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if !matchAny(patterns, d.Name()) || !isRegular(path, d) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, &DiscoveryError{Root: root, Err: err}
	}
	sort.Strings(files)
	return files, nil
}

func matchAny(patterns []string, name string) bool {
	name = strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, name); ok {
			return true
		}
	}
	return false
}

// isRegular accepts regular files and symlinks that resolve to one.
func isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
