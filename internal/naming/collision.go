package naming

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CollisionResolver tracks output paths claimed by input files and resolves
// duplicates by appending "_N" suffixes. Paths are compared
// case-insensitively because the hosts this runs on commonly have
// case-insensitive filesystems. Resolution happens once, before dispatch,
// so the resolver is not goroutine-safe.
type CollisionResolver struct {
	owners   map[string]string // folded output path → input path that owns it
	counters map[string]int    // folded base output path → next suffix
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		owners:   make(map[string]string),
		counters: make(map[string]int),
	}
}

// Resolve returns the final output path for input. If requestedOutput is
// unclaimed (or already owned by input), it is returned as-is. Otherwise a
// "<stem>_N<ext>" variant is generated.
func (cr *CollisionResolver) Resolve(input, requestedOutput string) string {
	key := fold(requestedOutput)
	owner, exists := cr.owners[key]
	if !exists || owner == input {
		cr.owners[key] = input
		return requestedOutput
	}

	dir := filepath.Dir(requestedOutput)
	base := filepath.Base(requestedOutput)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	counter := cr.counters[key]
	if counter == 0 {
		counter = 1
	}

	for {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, counter, ext))
		cKey := fold(candidate)
		cOwner, cExists := cr.owners[cKey]
		if !cExists || cOwner == input {
			cr.counters[key] = counter + 1
			cr.owners[cKey] = input
			return candidate
		}
		counter++
	}
}

func fold(p string) string {
	return strings.ToLower(filepath.Clean(p))
}
