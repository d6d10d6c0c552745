package naming

import (
	"path/filepath"
	"strings"
)

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath builds the output file path for input. ext includes the dot
// (".nif", ".png").
//
//	outputDir set:   <outputDir>/<stem><ext>
//	outputDir empty: <dir of input>/<stem><ext>
func OutputPath(input, outputDir, ext string) string {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, Stem(input)+ext)
}
