// Package naming derives output paths for discovered inputs and resolves
// in-run collisions when two inputs map to the same output.
//
//   - OutputPath(input, outputDir, ext) → <outputDir>/<stem><ext>, or beside
//     the input when outputDir is empty.
//   - CollisionResolver.Resolve(input, requested) → requested, or
//     <stem>_<n><ext> when another input already claimed it.
package naming
