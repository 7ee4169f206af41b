// Package git checks whether decrypted plaintext written by the tool could
// end up committed.
//
// Uses the git command line directly (no library dependency):
//   - git rev-parse --is-inside-work-tree: detect repository
//   - git ls-files: check if a file is tracked
//   - git check-ignore: check if a file is ignored
package git
