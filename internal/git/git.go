package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// PlaintextStatus describes how git sees freshly written plaintext files
type PlaintextStatus struct {
	IsRepo    bool
	Tracked   []string // Plaintext files already tracked by git (bad)
	Unignored []string // Plaintext files not covered by .gitignore (warning)
}

// HasWarnings reports whether any file needs the user's attention
func (s *PlaintextStatus) HasWarnings() bool {
	return len(s.Tracked) > 0 || len(s.Unignored) > 0
}

// IsGitRepo checks if the working directory is inside a git repository
func IsGitRepo(ctx context.Context, workDir string) bool {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = workDir
	return cmd.Run() == nil
}

// IsTracked checks if a file is tracked by git
func IsTracked(ctx context.Context, workDir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--", path)
	cmd.Dir = workDir
	output, err := cmd.Output()
	if err != nil {
		return false
	}

	return len(strings.TrimSpace(string(output))) > 0
}

// IsIgnored checks if a file is ignored by git (handles all .gitignore files)
func IsIgnored(ctx context.Context, workDir, path string) bool {
	cmd := exec.CommandContext(ctx, "git", "check-ignore", "-q", "--", path)
	cmd.Dir = workDir

	// git check-ignore returns exit code 0 if file is ignored
	return cmd.Run() == nil
}

// CheckPlaintext inspects the given files, relative to workDir
func CheckPlaintext(ctx context.Context, workDir string, files []string) *PlaintextStatus {
	status := &PlaintextStatus{}
	if len(files) == 0 || !IsGitRepo(ctx, workDir) {
		return status
	}
	status.IsRepo = true

	for _, file := range files {
		switch {
		case IsTracked(ctx, workDir, file):
			status.Tracked = append(status.Tracked, file)
		case !IsIgnored(ctx, workDir, file):
			status.Unignored = append(status.Unignored, file)
		}
	}

	return status
}

// FormatWarnings formats the status for display, empty when nothing is wrong
func FormatWarnings(status *PlaintextStatus) string {
	if status == nil || !status.IsRepo || !status.HasWarnings() {
		return ""
	}

	var result strings.Builder
	for _, file := range status.Tracked {
		result.WriteString(fmt.Sprintf("error: decrypted %s is tracked by git (run: git rm --cached %s)\n", file, file))
	}
	for _, file := range status.Unignored {
		result.WriteString(fmt.Sprintf("warning: decrypted %s is not in .gitignore\n", file))
	}

	return result.String()
}
