package core

import (
	"bufio"
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/awnumar/memguard"
	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/term"

	"github.com/illarion/safe/internal/crypto"
)

const (
	TextSampleSize    = 8192 // Bytes inspected by IsText
	MaxControlPercent = 10   // Control characters tolerated in text, in percent of runes
)

// Conflict markers written into merge files
const (
	markerLocal     = "<<<<<<< local"
	markerSeparator = "======="
	markerIncoming  = ">>>>>>> decrypted"
)

// MergeStrategy defines how to handle an output file that already exists
type MergeStrategy int

const (
	StrategyAsk       MergeStrategy = iota // Ask user for each conflict
	StrategyKeepLocal                      // Always keep the existing file
	StrategyOverwrite                      // Always replace the existing file
	StrategyKeepBoth                       // Always keep both (save new output as .from-safe)
	StrategyAbort                          // Fail on any conflict
)

// ConflictResolution defines the user's choice for a specific conflict
type ConflictResolution int

const (
	ResolutionKeepLocal ConflictResolution = iota
	ResolutionOverwrite
	ResolutionEditMerged
	ResolutionKeepBoth
	ResolutionSkip
)

// ConflictResult contains the resolution and optionally merged data
type ConflictResult struct {
	Resolution ConflictResolution
	MergedData []byte // Populated when Resolution == ResolutionEditMerged
}

// IsText reports whether data looks like text: no NUL byte anywhere, and a
// sampled prefix that is valid UTF-8 with few control characters besides
// tab, newline and carriage return.
func IsText(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return false
	}

	sample := data[:min(len(data), TextSampleSize)]
	truncated := len(data) > TextSampleSize

	runes, control := 0, 0
	for len(sample) > 0 {
		r, size := utf8.DecodeRune(sample)
		if r == utf8.RuneError && size <= 1 {
			// A rune cut by the sample boundary is not an encoding error.
			if truncated && !utf8.FullRune(sample) {
				break
			}
			return false
		}
		if unicode.IsControl(r) && r != '\t' && r != '\n' && r != '\r' {
			control++
		}
		runes++
		sample = sample[size:]
	}

	return control*100 <= runes*MaxControlPercent
}

// SameContent compares two plaintexts in constant time for equal lengths
func SameContent(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// matchesPlain returns a check for existing outputs that already hold plain
func matchesPlain(plain []byte) func(existing []byte) bool {
	return func(existing []byte) bool {
		return SameContent(existing, plain)
	}
}

// matchesEnvelope returns a check for existing envelopes that decrypt under
// key to plain. Envelopes of the same plaintext never match byte for byte.
func matchesEnvelope(key *crypto.CipherKey, plain []byte) func(existing []byte) bool {
	return func(existing []byte) bool {
		decrypted, err := crypto.DecryptBinary(existing, key)
		if err != nil {
			return false
		}
		defer memguard.WipeBytes(decrypted)
		return SameContent(decrypted, plain)
	}
}

type conflictOption struct {
	key        string
	label      string
	resolution ConflictResolution
}

// conflictOptions lists the choices offered for name. Editing is only
// offered when both sides are text.
func conflictOptions(name string, text bool) []conflictOption {
	options := []conflictOption{
		{"l", "Keep existing file", ResolutionKeepLocal},
		{"o", "Overwrite with new output", ResolutionOverwrite},
	}
	if text {
		options = append(options, conflictOption{"e", "Edit merged (opens in $EDITOR)", ResolutionEditMerged})
	}
	return append(options,
		conflictOption{"b", fmt.Sprintf("Keep both (save new output as %s)", name+KeepBothSuffix), ResolutionKeepBoth},
		conflictOption{"x", "Skip this file", ResolutionSkip},
	)
}

func optionKeys(options []conflictOption) string {
	keys := make([]string, len(options))
	for i, opt := range options {
		keys[i] = opt.key
	}
	return strings.Join(keys, ", ")
}

func findOption(options []conflictOption, choice string) (conflictOption, bool) {
	for _, opt := range options {
		if opt.key == choice {
			return opt, true
		}
	}
	return conflictOption{}, false
}

// HandleConflict resolves a conflict between an existing output file and
// newly produced data according to strategy, prompting when it is StrategyAsk.
func HandleConflict(name string, localData, incoming []byte, strategy MergeStrategy) (*ConflictResult, error) {
	switch strategy {
	case StrategyKeepLocal:
		return &ConflictResult{Resolution: ResolutionKeepLocal}, nil
	case StrategyOverwrite:
		return &ConflictResult{Resolution: ResolutionOverwrite}, nil
	case StrategyKeepBoth:
		return &ConflictResult{Resolution: ResolutionKeepBoth}, nil
	case StrategyAbort:
		return &ConflictResult{Resolution: ResolutionSkip}, fmt.Errorf("%w: %s", ErrConflict, name)
	}

	text := IsText(localData) && IsText(incoming)
	options := conflictOptions(name, text)

	kind := "binary"
	if text {
		kind = "text"
	}
	fmt.Printf("\nwarning: conflict detected: %s (%s)\n", name, kind)
	fmt.Printf("   Existing file differs from the new output\n\nOptions:\n")
	for _, opt := range options {
		fmt.Printf("  [%s] %s\n", opt.key, opt.label)
	}

	for {
		fmt.Printf("\nYour choice: ")
		choice, err := readChoice()
		if err != nil {
			return &ConflictResult{Resolution: ResolutionSkip}, err
		}

		opt, ok := findOption(options, choice)
		if !ok {
			fmt.Printf("Invalid choice. Please enter %s\n", optionKeys(options))
			continue
		}
		if opt.resolution != ResolutionEditMerged {
			return &ConflictResult{Resolution: opt.resolution}, nil
		}

		merged, err := handleEditMerge(name, localData, incoming)
		if err != nil {
			fmt.Printf("Error during merge: %v\n", err)
			continue
		}
		return &ConflictResult{Resolution: ResolutionEditMerged, MergedData: merged}, nil
	}
}

// readChoice reads one key from the terminal, falling back to a line when
// raw mode is unavailable. Ctrl-C cancels.
func readChoice() (string, error) {
	tty, release, err := terminal(os.Stdin)
	if err != nil {
		return "", err
	}
	defer release()

	fd := int(tty.Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		line, err := bufio.NewReader(tty).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.ToLower(strings.TrimSpace(line)), nil
	}

	var key [1]byte
	_, err = tty.Read(key[:])
	_ = term.Restore(fd, state)
	if err != nil {
		return "", err
	}
	if key[0] == 3 {
		fmt.Println()
		return "", fmt.Errorf("conflict prompt: %w", context.Canceled)
	}

	choice := strings.ToLower(string(key[:]))
	fmt.Println(choice)
	return choice, nil
}

// editorCommand splits $VISUAL or $EDITOR into program and arguments, so
// values like "code --wait" work.
func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	if runtime.GOOS == "windows" {
		return []string{"notepad"}
	}
	return []string{"vi"}
}

// runEditor opens path in the user's editor on the terminal and waits
func runEditor(path string) error {
	argv := editorCommand()
	program, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("editor %q not found (set VISUAL or EDITOR): %w", argv[0], err)
	}

	cmd := exec.Command(program, append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	if tty, release, err := terminal(os.Stdin); err == nil {
		defer release()
		cmd.Stdin = tty
	}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("editor exited with code %d", exitErr.ExitCode())
		}
		return err
	}
	return nil
}

// createLineDiff creates a line-level diff with conflict markers only around
// differences. Common lines appear once.
func createLineDiff(localData, incoming []byte) []byte {
	dmp := diffmatchpatch.New()

	a, b, lineArray := dmp.DiffLinesToChars(string(localData), string(incoming))
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	return buildConflictFromDiffs(diffs)
}

// writeHunkSide writes consecutive diffs of type op, ending with a newline
func writeHunkSide(buf *bytes.Buffer, diffs []diffmatchpatch.Diff, i int, op diffmatchpatch.Operation) int {
	for i < len(diffs) && diffs[i].Type == op {
		text := diffs[i].Text
		buf.WriteString(text)
		if len(text) > 0 && text[len(text)-1] != '\n' {
			buf.WriteByte('\n')
		}
		i++
	}
	return i
}

// buildConflictFromDiffs converts diff output to conflict-marked content.
// Equal sections pass through unchanged, delete/insert runs become hunks.
func buildConflictFromDiffs(diffs []diffmatchpatch.Diff) []byte {
	var buf bytes.Buffer

	i := 0
	for i < len(diffs) {
		if diffs[i].Type == diffmatchpatch.DiffEqual {
			buf.WriteString(diffs[i].Text)
			i++
			continue
		}

		buf.WriteString(markerLocal + "\n")
		i = writeHunkSide(&buf, diffs, i, diffmatchpatch.DiffDelete)
		buf.WriteString(markerSeparator + "\n")
		i = writeHunkSide(&buf, diffs, i, diffmatchpatch.DiffInsert)
		buf.WriteString(markerIncoming + "\n")
	}

	return buf.Bytes()
}

// createConflictFile writes a private temp file with conflict markers. The
// extension of name is kept for editor syntax highlighting.
func createConflictFile(name string, localData, incoming []byte) (string, error) {
	tmpFile, err := os.CreateTemp("", "safe-merge-*"+filepath.Ext(name))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	path := tmpFile.Name()

	err = tmpFile.Chmod(FilePermSecure)
	if err == nil {
		_, err = tmpFile.Write(createLineDiff(localData, incoming))
	}
	if closeErr := tmpFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write conflict file: %w", err)
	}
	return path, nil
}

// handleEditMerge lets the user edit a conflict-marked file and returns the
// result. The temp file is removed afterwards.
func handleEditMerge(name string, localData, incoming []byte) ([]byte, error) {
	path, err := createConflictFile(name, localData, incoming)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	fmt.Printf("\nopening editor for merge...\n")
	if err := runEditor(path); err != nil {
		return nil, err
	}

	merged, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edited file: %w", err)
	}

	if len(merged) == 0 {
		fmt.Printf("\nwarning: edited file is empty\n")
		if !confirm("Use this empty content?") {
			return nil, fmt.Errorf("merge aborted by user")
		}
	}
	if hasConflictMarkers(merged) {
		fmt.Printf("\nwarning: conflict markers still present in file\n")
		if !confirm("Continue anyway?") {
			return nil, fmt.Errorf("merge aborted by user")
		}
	}

	return merged, nil
}

// confirm asks a yes/no question, defaulting to no
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	choice, err := readChoice()
	return err == nil && choice == "y"
}

// hasConflictMarkers reports whether any line still starts with a marker
func hasConflictMarkers(data []byte) bool {
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		if bytes.HasPrefix(line, []byte(markerLocal[:7])) ||
			bytes.Equal(line, []byte(markerSeparator)) ||
			bytes.HasPrefix(line, []byte(markerIncoming[:7])) {
			return true
		}
	}
	return false
}

// GenerateUnifiedDiff generates a unified diff from stored to local content.
// Returns an empty string if they are identical.
func GenerateUnifiedDiff(name string, stored, local []byte) (string, error) {
	if SameContent(stored, local) {
		return "", nil
	}

	if !IsText(stored) || !IsText(local) {
		return fmt.Sprintf("Binary content %s has changed\n", name), nil
	}

	dmp := diffmatchpatch.New()

	storedStr, localStr := string(stored), string(local)
	a, b, lineArray := dmp.DiffLinesToChars(storedStr, localStr)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	patches := dmp.PatchMake(storedStr, diffs)
	if len(patches) == 0 {
		return "", nil
	}

	var result strings.Builder
	fmt.Fprintf(&result, "--- a/%s\n+++ b/%s\n", name, name)
	result.WriteString(dmp.PatchToText(patches))

	return result.String(), nil
}
