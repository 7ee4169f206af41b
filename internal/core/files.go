package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/awnumar/memguard"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/git"
	"github.com/illarion/safe/internal/security"
)

const (
	EncryptedSuffix = "-encrypted.bin"
	DecryptedSuffix = ".decrypted" // appended when an input lacks EncryptedSuffix
)

// Trailing " (1)", " (2) (3)" blocks added to duplicate downloads
var duplicateSuffix = regexp.MustCompile(`(?:\s\(\d+\))+$`)

// BatchResult contains the results of a file batch
type BatchResult struct {
	Written  []string // Output names written
	Skipped  []string // Outputs left untouched
	Errors   []string // Inputs or outputs that failed
	Warnings string   // Git warnings about written plaintext
}

func newBatchResult() *BatchResult {
	return &BatchResult{
		Written: []string{},
		Skipped: []string{},
		Errors:  []string{},
	}
}

// CleanFilename removes trailing " (N)" blocks from the file stem, keeping
// the extension.
func CleanFilename(filename string) string {
	name, ext := filename, ""
	if dot := strings.LastIndex(filename, "."); dot != -1 {
		name, ext = filename[:dot], filename[dot:]
	}
	return duplicateSuffix.ReplaceAllString(name, "") + ext
}

// EncryptedName returns the output name for encrypting path
func EncryptedName(path string) string {
	return CleanFilename(filepath.Base(path)) + EncryptedSuffix
}

// DecryptedName returns the output name for decrypting path
func DecryptedName(path string) string {
	cleaned := CleanFilename(filepath.Base(path))
	if !strings.Contains(cleaned, EncryptedSuffix) {
		return cleaned + DecryptedSuffix
	}
	return strings.Replace(cleaned, EncryptedSuffix, "", 1)
}

// ExpandInputs resolves glob patterns. Patterns without a match are kept
// as-is so the read error is reported for them.
func ExpandInputs(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			files = append(files, pattern)
			continue
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return nil, ErrNoInputFiles
	}
	return files, nil
}

// EncryptFiles encrypts each input into outDir as <clean name>-encrypted.bin.
// Inputs are processed sequentially; per-file failures are collected in the
// result and do not stop the batch.
func (s *Safe) EncryptFiles(ctx context.Context, inputs []string, outDir string, strategy MergeStrategy) (*BatchResult, error) {
	files, err := ExpandInputs(inputs)
	if err != nil {
		return nil, err
	}

	dir, err := security.New(outDir)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	key, err := s.Key(ctx)
	if err != nil {
		return nil, err
	}

	result := newBatchResult()
	for _, file := range files {
		if err := checkContext(ctx); err != nil {
			return result, err
		}
		s.printf("working on %s\n", file)

		data, err := readInput(file)
		if err != nil {
			s.fail(result, file, "cannot read", err)
			continue
		}

		envelope, err := crypto.EncryptBinary(data, key)
		if err != nil {
			memguard.WipeBytes(data)
			s.fail(result, file, "cannot encrypt", err)
			continue
		}

		s.writeOutput(dir, EncryptedName(file), envelope, strategy, matchesEnvelope(key, data), "encrypted", result)
		memguard.WipeBytes(data)
	}

	s.log.Info().Int("written", len(result.Written)).Int("skipped", len(result.Skipped)).
		Int("errors", len(result.Errors)).Msg("encrypt batch finished")
	return result, nil
}

// DecryptFiles decrypts each binary envelope into outDir, dropping the
// -encrypted.bin suffix. Written plaintext is checked against .gitignore.
func (s *Safe) DecryptFiles(ctx context.Context, inputs []string, outDir string, strategy MergeStrategy) (*BatchResult, error) {
	files, err := ExpandInputs(inputs)
	if err != nil {
		return nil, err
	}

	dir, err := security.New(outDir)
	if err != nil {
		return nil, err
	}
	defer dir.Close()

	result := newBatchResult()
	for _, file := range files {
		if err := checkContext(ctx); err != nil {
			return result, err
		}
		s.printf("working on %s\n", file)

		envelope, err := readInput(file)
		if err != nil {
			s.fail(result, file, "cannot read", err)
			continue
		}

		var plain []byte
		err = s.withKey(ctx, func(key *crypto.CipherKey) error {
			var decryptErr error
			plain, decryptErr = crypto.DecryptBinary(envelope, key)
			return decryptErr
		})
		if err != nil {
			if !crypto.IsDecrypt(err) {
				return result, err
			}
			s.fail(result, file, "cannot decrypt", err)
			continue
		}

		s.writeOutput(dir, DecryptedName(file), plain, strategy, matchesPlain(plain), "decrypted", result)
		memguard.WipeBytes(plain)
	}

	result.Warnings = git.FormatWarnings(git.CheckPlaintext(ctx, dir.Path(), result.Written))

	s.log.Info().Int("written", len(result.Written)).Int("skipped", len(result.Skipped)).
		Int("errors", len(result.Errors)).Msg("decrypt batch finished")
	return result, nil
}

func readInput(file string) ([]byte, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", file)
	}
	return os.ReadFile(file)
}

func (s *Safe) fail(result *BatchResult, name, stage string, err error) {
	msg := fmt.Sprintf("%s: %s: %v", name, stage, err)
	result.Errors = append(result.Errors, msg)
	s.printf("error: %s\n", msg)
	s.log.Debug().Str("file", name).Str("stage", stage).Err(err).Msg("file failed")
}

// writeOutput writes data as name in dir, resolving a conflict with an
// existing file through strategy. unchanged reports whether the existing
// content already matches.
func (s *Safe) writeOutput(dir *security.OutputDir, name string, data []byte, strategy MergeStrategy,
	unchanged func(existing []byte) bool, verb string, result *BatchResult) {
	if err := dir.ValidateName(name); err != nil {
		s.fail(result, name, "invalid output name", err)
		return
	}

	existing, err := dir.ReadFile(name)
	switch {
	case err == nil:
		defer memguard.WipeBytes(existing)

		if unchanged(existing) {
			result.Skipped = append(result.Skipped, name)
			s.printf("skipped: %s (unchanged)\n", name)
			return
		}

		conflict, err := HandleConflict(name, existing, data, strategy)
		if err != nil {
			s.fail(result, name, "conflict", err)
			return
		}

		switch conflict.Resolution {
		case ResolutionKeepLocal:
			result.Skipped = append(result.Skipped, name)
			s.printf("skipped: %s (kept local version)\n", name)
			return
		case ResolutionSkip:
			result.Skipped = append(result.Skipped, name)
			s.printf("skipped: %s\n", name)
			return
		case ResolutionKeepBoth:
			s.writeCopy(dir, name, data, result)
			result.Skipped = append(result.Skipped, name)
			s.printf("skipped: %s (kept local version)\n", name)
			return
		case ResolutionEditMerged:
			data = conflict.MergedData
			defer memguard.WipeBytes(data)
		case ResolutionOverwrite:
		}
	case !errors.Is(err, fs.ErrNotExist):
		s.fail(result, name, "cannot read existing output", err)
		return
	}

	if err := dir.WriteFile(name, data, FilePermSecure); err != nil {
		s.fail(result, name, "cannot write file", err)
		return
	}

	result.Written = append(result.Written, name)
	s.printf("%s: %s\n", verb, name)
}

// writeCopy saves data next to name as name.from-safe, or the first free
// name.from-safe.N.
func (s *Safe) writeCopy(dir *security.OutputDir, name string, data []byte, result *BatchResult) {
	for i := 0; i < MaxSafeCopies; i++ {
		copyName := name + KeepBothSuffix
		if i > 0 {
			copyName = fmt.Sprintf("%s%s.%d", name, KeepBothSuffix, i)
		}

		err := dir.CreateFile(copyName, data, FilePermSecure)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			s.fail(result, copyName, "cannot write copy", err)
			return
		}

		result.Written = append(result.Written, copyName)
		s.printf("saved: %s (new version)\n", copyName)
		return
	}

	s.fail(result, name, "keep both", fmt.Errorf("too many copies (max %d)", MaxSafeCopies))
}
