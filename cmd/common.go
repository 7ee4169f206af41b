package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"
	"golang.org/x/term"

	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/core"
	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/logger"
	"github.com/illarion/safe/internal/security"
	"github.com/illarion/safe/internal/storage"
)

// LoadConfig reads the environment, applies command-line overrides and
// exits on invalid settings
func LoadConfig(overrides *config.Config) *config.Config {
	cfg, err := config.Load(overrides)
	if err != nil {
		HandleError(err)
	}
	return cfg
}

// openSafe builds the core service for one command
func openSafe(ctx context.Context, cfg *config.Config) (*core.Safe, context.Context) {
	log := logger.NewCLI(cfg.Level()).With("store", cfg.StorePath)
	safe := core.New(cfg, core.WithLogger(log))
	return safe, log.WithContext(ctx)
}

// readArg returns args[0], or stdin when it is missing or "-".
// A single trailing newline from stdin is dropped.
func readArg(args []string, what string) (string, error) {
	if len(args) > 0 && args[0] != "-" {
		return args[0], nil
	}

	if term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Enter %s, then press Ctrl-D:\n", what)
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", what, err)
	}

	text := string(data)
	text = strings.TrimSuffix(text, "\n")
	text = strings.TrimSuffix(text, "\r")
	return text, nil
}

// emit prints text, or copies it to the clipboard when clip is set
func emit(text string, clip bool) {
	if !clip {
		fmt.Println(text)
		return
	}

	if err := clipboard.WriteAll(text); err != nil {
		fmt.Fprintf(os.Stderr, "warning: clipboard unavailable: %s\n", err)
		fmt.Println(text)
		return
	}
	fmt.Fprintln(os.Stderr, "copied to clipboard")
}

// strategyFromFlags maps the mutually exclusive conflict flags to a strategy
func strategyFromFlags(force, keepLocal, keepBoth bool) (core.MergeStrategy, error) {
	flagCount := boolToInt(force) + boolToInt(keepLocal) + boolToInt(keepBoth)
	if flagCount > 1 {
		return core.StrategyAsk, fmt.Errorf("--force, --keep-local, and --keep-both are mutually exclusive")
	}

	switch {
	case force:
		return core.StrategyOverwrite, nil
	case keepLocal:
		return core.StrategyKeepLocal, nil
	case keepBoth:
		return core.StrategyKeepBoth, nil
	default:
		return core.StrategyAsk, nil
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// formatSize formats a size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

// errorMessage returns the user-facing text for err, with an optional hint
func errorMessage(err error) (string, string) {
	switch {
	case errors.Is(err, context.Canceled):
		return "interrupted", ""
	case errors.Is(err, core.ErrNoStore):
		return "record store not found", "Use 'safe store' or 'safe key save' to create one"
	case errors.Is(err, core.ErrNoInputFiles):
		return "no input files", "Usage: safe encrypt-file|decrypt-file <file> [file...]"
	case errors.Is(err, core.ErrNotEncrypted):
		return "you can only store encrypted data", "Use 'safe encrypt' to generate one"
	case errors.Is(err, core.ErrPassphrasePrompt):
		return err.Error(), "Run from a terminal or set SAFE_PASSPHRASE"
	case errors.Is(err, core.ErrPassphraseRequired):
		return "passphrase required", "Set SAFE_PASSPHRASE or enter it at the prompt"
	case errors.Is(err, core.ErrKeyringDisabled):
		return "keyring is disabled", "Unset SAFE_NO_KEYRING to use the keyring"
	case errors.Is(err, core.ErrNoCachedKey):
		return "no key stored in keyring", ""
	case errors.Is(err, storage.ErrRecordNotFound):
		return err.Error(), "Use 'safe records' to list stored records"
	case errors.Is(err, storage.ErrInvalidName):
		return err.Error(), ""
	case crypto.IsKeyDerivation(err):
		return "could not derive a key from the passphrase", ""
	case crypto.IsKeyImport(err):
		return "invalid key: expected base64 of a 16, 24 or 32 byte key", ""
	case crypto.IsDecrypt(err):
		return "decryption failed (wrong passphrase or corrupted data)", ""
	case crypto.IsEncoding(err):
		return "decrypted data is not valid text", "Use 'safe decrypt-file' for binary data"
	case errors.Is(err, security.ErrPathEscapes), errors.Is(err, security.ErrNotFlat):
		return err.Error(), ""
	case errors.Is(err, config.ErrInvalidStorePath), errors.Is(err, config.ErrInvalidLogLevel):
		return "invalid configuration: " + err.Error(), ""
	default:
		return err.Error(), ""
	}
}

// HandleError prints err and exits
func HandleError(err error) {
	msg, hint := errorMessage(err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	if hint != "" {
		fmt.Fprintln(os.Stderr, hint)
	}
	os.Exit(1)
}
