package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/core"
)

// EncryptFiles encrypts each input file into outDir
func EncryptFiles(ctx context.Context, cfg *config.Config, inputs []string, outDir string, force, keepLocal, keepBoth bool) {
	runBatch(ctx, cfg, inputs, force, keepLocal, keepBoth, "encrypted", func(safe *core.Safe, ctx context.Context, strategy core.MergeStrategy) (*core.BatchResult, error) {
		return safe.EncryptFiles(ctx, inputs, outDir, strategy)
	})
}

// DecryptFiles decrypts each -encrypted.bin input into outDir
func DecryptFiles(ctx context.Context, cfg *config.Config, inputs []string, outDir string, force, keepLocal, keepBoth bool) {
	runBatch(ctx, cfg, inputs, force, keepLocal, keepBoth, "decrypted", func(safe *core.Safe, ctx context.Context, strategy core.MergeStrategy) (*core.BatchResult, error) {
		return safe.DecryptFiles(ctx, inputs, outDir, strategy)
	})
}

type batchFunc func(safe *core.Safe, ctx context.Context, strategy core.MergeStrategy) (*core.BatchResult, error)

func runBatch(ctx context.Context, cfg *config.Config, inputs []string, force, keepLocal, keepBoth bool, verb string, run batchFunc) {
	if len(inputs) == 0 {
		HandleError(core.ErrNoInputFiles)
	}

	strategy, err := strategyFromFlags(force, keepLocal, keepBoth)
	if err != nil {
		HandleError(err)
	}

	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	result, err := run(safe, ctx, strategy)
	if result != nil {
		printSummary(result, verb)
	}
	if err != nil {
		HandleError(err)
	}

	if result.Warnings != "" {
		fmt.Fprint(os.Stderr, result.Warnings)
	}

	safe.OfferToSaveKey()

	if len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func printSummary(result *core.BatchResult, verb string) {
	fmt.Printf("\n")
	if len(result.Written) > 0 {
		fmt.Printf("%s: %d files\n", verb, len(result.Written))
	}
	if len(result.Skipped) > 0 {
		fmt.Printf("skipped: %d files\n", len(result.Skipped))
	}
	if len(result.Errors) > 0 {
		fmt.Printf("error: %d errors occurred\n", len(result.Errors))
	}
}
