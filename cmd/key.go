package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/safe/internal/config"
)

// KeyExport prints the base64 key derived from the passphrase
func KeyExport(ctx context.Context, cfg *config.Config, clip bool) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	encoded, err := safe.ExportKey(ctx)
	if err != nil {
		HandleError(err)
	}
	emit(encoded, clip)
}

// KeySave derives the key from the passphrase and caches it in the keyring
func KeySave(ctx context.Context, cfg *config.Config) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	if err := safe.SaveKey(ctx); err != nil {
		HandleError(err)
	}
	fmt.Println("Key saved to keyring")
}

// KeyImport validates an exported key and caches it in the keyring
func KeyImport(ctx context.Context, cfg *config.Config, args []string) {
	encoded, err := readArg(args, "exported key")
	if err != nil {
		HandleError(err)
	}

	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	if err := safe.ImportKey(ctx, strings.TrimSpace(encoded)); err != nil {
		HandleError(err)
	}
	fmt.Println("Key imported to keyring")
}

// KeyForget removes the cached key from the keyring
func KeyForget(ctx context.Context, cfg *config.Config) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	if err := safe.ForgetKey(ctx); err != nil {
		HandleError(err)
	}
	fmt.Println("Key removed from keyring")
}

// KeyStatus reports whether a key is cached for the store
func KeyStatus(ctx context.Context, cfg *config.Config) {
	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	has, err := safe.HasCachedKey(ctx)
	if err != nil {
		HandleError(err)
	}

	if has {
		fmt.Println("Key: stored in keyring")
	} else {
		fmt.Println("Key: not stored")
	}
}
