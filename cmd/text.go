package cmd

import (
	"context"

	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/core"
)

// Encrypt encrypts text from the argument or stdin and prints the envelope
func Encrypt(ctx context.Context, cfg *config.Config, args []string, raw, clip bool) {
	plaintext, err := readArg(args, "text to encrypt")
	if err != nil {
		HandleError(err)
	}

	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	envelope, err := safe.EncryptText(ctx, plaintext)
	if err != nil {
		HandleError(err)
	}

	if !raw {
		envelope = core.FormatEnvelope(envelope)
	}
	emit(envelope, clip)
	safe.OfferToSaveKey()
}

// Decrypt decrypts a text envelope from the argument or stdin
func Decrypt(ctx context.Context, cfg *config.Config, args []string, clip bool) {
	envelope, err := readArg(args, "envelope to decrypt")
	if err != nil {
		HandleError(err)
	}

	safe, ctx := openSafe(ctx, cfg)
	defer safe.Close()

	plaintext, err := safe.DecryptText(ctx, envelope)
	if err != nil {
		HandleError(err)
	}

	emit(plaintext, clip)
	safe.OfferToSaveKey()
}
