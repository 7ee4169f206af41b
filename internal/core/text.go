package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/illarion/safe/internal/crypto"
)

// FormatEnvelope returns a text envelope in the data URI form the tool prints
// and the record store accepts.
func FormatEnvelope(envelope string) string {
	return crypto.LegacyPrefix + envelope
}

// IsEncryptedText reports whether data looks like output of FormatEnvelope
func IsEncryptedText(data string) bool {
	return strings.HasPrefix(strings.TrimSpace(data), crypto.LegacyPrefix)
}

// EncryptText encrypts plaintext and returns the bare base64 envelope
func (s *Safe) EncryptText(ctx context.Context, plaintext string) (string, error) {
	key, err := s.Key(ctx)
	if err != nil {
		return "", err
	}

	envelope, err := crypto.EncryptText(plaintext, key)
	if err != nil {
		return "", err
	}
	s.log.Debug().Int("plain_size", len(plaintext)).Int("envelope_chars", len(envelope)).Msg("text encrypted")
	return envelope, nil
}

// DecryptText decrypts a text envelope, with or without the data URI prefix
func (s *Safe) DecryptText(ctx context.Context, envelope string) (string, error) {
	// Malformed envelopes fail before any key is resolved.
	if _, err := crypto.DecodeTextEnvelope(envelope); err != nil {
		return "", err
	}

	// Key resolution errors pass through unwrapped.
	var plaintext string
	err := s.withKey(ctx, func(key *crypto.CipherKey) error {
		var err error
		if plaintext, err = crypto.DecryptText(envelope, key); err != nil {
			return fmt.Errorf("failed to decrypt text: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return plaintext, nil
}
