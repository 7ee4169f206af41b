package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/awnumar/memguard"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/keyring"
)

// KeySource tells where the session key came from
type KeySource int

const (
	SourceNone KeySource = iota
	SourceEnv
	SourceKeyring
	SourcePrompt
)

func (k KeySource) String() string {
	switch k {
	case SourceEnv:
		return "environment"
	case SourceKeyring:
		return "keyring"
	case SourcePrompt:
		return "prompt"
	default:
		return "none"
	}
}

// KeySource returns where the current session key came from
func (s *Safe) KeySource() KeySource {
	return s.source
}

// Key returns the session key, resolving it on first use.
// Order: SAFE_PASSPHRASE, keyring cache, interactive prompt.
func (s *Safe) Key(ctx context.Context) (*crypto.CipherKey, error) {
	if s.key != nil {
		return s.key, nil
	}
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if s.cfg.Passphrase != "" {
		return s.setKey(s.deriveFromConfig())
	}

	if key := s.cachedKey(); key != nil {
		s.key, s.source = key, SourceKeyring
		return key, nil
	}

	return s.setKey(s.promptKey())
}

func (s *Safe) setKey(key *crypto.CipherKey, source KeySource, err error) (*crypto.CipherKey, error) {
	if err != nil {
		return nil, err
	}
	s.key, s.source = key, source
	s.log.Debug().Stringer("source", source).Int("size", key.Size()).Msg("cipher key ready")
	return key, nil
}

func (s *Safe) deriveFromConfig() (*crypto.CipherKey, KeySource, error) {
	passphrase := []byte(s.cfg.Passphrase)
	defer memguard.WipeBytes(passphrase)

	key, err := crypto.Derive(passphrase)
	return key, SourceEnv, err
}

func (s *Safe) promptKey() (*crypto.CipherKey, KeySource, error) {
	passphrase, err := s.readPassphrase("Enter passphrase: ")
	if err != nil {
		return nil, SourceNone, err
	}
	defer memguard.WipeBytes(passphrase)

	if len(passphrase) == 0 {
		return nil, SourceNone, ErrPassphraseRequired
	}

	key, err := crypto.Derive(passphrase)
	return key, SourcePrompt, err
}

// cachedKey loads the key saved for this store, or nil
func (s *Safe) cachedKey() *crypto.CipherKey {
	if s.keys == nil || !s.storeExists() {
		return nil
	}

	storeID, err := s.storeID(false)
	if err != nil {
		return nil
	}

	encoded, err := s.keys.GetKey(storeID)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			s.log.Warn().Err(err).Msg("keyring unavailable")
		}
		return nil
	}

	key, err := crypto.ImportBase64(encoded)
	if err != nil {
		s.log.Warn().Err(err).Msg("ignoring malformed cached key")
		return nil
	}
	return key
}

// withKey runs fn with the session key. If a keyring key fails to decrypt,
// the passphrase is prompted once and fn is retried. Text encoding failures
// are not retried: the key was right and the plaintext is binary.
func (s *Safe) withKey(ctx context.Context, fn func(key *crypto.CipherKey) error) error {
	key, err := s.Key(ctx)
	if err != nil {
		return err
	}

	err = fn(key)
	if err == nil || s.source != SourceKeyring || !crypto.IsDecrypt(err) {
		return err
	}

	s.log.Warn().Msg("cached key failed to decrypt, asking for passphrase")
	s.printf("warning: key stored in keyring did not work\n")
	s.key, s.source = nil, SourceNone

	key, err = s.setKey(s.promptKey())
	if err != nil {
		return err
	}
	return fn(key)
}

// passphraseKey derives a key from SAFE_PASSPHRASE or the prompt, skipping
// the keyring cache
func (s *Safe) passphraseKey(ctx context.Context) (*crypto.CipherKey, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if s.cfg.Passphrase != "" {
		key, _, err := s.deriveFromConfig()
		return key, err
	}
	key, _, err := s.promptKey()
	return key, err
}

// ExportKey derives the key from the passphrase and returns its base64 form
func (s *Safe) ExportKey(ctx context.Context) (string, error) {
	key, err := s.passphraseKey(ctx)
	if err != nil {
		return "", err
	}
	return key.ExportBase64()
}

// SaveKey derives the key from the passphrase and stores it in the keyring
// under the store ID, creating the store if needed
func (s *Safe) SaveKey(ctx context.Context) error {
	if s.keys == nil {
		return ErrKeyringDisabled
	}

	key, err := s.passphraseKey(ctx)
	if err != nil {
		return err
	}
	return s.saveKey(key)
}

// ImportKey validates an exported key and stores it in the keyring
func (s *Safe) ImportKey(ctx context.Context, encoded string) error {
	if s.keys == nil {
		return ErrKeyringDisabled
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	key, err := crypto.ImportBase64(encoded)
	if err != nil {
		return err
	}
	return s.saveKey(key)
}

func (s *Safe) saveKey(key *crypto.CipherKey) error {
	storeID, err := s.storeID(true)
	if err != nil {
		return err
	}

	encoded, err := key.ExportBase64()
	if err != nil {
		return err
	}

	if err := s.keys.SaveKey(storeID, encoded); err != nil {
		return fmt.Errorf("failed to save to keyring: %w", err)
	}
	s.log.Info().Str("store_id", storeID).Msg("key saved to keyring")
	return nil
}

// ForgetKey removes the cached key for this store
func (s *Safe) ForgetKey(ctx context.Context) error {
	if s.keys == nil {
		return ErrKeyringDisabled
	}
	if err := checkContext(ctx); err != nil {
		return err
	}

	storeID, err := s.storeID(false)
	if err != nil {
		return ErrNoCachedKey
	}

	if err := s.keys.DeleteKey(storeID); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNoCachedKey
		}
		return err
	}
	return nil
}

// HasCachedKey reports whether a key is stored for this store
func (s *Safe) HasCachedKey(ctx context.Context) (bool, error) {
	if s.keys == nil {
		return false, ErrKeyringDisabled
	}
	if err := checkContext(ctx); err != nil {
		return false, err
	}
	if !s.storeExists() {
		return false, nil
	}

	storeID, err := s.storeID(false)
	if err != nil {
		return false, nil
	}
	return s.keys.HasKey(storeID), nil
}
