package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/safe/internal/config"
	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/keyring"
	"github.com/illarion/safe/internal/logger"
	"github.com/illarion/safe/internal/storage"
)

const (
	FilePermSecure = 0600 // File: owner rw only
	MaxSafeCopies  = 100  // Max numbered .from-safe.N copies
	KeepBothSuffix = ".from-safe"
)

var (
	ErrNoStore            = errors.New("record store not found")
	ErrNoInputFiles       = errors.New("no input files")
	ErrNotEncrypted       = errors.New("only encrypted data can be stored")
	ErrPassphraseRequired = errors.New("passphrase required")
	ErrKeyringDisabled    = errors.New("keyring is disabled")
	ErrNoCachedKey        = errors.New("no key stored in keyring")
	ErrConflict           = errors.New("conflict detected")
)

// PassphraseFunc reads a passphrase interactively
type PassphraseFunc func(prompt string) ([]byte, error)

// Safe runs tool operations for one session. The cipher key is resolved on
// first use and reused until Close.
type Safe struct {
	cfg            *config.Config
	log            *logger.Logger
	keys           *keyring.Keyring
	readPassphrase PassphraseFunc
	out            io.Writer

	key    *crypto.CipherKey
	source KeySource
}

// Option configures a Safe
type Option func(*Safe)

// WithLogger sets the logger
func WithLogger(l *logger.Logger) Option {
	return func(s *Safe) { s.log = l }
}

// WithOutput sets where progress messages are printed
func WithOutput(w io.Writer) Option {
	return func(s *Safe) { s.out = w }
}

// WithPassphraseFunc replaces the terminal passphrase prompt
func WithPassphraseFunc(fn PassphraseFunc) Option {
	return func(s *Safe) { s.readPassphrase = fn }
}

// New creates a Safe from a loaded configuration
func New(cfg *config.Config, opts ...Option) *Safe {
	s := &Safe{
		cfg:            cfg,
		log:            logger.Nop(),
		readPassphrase: ReadPassword,
		out:            os.Stdout,
	}
	if !cfg.NoKeyring {
		s.keys = keyring.New(cfg.KeyringService)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close forgets the session key
func (s *Safe) Close() error {
	s.key = nil
	s.source = SourceNone
	return nil
}

func (s *Safe) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// storeExists reports whether the record store file is present
func (s *Safe) storeExists() bool {
	_, err := os.Stat(s.cfg.StorePath)
	return err == nil
}

// openStore opens the record store. When create is false a missing store
// yields ErrNoStore instead of a new file.
func (s *Safe) openStore(create bool) (*storage.Storage, error) {
	if !create && !s.storeExists() {
		return nil, ErrNoStore
	}

	db, err := storage.Open(s.cfg.StorePath)
	if err != nil {
		return nil, err
	}

	initialized, err := db.IsInitialized()
	if err != nil {
		db.Close()
		return nil, err
	}
	if !initialized {
		if err := db.Initialize(); err != nil {
			db.Close()
			return nil, err
		}
		s.log.Debug().Str("path", s.cfg.StorePath).Msg("record store initialized")
	}
	return db, nil
}

// storeID returns the ID the cached key is saved under
func (s *Safe) storeID(create bool) (string, error) {
	db, err := s.openStore(create)
	if err != nil {
		return "", err
	}
	defer db.Close()

	if create {
		return db.GetOrCreateStoreID()
	}
	return db.GetStoreID()
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("operation cancelled: %w", err)
	}
	return nil
}
