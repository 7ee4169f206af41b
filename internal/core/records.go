package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/illarion/safe/internal/crypto"
	"github.com/illarion/safe/internal/storage"
)

// StoreRecord saves an encrypted text envelope under name, replacing any
// record with the same name. Only data URI envelopes are accepted.
func (s *Safe) StoreRecord(ctx context.Context, name, data string) (*storage.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data = strings.TrimSpace(data)
	if !IsEncryptedText(data) {
		return nil, ErrNotEncrypted
	}
	if _, err := crypto.DecodeTextEnvelope(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotEncrypted, err)
	}

	db, err := s.openStore(true)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	record, err := db.PutRecord(name, data)
	if err != nil {
		return nil, err
	}
	s.log.Info().Str("record", name).Int64("size", record.Size()).Msg("record stored")
	return record, nil
}

// ShowRecord decrypts the record called name
func (s *Safe) ShowRecord(ctx context.Context, name string) (string, error) {
	record, err := s.getRecord(ctx, name)
	if err != nil {
		return "", err
	}
	return s.DecryptText(ctx, record.Data)
}

// RemoveRecord deletes a record and compacts the store
func (s *Safe) RemoveRecord(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	db, err := s.openStore(false)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.DeleteRecord(name); err != nil {
		return err
	}
	s.printf("removed: %s\n", name)

	// Compact database to reclaim space
	if err := db.Compact(); err != nil {
		s.log.Warn().Err(err).Msg("compaction failed")
	}
	return nil
}

// ListRecords returns all records sorted by name. A missing store has none.
func (s *Safe) ListRecords(ctx context.Context) ([]storage.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	db, err := s.openStore(false)
	if errors.Is(err, ErrNoStore) {
		return []storage.Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ListRecords()
}

// StoreModified returns when the record store last changed. A missing store
// yields ErrNoStore.
func (s *Safe) StoreModified(ctx context.Context) (time.Time, error) {
	if err := checkContext(ctx); err != nil {
		return time.Time{}, err
	}

	db, err := s.openStore(false)
	if err != nil {
		return time.Time{}, err
	}
	defer db.Close()

	return db.GetModified()
}

// DiffRecord returns a unified diff from the decrypted record to the local
// file at path. Identical content yields an empty string.
func (s *Safe) DiffRecord(ctx context.Context, name, path string) (string, error) {
	local, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}

	plaintext, err := s.ShowRecord(ctx, name)
	if err != nil {
		return "", err
	}

	return GenerateUnifiedDiff(name, []byte(plaintext), local)
}

// Compact compacts the record store to reclaim disk space
func (s *Safe) Compact(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	db, err := s.openStore(false)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.Compact()
}

func (s *Safe) getRecord(ctx context.Context, name string) (*storage.Record, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	db, err := s.openStore(false)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return db.GetRecord(name)
}
