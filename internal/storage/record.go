package storage

import (
	"errors"
	"strings"
	"time"

	"github.com/illarion/safe/internal/crypto"
)

// MaxNameLength bounds record names.
const MaxNameLength = 256

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrInvalidName    = errors.New("invalid record name")
)

// Record is a named text envelope.
type Record struct {
	Name     string    `json:"name"`
	Data     string    `json:"data"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Size returns the length of the base64 envelope, without the data URI prefix.
func (r *Record) Size() int64 {
	return int64(len(strings.TrimPrefix(r.Data, crypto.LegacyPrefix)))
}

// ValidateName rejects empty, overlong and whitespace-only names.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if len(name) > MaxNameLength {
		return ErrInvalidName
	}
	return nil
}
