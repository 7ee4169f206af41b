// Package keyring caches exported cipher keys in the OS keyring, keyed by
// the ID of the record store they were saved for.
package keyring

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service name entries are stored under.
const DefaultService = "safe"

// ErrNotFound is returned when no key is cached for a store.
var ErrNotFound = keyring.ErrNotFound

// Keyring stores base64 encoded keys for one service name.
type Keyring struct {
	service string
}

// New returns a Keyring for service, falling back to DefaultService.
func New(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{service: service}
}

// SaveKey stores an exported key in the OS keyring
func (k *Keyring) SaveKey(storeID, encodedKey string) error {
	return keyring.Set(k.service, storeID, encodedKey)
}

// GetKey retrieves an exported key from the OS keyring
func (k *Keyring) GetKey(storeID string) (string, error) {
	return keyring.Get(k.service, storeID)
}

// DeleteKey removes a key from the OS keyring
func (k *Keyring) DeleteKey(storeID string) error {
	err := keyring.Delete(k.service, storeID)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// HasKey checks if a key is stored in the keyring
func (k *Keyring) HasKey(storeID string) bool {
	_, err := keyring.Get(k.service, storeID)
	return err == nil
}
