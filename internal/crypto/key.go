package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"fmt"

	"github.com/awnumar/memguard"
)

// KeySize is the size of a derived key in bytes (AES-256).
const KeySize = sha256.Size

// CipherKey is an opaque handle to an AES key used in CBC mode.
type CipherKey struct {
	enclave *memguard.Enclave
	size    int
}

// Derive hashes the passphrase with SHA-256 and uses the digest as an
// AES-256 key. The passphrase slice is not modified.
func Derive(passphrase []byte) (*CipherKey, error) {
	digest := sha256.Sum256(passphrase)
	key, err := newCipherKey(digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyDerivation, err)
	}
	return key, nil
}

// ImportRaw creates a key from raw key material. 16, 24 and 32 byte keys are
// accepted. The input is copied; the caller may wipe it afterwards.
func ImportRaw(raw []byte) (*CipherKey, error) {
	switch len(raw) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: got %d bytes, want 16, 24 or 32", ErrKeyImport, len(raw))
	}

	material := make([]byte, len(raw))
	copy(material, raw)
	key, err := newCipherKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrKeyImport, err)
	}
	return key, nil
}

// ImportBase64 creates a key from the base64 form produced by ExportBase64.
func ImportBase64(encoded string) (*CipherKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed base64", ErrKeyImport)
	}
	defer memguard.WipeBytes(raw)

	return ImportRaw(raw)
}

// Import accepts raw key bytes or their base64 string form.
func Import(material any) (*CipherKey, error) {
	switch m := material.(type) {
	case []byte:
		return ImportRaw(m)
	case string:
		return ImportBase64(m)
	default:
		return nil, fmt.Errorf("%w: unsupported type %T", ErrKeyImport, material)
	}
}

// newCipherKey seals material into an enclave. material is wiped.
func newCipherKey(material []byte) (*CipherKey, error) {
	// Fail early on sizes aes would reject later.
	if _, err := aes.NewCipher(material); err != nil {
		memguard.WipeBytes(material)
		return nil, err
	}

	size := len(material)
	enclave := memguard.NewEnclave(material)
	if enclave == nil {
		return nil, fmt.Errorf("failed to seal %d byte key", size)
	}

	return &CipherKey{enclave: enclave, size: size}, nil
}

// Size returns the key length in bytes.
func (k *CipherKey) Size() int {
	if k == nil {
		return 0
	}
	return k.size
}

// ExportRaw returns a copy of the raw key material.
// The caller owns the returned slice and should wipe it after use.
func (k *CipherKey) ExportRaw() ([]byte, error) {
	var raw []byte
	err := k.withMaterial(func(material []byte) error {
		raw = make([]byte, len(material))
		copy(raw, material)
		return nil
	})
	return raw, err
}

// ExportBase64 returns the key material as standard base64.
func (k *CipherKey) ExportBase64() (string, error) {
	raw, err := k.ExportRaw()
	if err != nil {
		return "", err
	}
	defer memguard.WipeBytes(raw)

	return base64.StdEncoding.EncodeToString(raw), nil
}

// withMaterial unseals the key for the duration of fn.
func (k *CipherKey) withMaterial(fn func(material []byte) error) error {
	if k == nil || k.enclave == nil {
		return ErrNoKey
	}

	buf, err := k.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open key enclave: %w", err)
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// withBlock builds an AES block cipher for the duration of fn.
func (k *CipherKey) withBlock(fn func(block cipher.Block) error) error {
	return k.withMaterial(func(material []byte) error {
		block, err := aes.NewCipher(material)
		if err != nil {
			return fmt.Errorf("failed to create cipher: %w", err)
		}
		return fn(block)
	})
}
