package crypto

import "errors"

var (
	// ErrKeyDerivation is returned when the hash or key import primitive fails.
	ErrKeyDerivation = errors.New("crypto: key derivation failed")

	// ErrKeyImport is returned when imported key material is malformed or has
	// an unsupported length.
	ErrKeyImport = errors.New("crypto: invalid key material")

	// ErrNoKey is returned when an operation is attempted with a nil or
	// destroyed key.
	ErrNoKey = errors.New("crypto: no key")

	// ErrDecrypt is returned for malformed envelopes, wrong keys and corrupted
	// ciphertext. Without an integrity tag these cases cannot be told apart.
	ErrDecrypt = errors.New("crypto: decryption failed")

	// ErrEncoding is returned for invalid base64 envelopes and for decrypted
	// text that is not valid UTF-8.
	ErrEncoding = errors.New("crypto: invalid encoding")
)

// IsKeyDerivation returns true if the error is or wraps ErrKeyDerivation.
func IsKeyDerivation(err error) bool {
	return errors.Is(err, ErrKeyDerivation)
}

// IsKeyImport returns true if the error is or wraps ErrKeyImport.
func IsKeyImport(err error) bool {
	return errors.Is(err, ErrKeyImport)
}

// IsDecrypt returns true if the error is or wraps ErrDecrypt.
func IsDecrypt(err error) bool {
	return errors.Is(err, ErrDecrypt)
}

// IsEncoding returns true if the error is or wraps ErrEncoding.
func IsEncoding(err error) bool {
	return errors.Is(err, ErrEncoding)
}
