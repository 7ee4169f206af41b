package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/awnumar/memguard"
)

const (
	// IVSize is the size of the IV stored at the start of every envelope.
	IVSize = aes.BlockSize

	// MinEnvelopeSize is the size of the envelope of an empty plaintext.
	MinEnvelopeSize = IVSize + aes.BlockSize

	// LegacyPrefix is the data URI prefix older text envelopes were stored with.
	LegacyPrefix = "data:application/octet-binary;base64,"
)

// randReader is the IV source. Tests swap it out.
var (
	defaultRandReader io.Reader = rand.Reader
	randReader        io.Reader = defaultRandReader
)

// EnvelopeSize returns the binary envelope size for a plaintext of n bytes.
func EnvelopeSize(n int) int {
	return IVSize + (n/aes.BlockSize+1)*aes.BlockSize
}

// EncryptText encrypts the UTF-8 bytes of plaintext and returns the envelope
// as standard base64 without any prefix.
func EncryptText(plaintext string, key *CipherKey) (string, error) {
	envelope, err := EncryptBinary([]byte(plaintext), key)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(envelope), nil
}

// EncryptBinary encrypts plaintext under a fresh random IV and returns
// IV || ciphertext.
func EncryptBinary(plaintext []byte, key *CipherKey) ([]byte, error) {
	iv, err := randomBlock()
	if err != nil {
		return nil, err
	}
	return encryptWithIV(plaintext, key, iv)
}

func encryptWithIV(plaintext []byte, key *CipherKey, iv []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	defer memguard.WipeBytes(padded)

	envelope := make([]byte, IVSize+len(padded))
	copy(envelope, iv)

	err := key.withBlock(func(block cipher.Block) error {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(envelope[IVSize:], padded)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return envelope, nil
}

// DecryptText decrypts a base64 text envelope. A leading LegacyPrefix is
// stripped before decoding.
func DecryptText(envelope string, key *CipherKey) (string, error) {
	raw, err := DecodeTextEnvelope(envelope)
	if err != nil {
		return "", err
	}

	plaintext, err := DecryptBinary(raw, key)
	if err != nil {
		return "", err
	}

	if !utf8.Valid(plaintext) {
		n := len(plaintext)
		memguard.WipeBytes(plaintext)
		return "", fmt.Errorf("%w: decrypted %d bytes are not valid UTF-8", ErrEncoding, n)
	}

	return string(plaintext), nil
}

// DecodeTextEnvelope strips LegacyPrefix and decodes the base64 body.
// Errors wrap both ErrDecrypt and ErrEncoding.
func DecodeTextEnvelope(envelope string) ([]byte, error) {
	body := strings.TrimPrefix(strings.TrimSpace(envelope), LegacyPrefix)

	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		// Some producers drop the trailing '=' padding.
		if rawNoPad, rawErr := base64.RawStdEncoding.DecodeString(body); rawErr == nil {
			return rawNoPad, nil
		}
		return nil, fmt.Errorf("%w: %w: malformed base64 (%d chars)", ErrDecrypt, ErrEncoding, len(body))
	}

	return raw, nil
}

// DecryptBinary decrypts an envelope produced by EncryptBinary.
//
// The stored IV is not passed to the cipher. The full envelope is decrypted
// under an unrelated random IV, which garbles only the first output block;
// that block is discarded and the rest is the plaintext.
func DecryptBinary(envelope []byte, key *CipherKey) ([]byte, error) {
	if len(envelope) < MinEnvelopeSize {
		return nil, fmt.Errorf("%w: envelope is %d bytes, want at least %d", ErrDecrypt, len(envelope), MinEnvelopeSize)
	}
	if len(envelope)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: envelope is %d bytes, not a multiple of %d", ErrDecrypt, len(envelope), aes.BlockSize)
	}

	decoy, err := randomBlock()
	if err != nil {
		return nil, err
	}

	out, err := decryptShifted(envelope, key, decoy)
	if err != nil {
		return nil, err
	}
	defer memguard.WipeBytes(out)

	unpadded, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecrypt, err)
	}

	plaintext := make([]byte, len(unpadded)-IVSize)
	copy(plaintext, unpadded[IVSize:])
	return plaintext, nil
}

// decryptShifted CBC-decrypts the whole buffer, stored IV included, using iv
// as the chaining value for the first block. The padding is left in place.
func decryptShifted(buf []byte, key *CipherKey, iv []byte) ([]byte, error) {
	out := make([]byte, len(buf))
	err := key.withBlock(func(block cipher.Block) error {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, buf)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func randomBlock() ([]byte, error) {
	b := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}
	return b, nil
}
