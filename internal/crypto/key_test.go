package crypto

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_IsSHA256OfPassphrase(t *testing.T) {
	key, err := Derive([]byte("correct horse"))
	require.NoError(t, err)

	raw, err := key.ExportRaw()
	require.NoError(t, err)

	assert.Equal(t, "4104d36f8da2c254349f85836793ebe029e0c957063a34c91c2e9203187b5631", hex.EncodeToString(raw))
	assert.Equal(t, KeySize, key.Size())
}

func TestDerive_DoesNotModifyPassphrase(t *testing.T) {
	passphrase := []byte("correct horse")
	_, err := Derive(passphrase)
	require.NoError(t, err)

	assert.Equal(t, "correct horse", string(passphrase))
}

func TestDerive_EmptyPassphrase(t *testing.T) {
	key, err := Derive(nil)
	require.NoError(t, err)

	raw, err := key.ExportRaw()
	require.NoError(t, err)

	sum := sha256.Sum256(nil)
	assert.Equal(t, sum[:], raw)
}

func TestExportRaw_ReturnsCopy(t *testing.T) {
	key, err := Derive([]byte("passphrase"))
	require.NoError(t, err)

	first, err := key.ExportRaw()
	require.NoError(t, err)
	for i := range first {
		first[i] = 0
	}

	second, err := key.ExportRaw()
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "mutating an export must not touch the key")
}

func TestImportRaw_Sizes(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{name: "AES-128", size: 16},
		{name: "AES-192", size: 24},
		{name: "AES-256", size: 32},
		{name: "empty", size: 0, wantErr: true},
		{name: "short", size: 15, wantErr: true},
		{name: "long", size: 33, wantErr: true},
		{name: "64 bytes", size: 64, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := make([]byte, tt.size)
			for i := range raw {
				raw[i] = byte(i)
			}

			key, err := ImportRaw(raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsKeyImport(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.size, key.Size())

			exported, err := key.ExportRaw()
			require.NoError(t, err)
			assert.Equal(t, raw, exported)
		})
	}
}

func TestImportRaw_LeavesInputIntact(t *testing.T) {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = 0xAB
	}

	_, err := ImportRaw(raw)
	require.NoError(t, err)

	for _, b := range raw {
		require.Equal(t, byte(0xAB), b)
	}
}

func TestImportBase64_RoundTrip(t *testing.T) {
	key, err := Derive([]byte("correct horse"))
	require.NoError(t, err)

	encoded, err := key.ExportBase64()
	require.NoError(t, err)
	assert.Len(t, encoded, 44)

	imported, err := ImportBase64(encoded)
	require.NoError(t, err)

	envelope, err := EncryptText("hello", key)
	require.NoError(t, err)

	plaintext, err := DecryptText(envelope, imported)
	require.NoError(t, err)
	assert.Equal(t, "hello", plaintext)
}

func TestImportBase64_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not base64", input: "!!not-base64!!"},
		{name: "wrong length", input: base64.StdEncoding.EncodeToString([]byte("short"))},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ImportBase64(tt.input)
			require.Error(t, err)
			assert.True(t, IsKeyImport(err))
		})
	}
}

func TestNilKey(t *testing.T) {
	var key *CipherKey

	_, err := key.ExportRaw()
	assert.ErrorIs(t, err, ErrNoKey)

	_, err = EncryptBinary([]byte("data"), key)
	assert.ErrorIs(t, err, ErrNoKey)

	assert.Equal(t, 0, key.Size())
}

func TestImport_BytesOrBase64(t *testing.T) {
	raw := sha256.Sum256([]byte("correct horse"))

	fromBytes, err := Import(raw[:])
	require.NoError(t, err)
	fromString, err := Import(base64.StdEncoding.EncodeToString(raw[:]))
	require.NoError(t, err)

	a, err := fromBytes.ExportBase64()
	require.NoError(t, err)
	b, err := fromString.ExportBase64()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	_, err = Import(42)
	assert.True(t, IsKeyImport(err))
}
