package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/safe/internal/crypto"
)

// pipedStdin returns a regular file standing in for piped input
func pipedStdin(t *testing.T) *os.File {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	_, err = f.WriteString("secret\n")
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func useTTY(t *testing.T, path string) {
	t.Helper()
	previous := ttyPath
	ttyPath = path
	t.Cleanup(func() { ttyPath = previous })
}

func TestTerminal_OpensDeviceWhenStdinIsPiped(t *testing.T) {
	device := filepath.Join(t.TempDir(), "tty")
	require.NoError(t, os.WriteFile(device, nil, 0600))
	useTTY(t, device)

	tty, release, err := terminal(pipedStdin(t))
	require.NoError(t, err)
	defer release()
	assert.Equal(t, device, tty.Name())
}

func TestTerminal_NoDevice(t *testing.T) {
	useTTY(t, filepath.Join(t.TempDir(), "missing"))

	_, _, err := terminal(pipedStdin(t))
	assert.ErrorIs(t, err, ErrNoTerminal)
}

func TestReadPassword_PipedStdinWithoutTerminal(t *testing.T) {
	useTTY(t, filepath.Join(t.TempDir(), "missing"))

	var prompt bytes.Buffer
	_, err := readPassword(pipedStdin(t), &prompt, "Enter passphrase: ")
	assert.ErrorIs(t, err, ErrPassphrasePrompt)
	assert.ErrorIs(t, err, ErrNoTerminal)
	assert.Empty(t, prompt.String())
}

func TestReadPassword_DeviceIsNotATerminal(t *testing.T) {
	device := filepath.Join(t.TempDir(), "tty")
	require.NoError(t, os.WriteFile(device, []byte("pw\n"), 0600))
	useTTY(t, device)

	var prompt bytes.Buffer
	_, err := readPassword(pipedStdin(t), &prompt, "Enter passphrase: ")
	assert.ErrorIs(t, err, ErrPassphrasePrompt)
	assert.Contains(t, prompt.String(), "Enter passphrase: ")
}

func TestDecryptText_PromptFailureIsNotADecryptError(t *testing.T) {
	ctx := context.Background()
	key, err := crypto.Derive([]byte("pw"))
	require.NoError(t, err)
	envelope, err := crypto.EncryptText("secret", key)
	require.NoError(t, err)

	failing := func(string) ([]byte, error) {
		return nil, fmt.Errorf("%w: %w", ErrPassphrasePrompt, ErrNoTerminal)
	}
	cfg := testConfig(t, "")
	cfg.NoKeyring = true
	s := newTestSafe(t, cfg, WithPassphraseFunc(failing))

	_, err = s.DecryptText(ctx, FormatEnvelope(envelope))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPassphrasePrompt)
	assert.False(t, crypto.IsDecrypt(err))
	assert.NotContains(t, err.Error(), "failed to decrypt text")

	_, err = s.EncryptText(ctx, "secret")
	assert.ErrorIs(t, err, ErrPassphrasePrompt)
}
