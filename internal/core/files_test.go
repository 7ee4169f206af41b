package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"report.pdf", "report.pdf"},
		{"report (1).pdf", "report.pdf"},
		{"report (1) (2).pdf", "report.pdf"},
		{"report(1).pdf", "report(1).pdf"},
		{"report (draft).pdf", "report (draft).pdf"},
		{"notes (3)", "notes"},
		{"archive.tar (1).gz", "archive.tar.gz"},
		{".env", ".env"},
		{"secret.txt-encrypted (1).bin", "secret.txt-encrypted.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanFilename(tt.in))
		})
	}
}

func TestOutputNames(t *testing.T) {
	assert.Equal(t, "secret.txt-encrypted.bin", EncryptedName("dir/secret (2).txt"))
	assert.Equal(t, ".env-encrypted.bin", EncryptedName(".env"))

	assert.Equal(t, "secret.txt", DecryptedName("dir/secret.txt-encrypted.bin"))
	assert.Equal(t, "secret.txt", DecryptedName("secret.txt-encrypted (2).bin"))
	assert.Equal(t, "plain.bin.decrypted", DecryptedName("plain.bin"))
	assert.Equal(t, "", DecryptedName("-encrypted.bin"))
}

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.env", "b.env", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0600))
	}

	files, err := ExpandInputs([]string{filepath.Join(dir, "*.env"), filepath.Join(dir, "missing")})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.env"),
		filepath.Join(dir, "b.env"),
		filepath.Join(dir, "missing"),
	}, files)

	_, err = ExpandInputs(nil)
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

// setupFiles writes inputs into a fresh directory and returns it with an
// empty output directory.
func setupFiles(t *testing.T, inputs map[string]string) (string, string) {
	t.Helper()
	in, out := t.TempDir(), t.TempDir()
	for name, content := range inputs {
		require.NoError(t, os.WriteFile(filepath.Join(in, name), []byte(content), 0600))
	}
	return in, out
}

func TestFileRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestSafe(t, testConfig(t, "correct horse"))

	in, enc := setupFiles(t, map[string]string{
		"notes (1).txt": "meeting notes\n",
		"empty.bin":     "",
	})
	dec := t.TempDir()

	result, err := s.EncryptFiles(ctx, []string{filepath.Join(in, "*")}, enc, StrategyAsk)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t, []string{"empty.bin-encrypted.bin", "notes.txt-encrypted.bin"}, result.Written)

	envelope, err := os.ReadFile(filepath.Join(enc, "notes.txt-encrypted.bin"))
	require.NoError(t, err)
	assert.Len(t, envelope, 32)

	info, err := os.Stat(filepath.Join(enc, "notes.txt-encrypted.bin"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePermSecure), info.Mode().Perm())

	result, err = s.DecryptFiles(ctx, []string{filepath.Join(enc, "*-encrypted.bin")}, dec, StrategyAsk)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.ElementsMatch(t, []string{"empty.bin", "notes.txt"}, result.Written)

	content, err := os.ReadFile(filepath.Join(dec, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "meeting notes\n", string(content))

	content, err = os.ReadFile(filepath.Join(dec, "empty.bin"))
	require.NoError(t, err)
	assert.Empty(t, content)
}

func TestEncryptFiles_UnchangedOutputSkipped(t *testing.T) {
	ctx := context.Background()
	s := newTestSafe(t, testConfig(t, "pw"))
	in, out := setupFiles(t, map[string]string{"a.txt": "same"})

	_, err := s.EncryptFiles(ctx, []string{filepath.Join(in, "a.txt")}, out, StrategyAbort)
	require.NoError(t, err)

	result, err := s.EncryptFiles(ctx, []string{filepath.Join(in, "a.txt")}, out, StrategyAbort)
	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{"a.txt-encrypted.bin"}, result.Skipped)
}

func TestDecryptFiles_Conflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestSafe(t, testConfig(t, "pw"))

	in, enc := setupFiles(t, map[string]string{"cfg.env": "TOKEN=new\n"})
	_, err := s.EncryptFiles(ctx, []string{filepath.Join(in, "cfg.env")}, enc, StrategyAsk)
	require.NoError(t, err)
	input := []string{filepath.Join(enc, "cfg.env-encrypted.bin")}

	newOutput := func(t *testing.T) string {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cfg.env"), []byte("TOKEN=old\n"), 0600))
		return dir
	}
	read := func(t *testing.T, path string) string {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		return string(data)
	}

	t.Run("keep local", func(t *testing.T) {
		out := newOutput(t)
		result, err := s.DecryptFiles(ctx, input, out, StrategyKeepLocal)
		require.NoError(t, err)
		assert.Equal(t, []string{"cfg.env"}, result.Skipped)
		assert.Equal(t, "TOKEN=old\n", read(t, filepath.Join(out, "cfg.env")))
	})

	t.Run("overwrite", func(t *testing.T) {
		out := newOutput(t)
		result, err := s.DecryptFiles(ctx, input, out, StrategyOverwrite)
		require.NoError(t, err)
		assert.Equal(t, []string{"cfg.env"}, result.Written)
		assert.Equal(t, "TOKEN=new\n", read(t, filepath.Join(out, "cfg.env")))
	})

	t.Run("keep both numbers copies", func(t *testing.T) {
		out := newOutput(t)
		for i := 0; i < 2; i++ {
			_, err := s.DecryptFiles(ctx, input, out, StrategyKeepBoth)
			require.NoError(t, err)
		}
		assert.Equal(t, "TOKEN=old\n", read(t, filepath.Join(out, "cfg.env")))
		assert.Equal(t, "TOKEN=new\n", read(t, filepath.Join(out, "cfg.env.from-safe")))
		assert.Equal(t, "TOKEN=new\n", read(t, filepath.Join(out, "cfg.env.from-safe.1")))
	})

	t.Run("abort", func(t *testing.T) {
		out := newOutput(t)
		result, err := s.DecryptFiles(ctx, input, out, StrategyAbort)
		require.NoError(t, err)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "conflict detected")
	})

	t.Run("identical", func(t *testing.T) {
		out := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(out, "cfg.env"), []byte("TOKEN=new\n"), 0600))
		result, err := s.DecryptFiles(ctx, input, out, StrategyAbort)
		require.NoError(t, err)
		assert.Empty(t, result.Errors)
		assert.Equal(t, []string{"cfg.env"}, result.Skipped)
	})
}

func TestDecryptFiles_ErrorsCollected(t *testing.T) {
	ctx := context.Background()
	s := newTestSafe(t, testConfig(t, "pw"))
	in, out := setupFiles(t, map[string]string{
		"short-encrypted.bin": "not an envelope",
	})

	result, err := s.DecryptFiles(ctx, []string{
		filepath.Join(in, "short-encrypted.bin"),
		filepath.Join(in, "missing-encrypted.bin"),
	}, out, StrategyAsk)
	require.NoError(t, err)
	assert.Len(t, result.Errors, 2)
	assert.Empty(t, result.Written)
	assert.Empty(t, result.Warnings)
}

func TestFiles_NoInput(t *testing.T) {
	s := newTestSafe(t, testConfig(t, "pw"))

	_, err := s.EncryptFiles(context.Background(), nil, t.TempDir(), StrategyAsk)
	assert.ErrorIs(t, err, ErrNoInputFiles)
	_, err = s.DecryptFiles(context.Background(), []string{}, t.TempDir(), StrategyAsk)
	assert.ErrorIs(t, err, ErrNoInputFiles)
}

func TestFiles_CancelledContext(t *testing.T) {
	ctx := context.Background()
	s := newTestSafe(t, testConfig(t, "pw"))
	in, out := setupFiles(t, map[string]string{"a.txt": "a"})

	// Resolve the key first so cancellation is observed by the batch loop.
	_, err := s.Key(ctx)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	result, err := s.EncryptFiles(cancelled, []string{filepath.Join(in, "a.txt")}, out, StrategyAsk)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result)
	assert.Empty(t, result.Written)
}
