package core

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// ErrPassphrasePrompt is returned when the passphrase prompt cannot be read
var ErrPassphrasePrompt = errors.New("failed to read passphrase")

// ReadPassword reads a passphrase without echoing. The prompt goes to stderr
// and input comes from the terminal even when stdin carries data.
func ReadPassword(prompt string) ([]byte, error) {
	return readPassword(os.Stdin, os.Stderr, prompt)
}

func readPassword(stdin *os.File, out io.Writer, prompt string) ([]byte, error) {
	tty, release, err := terminal(stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPassphrasePrompt, err)
	}
	defer release()

	fmt.Fprint(out, prompt)
	password, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(out)

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPassphrasePrompt, err)
	}
	return password, nil
}

// OfferToSaveKey asks whether the prompted key should be cached in the
// keyring and saves it on yes. Only interactive sessions are asked.
func (s *Safe) OfferToSaveKey() {
	if s.keys == nil || s.source != SourcePrompt || !hasTerminal() {
		return
	}

	if !confirm("Save key to keyring?") {
		return
	}

	if err := s.saveKey(s.key); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %s\n", err)
		return
	}
	fmt.Println("Key saved to keyring")
}
