package core

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"golang.org/x/term"
)

// ErrNoTerminal is returned when a prompt is needed but neither stdin nor
// the controlling terminal can be used.
var ErrNoTerminal = errors.New("no terminal available")

// ttyPath is the controlling terminal device, opened when stdin is a pipe.
var ttyPath = func() string {
	if runtime.GOOS == "windows" {
		return "CONIN$"
	}
	return "/dev/tty"
}()

// terminal returns stdin when it is a terminal, otherwise the controlling
// terminal device. release must be called when done.
func terminal(stdin *os.File) (tty *os.File, release func(), err error) {
	if term.IsTerminal(int(stdin.Fd())) {
		return stdin, func() {}, nil
	}

	tty, err = os.OpenFile(ttyPath, os.O_RDWR, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNoTerminal, err)
	}
	return tty, func() { tty.Close() }, nil
}

// hasTerminal reports whether prompts can reach the user
func hasTerminal() bool {
	_, release, err := terminal(os.Stdin)
	if err != nil {
		return false
	}
	release()
	return true
}
