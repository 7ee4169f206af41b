// Package security confines the files the tool writes to a single output
// directory using os.Root, so that names derived from user input can never
// escape it.
package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var (
	ErrPathEscapes  = errors.New("path escapes output directory")
	ErrAbsolutePath = errors.New("absolute paths are not allowed")
	ErrEmptyPath    = errors.New("empty path not allowed")
	ErrNotFlat      = errors.New("output names must not contain directories")
)

// OutputDir writes and reads files inside one directory.
type OutputDir struct {
	root *os.Root
	path string
}

// New opens dir as an output directory. dir must exist.
func New(dir string) (*OutputDir, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	root, err := os.OpenRoot(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open output directory: %w", err)
	}

	return &OutputDir{root: root, path: absPath}, nil
}

// Close releases the directory handle.
func (o *OutputDir) Close() error {
	if o.root != nil {
		return o.root.Close()
	}
	return nil
}

// Path returns the absolute directory path.
func (o *OutputDir) Path() string {
	return o.path
}

// Join returns the absolute path of name inside the directory.
func (o *OutputDir) Join(name string) string {
	return filepath.Join(o.path, name)
}

// ValidateName accepts only plain file names: no separators, no parent
// references, nothing absolute.
func (o *OutputDir) ValidateName(name string) error {
	if name == "" {
		return ErrEmptyPath
	}
	if filepath.IsAbs(name) {
		return fmt.Errorf("%w: %s", ErrAbsolutePath, name)
	}
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrPathEscapes, name)
	}
	if name == "." || filepath.Base(name) != name {
		return fmt.Errorf("%w: %s", ErrNotFlat, name)
	}
	return nil
}

// Exists reports whether name exists in the directory.
func (o *OutputDir) Exists(name string) bool {
	if o.ValidateName(name) != nil {
		return false
	}
	_, err := o.root.Stat(name)
	return err == nil
}

// ReadFile reads name from the directory.
func (o *OutputDir) ReadFile(name string) ([]byte, error) {
	if err := o.ValidateName(name); err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	f, err := o.root.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// WriteFile creates or truncates name and writes data to it.
func (o *OutputDir) WriteFile(name string, data []byte, perm os.FileMode) error {
	return o.write(name, data, perm, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
}

// CreateFile writes data to name, failing with os.ErrExist if it already exists.
func (o *OutputDir) CreateFile(name string, data []byte, perm os.FileMode) error {
	return o.write(name, data, perm, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
}

func (o *OutputDir) write(name string, data []byte, perm os.FileMode, flag int) error {
	if err := o.ValidateName(name); err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	f, err := o.root.OpenFile(name, flag, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
