package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// FileBackend keeps the table in a single file at a fixed path
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend reading and writing path
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location
func (f *FileBackend) Path() string {
	return f.path
}

// Load implements Backend.Load
func (f *FileBackend) Load(ctx context.Context) (*Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", f.path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read %s: %w", f.path, err)
	}

	t, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", f.path, err)
	}
	return t, nil
}

// Save implements Backend.Save. The file is overwritten in place.
func (f *FileBackend) Save(ctx context.Context, t *Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Encode(t)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.path, err)
	}
	return nil
}

// Close implements Backend.Close
func (f *FileBackend) Close() error {
	return nil
}
