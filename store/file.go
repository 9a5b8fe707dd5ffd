package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File is a Medium backed by a fixed-size image file. The image is held
// in memory; Commit rewrites it atomically (temp file + rename).
type File struct {
	path  string
	data  [MediumSize]byte
	dirty bool
}

// OpenFile opens or creates the image at path. A missing file starts
// out erased and is first written on Commit.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path required", ErrMedium)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrMedium, err)
	}

	f := &File{path: path}
	for i := range f.data {
		f.data[i] = erased
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("%w: read %s: %w", ErrMedium, path, err)
	}
	copy(f.data[:], raw)
	return f, nil
}

// Get implements Medium.Get.
func (f *File) Get(offset int) (byte, error) {
	if err := checkOffset(offset); err != nil {
		return 0, err
	}
	return f.data[offset], nil
}

// Put implements Medium.Put.
func (f *File) Put(offset int, v byte) error {
	if err := checkOffset(offset); err != nil {
		return err
	}
	if f.data[offset] != v {
		f.data[offset] = v
		f.dirty = true
	}
	return nil
}

// Commit implements Medium.Commit.
func (f *File) Commit() error {
	if !f.dirty {
		if _, err := os.Stat(f.path); err == nil {
			return nil
		}
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, f.data[:], 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrMedium, tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %w", ErrMedium, f.path, err)
	}
	f.dirty = false
	return nil
}

// Close implements Medium.Close.
func (f *File) Close() error {
	return nil
}
